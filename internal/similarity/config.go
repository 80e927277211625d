// Package similarity scores incoming candidate records against
// existing catalog entries and classifies duplicate likelihood.
package similarity

import (
	"fmt"
	"math"
)

// Signal types contributing to an overall score.
const (
	SignalDistance = "distance"
	SignalTitle    = "title"
	SignalTags     = "tags"
)

// Threshold tiers for duplicate classification.
const (
	ThresholdNone = "none"
	ThresholdWarn = "warn"
	ThresholdHigh = "high"
)

// Default scoring constants. The weights and the 0.7 high cutoff were
// inherited from the production moderation workflow; they are
// configurable and not assumed optimal.
const (
	DefaultDistanceWeight = 0.5
	DefaultTitleWeight    = 0.3
	DefaultTagsWeight     = 0.2

	DefaultWarnThreshold = 0.5
	DefaultHighThreshold = 0.7

	// DefaultMaxDistanceMeters is the radius at which the distance
	// signal decays to zero.
	DefaultMaxDistanceMeters = 500.0
)

// weightTolerance absorbs float drift when checking that weights sum
// to one.
const weightTolerance = 1e-9

// Config holds the signal weights and classification thresholds.
type Config struct {
	DistanceWeight    float64 `yaml:"distance_weight" env:"SIMILARITY_DISTANCE_WEIGHT"`
	TitleWeight       float64 `yaml:"title_weight" env:"SIMILARITY_TITLE_WEIGHT"`
	TagsWeight        float64 `yaml:"tags_weight" env:"SIMILARITY_TAGS_WEIGHT"`
	WarnThreshold     float64 `yaml:"warn_threshold" env:"SIMILARITY_WARN_THRESHOLD"`
	HighThreshold     float64 `yaml:"high_threshold" env:"SIMILARITY_HIGH_THRESHOLD"`
	MaxDistanceMeters float64 `yaml:"max_distance_meters" env:"SIMILARITY_MAX_DISTANCE_METERS"`
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		DistanceWeight:    DefaultDistanceWeight,
		TitleWeight:       DefaultTitleWeight,
		TagsWeight:        DefaultTagsWeight,
		WarnThreshold:     DefaultWarnThreshold,
		HighThreshold:     DefaultHighThreshold,
		MaxDistanceMeters: DefaultMaxDistanceMeters,
	}
}

// Validate checks the weight and threshold invariants.
func (c Config) Validate() error {
	sum := c.DistanceWeight + c.TitleWeight + c.TagsWeight
	if math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("similarity weights must sum to 1.0, got %v", sum)
	}
	if c.DistanceWeight < 0 || c.TitleWeight < 0 || c.TagsWeight < 0 {
		return fmt.Errorf("similarity weights must be non-negative")
	}
	if c.WarnThreshold >= c.HighThreshold {
		return fmt.Errorf("warn threshold %v must be below high threshold %v",
			c.WarnThreshold, c.HighThreshold)
	}
	if c.MaxDistanceMeters <= 0 {
		return fmt.Errorf("max distance must be positive, got %v", c.MaxDistanceMeters)
	}
	return nil
}

// weight returns the configured weight for a signal type.
func (c Config) weight(signalType string) float64 {
	switch signalType {
	case SignalDistance:
		return c.DistanceWeight
	case SignalTitle:
		return c.TitleWeight
	case SignalTags:
		return c.TagsWeight
	default:
		return 0
	}
}
