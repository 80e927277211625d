package similarity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/openartmap/ingest/internal/domain"
	"github.com/openartmap/ingest/internal/logger"
)

// Query is the "new" side of a comparison.
type Query struct {
	Coordinates domain.Coordinates
	Title       string
	Tags        domain.Tags
}

// Signal is one scored dimension contributing to an overall score.
type Signal struct {
	Type          string         `json:"type"`
	RawScore      float64        `json:"raw_score"`
	WeightedScore float64        `json:"weighted_score"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Result is the scored comparison between a query and one candidate.
type Result struct {
	CandidateID  string         `json:"candidate_id"`
	OverallScore float64        `json:"overall_score"`
	Signals      []Signal       `json:"signals"`
	Threshold    string         `json:"threshold"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Engine scores queries against candidate records. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	config Config
	logger logger.Interface
}

// NewEngine creates a scoring engine. Config must satisfy the weight
// and threshold invariants.
func NewEngine(cfg Config, log logger.Interface) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("similarity config: %w", err)
	}
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Engine{
		config: cfg,
		logger: log.WithComponent("similarity"),
	}, nil
}

// Config returns the engine's scoring configuration.
func (e *Engine) Config() Config {
	return e.config
}

// CalculateSimilarity scores query against a single candidate.
// The distance signal is always present; the title signal is present
// but zeroed (reason title_too_short) for very short titles; the tags
// signal is omitted entirely when either side has no tags.
func (e *Engine) CalculateSimilarity(query Query, candidate *domain.CandidateRecord) Result {
	signals := make([]Signal, 0, 3)

	distanceMeters := haversineMeters(
		query.Coordinates.Lat, query.Coordinates.Lon,
		candidate.Coordinates.Lat, candidate.Coordinates.Lon,
	)
	signals = append(signals, e.newSignal(SignalDistance,
		distanceScore(distanceMeters, e.config.MaxDistanceMeters),
		map[string]any{"distance_meters": distanceMeters},
	))

	signals = append(signals, e.titleSignal(query.Title, candidate.Title))

	if tagSignal, present := e.tagsSignal(query.Tags, candidate.Tags); present {
		signals = append(signals, tagSignal)
	}

	overall := 0.0
	for _, s := range signals {
		overall += s.WeightedScore
	}

	result := Result{
		CandidateID:  candidate.ExternalID,
		OverallScore: overall,
		Signals:      signals,
		Threshold:    e.classify(overall),
	}

	e.logger.Debug("scored candidate",
		"candidate_id", result.CandidateID,
		"overall_score", result.OverallScore,
		"threshold", result.Threshold,
	)

	return result
}

// newSignal builds a signal with its weighted score applied.
func (e *Engine) newSignal(signalType string, rawScore float64, metadata map[string]any) Signal {
	return Signal{
		Type:          signalType,
		RawScore:      rawScore,
		WeightedScore: rawScore * e.config.weight(signalType),
		Metadata:      metadata,
	}
}

// titleSignal scores the title dimension. Titles shorter than three
// characters after normalization carry no signal.
func (e *Engine) titleSignal(queryTitle, candidateTitle string) Signal {
	a := normalizeTitle(queryTitle)
	b := normalizeTitle(candidateTitle)

	if len([]rune(a)) < minTitleLength || len([]rune(b)) < minTitleLength {
		return e.newSignal(SignalTitle, 0, map[string]any{"reason": reasonTitleTooShort})
	}

	return e.newSignal(SignalTitle, titleScore(a, b), nil)
}

// tagsSignal scores tag overlap. The signal is omitted, not zeroed,
// when either side has no tags.
func (e *Engine) tagsSignal(queryTags, candidateTags domain.Tags) (Signal, bool) {
	if queryTags.Empty() || candidateTags.Empty() {
		return Signal{}, false
	}
	return e.newSignal(SignalTags, jaccard(queryTags.Flatten(), candidateTags.Flatten()), nil), true
}

// classify maps an overall score to a threshold tier.
func (e *Engine) classify(score float64) string {
	switch {
	case score >= e.config.HighThreshold:
		return ThresholdHigh
	case score >= e.config.WarnThreshold:
		return ThresholdWarn
	default:
		return ThresholdNone
	}
}

// ScoreAll scores a query against every candidate and returns results
// sorted by descending overall score.
func (e *Engine) ScoreAll(query Query, candidates []*domain.CandidateRecord) []Result {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, e.CalculateSimilarity(query, c))
	}
	SortBySimilarity(results)
	return results
}

// SortBySimilarity orders results by descending overall score.
func SortBySimilarity(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OverallScore > results[j].OverallScore
	})
}

// FilterByThreshold returns the results at or above minTier.
// Tier order: none < warn < high.
func FilterByThreshold(results []Result, minTier string) []Result {
	minRank := tierRank(minTier)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if tierRank(r.Threshold) >= minRank {
			out = append(out, r)
		}
	}
	return out
}

// tierRank maps tiers to an ordinal for comparisons.
func tierRank(tier string) int {
	switch tier {
	case ThresholdHigh:
		return 2
	case ThresholdWarn:
		return 1
	default:
		return 0
	}
}

// Explain renders a human-readable sentence describing which signals
// contributed to a result.
func Explain(result Result) string {
	parts := make([]string, 0, len(result.Signals))
	for _, s := range result.Signals {
		switch s.Type {
		case SignalDistance:
			if meters, ok := s.Metadata["distance_meters"].(float64); ok {
				parts = append(parts, fmt.Sprintf("located %.0fm away (score %.2f)", meters, s.RawScore))
				continue
			}
			parts = append(parts, fmt.Sprintf("distance score %.2f", s.RawScore))
		case SignalTitle:
			if reason, ok := s.Metadata["reason"]; ok {
				parts = append(parts, fmt.Sprintf("title skipped (%v)", reason))
				continue
			}
			parts = append(parts, fmt.Sprintf("title match %.2f", s.RawScore))
		case SignalTags:
			parts = append(parts, fmt.Sprintf("tag overlap %.2f", s.RawScore))
		}
	}

	return fmt.Sprintf("candidate %s scored %.2f (%s): %s",
		result.CandidateID, result.OverallScore, result.Threshold, strings.Join(parts, ", "))
}
