package similarity

import (
	"math"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// earthRadiusMeters is the mean Earth radius used by the haversine
// formula.
const earthRadiusMeters = 6371000.0

// minTitleLength is the shortest normalized title that still carries
// signal; anything below it is skipped with reason title_too_short.
const minTitleLength = 3

// reasonTitleTooShort is attached to skipped title signals.
const reasonTitleTooShort = "title_too_short"

// haversineMeters computes the great-circle distance between two
// points in meters.
func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// distanceScore maps a distance in meters to [0,1] with linear decay
// reaching zero at maxDistance.
func distanceScore(distanceMeters, maxDistance float64) float64 {
	return math.Max(0, 1-distanceMeters/maxDistance)
}

// normalizeTitle lowercases, strips punctuation, and collapses
// whitespace.
func normalizeTitle(title string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
		default:
			// punctuation dropped
		}
	}
	return strings.TrimSpace(b.String())
}

// titleScore computes a normalized edit-distance ratio between two
// already-normalized titles. Identical strings score exactly 1.
func titleScore(a, b string) float64 {
	if a == b {
		return 1
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}

	dist := levenshtein.ComputeDistance(a, b)
	score := 1 - float64(dist)/float64(longest)
	if score < 0 {
		return 0
	}
	return score
}

// jaccard computes |a∩b| / |a∪b| over two string sets.
func jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, v := range a {
		setA[v] = struct{}{}
	}

	union := make(map[string]struct{}, len(a)+len(b))
	for v := range setA {
		union[v] = struct{}{}
	}

	intersection := 0
	for _, v := range b {
		if _, seen := union[v]; !seen {
			union[v] = struct{}{}
			continue
		}
		if _, inA := setA[v]; inA {
			// Count each shared value once.
			delete(setA, v)
			intersection++
		}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}
