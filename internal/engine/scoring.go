package engine

import (
	"math"
	"time"
)

// ScoringPolicy maps a submission outcome to awarded points. Correct answers
// decay linearly from the base value at elapsed=0 down to a floor at the
// deadline; incorrect or missing answers score zero. The same inputs always
// produce the same output.
type ScoringPolicy struct {
	// DecayFraction is the share of the base points lost by answering
	// exactly at the deadline. 0 disables decay, 0.5 halves the award.
	DecayFraction float64
}

// DefaultScoringPolicy halves the award over the full answer window.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{DecayFraction: 0.5}
}

// Score computes the points awarded for one submission.
func (p ScoringPolicy) Score(correct bool, elapsed, limit time.Duration, basePoints int) int {
	if !correct || basePoints <= 0 || limit <= 0 {
		return 0
	}
	f := p.DecayFraction
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	ratio := float64(elapsed) / float64(limit)
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	points := int(math.Floor(float64(basePoints) * (1 - f*ratio)))
	floor := int(math.Floor(float64(basePoints) * (1 - f)))
	if points < floor {
		points = floor
	}
	if points > basePoints {
		points = basePoints
	}
	return points
}
