// Package bits holds the low-level bit-domain conventions shared by the
// simulators and the learner. Challenges and responses travel through the
// system in the {+1,-1} encoding; reliability math works on the {0,1}
// encoding. Conversions between the two are centralized here so no caller
// has to care which polarity a measurement matrix arrived in.
package bits

import (
	"math/rand"

	"gopuf/domain/core"
)

// To01 maps a {+1,-1} symbol to {0,1}: +1 -> 0, -1 -> 1.
func To01(v float64) float64 {
	return (1 - v) / 2
}

// To11 maps a {0,1} symbol back to {+1,-1}: 0 -> +1, 1 -> -1.
func To11(v float64) float64 {
	return 1 - 2*v
}

// Is01 reports whether a measurement matrix row uses the {0,1} encoding.
// A row with any negative entry is {+1,-1}; an all-non-negative row is
// treated as {0,1}.
func Is01(row []float64) bool {
	for _, v := range row {
		if v < 0 {
			return false
		}
	}
	return true
}

// Sign collapses a real value to a response bit. Zero resolves to +1 so the
// mapping is total and deterministic.
func Sign(v float64) int8 {
	if v < 0 {
		return -1
	}
	return 1
}

// MajorityVote returns the most frequent response value of one challenge's
// repeated {+1,-1} measurements. Ties resolve to +1; odd repetition counts
// cannot tie.
func MajorityVote(row []float64) int8 {
	sum := 0.0
	for _, v := range row {
		sum += v
	}
	return Sign(sum)
}

// RandomChallenges samples num uniform {+1,-1} challenges of n stages from a
// dedicated seeded source.
func RandomChallenges(n, num int, seed int64) ([][]int8, error) {
	if n <= 0 {
		return nil, core.ErrStageCount
	}
	if num <= 0 {
		return nil, core.ErrEmptyChallenge
	}
	rng := rand.New(rand.NewSource(seed))
	challenges := make([][]int8, num)
	for i := range challenges {
		c := make([]int8, n)
		for j := range c {
			if rng.Intn(2) == 0 {
				c[j] = 1
			} else {
				c[j] = -1
			}
		}
		challenges[i] = c
	}
	return challenges, nil
}
