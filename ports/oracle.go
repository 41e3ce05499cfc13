package ports

import (
	"gonum.org/v1/gonum/mat"
)

// OraclePort is a challenge/response source: given ordered {+1,-1}
// challenge vectors it returns possibly-noisy response bits, optionally
// measured several times per challenge.
type OraclePort interface {
	// Eval returns one response bit per challenge.
	Eval(challenges [][]int8) ([]int8, error)
	// EvalRepeated measures every challenge reps times and returns a
	// num×reps matrix with the same leading dimension as challenges.
	EvalRepeated(challenges [][]int8, reps int) (*mat.Dense, error)
}
