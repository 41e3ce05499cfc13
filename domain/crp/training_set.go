// Package crp holds challenge-response-pair data structures: the repeated
// measurement training sets the reliability learner consumes.
package crp

import (
	"gonum.org/v1/gonum/mat"

	"gopuf/domain/bits"
	"gopuf/domain/core"
)

// Oracle is the measurement source a training set is drawn from. Responses
// may be noisy; EvalRepeated measures every challenge reps times.
type Oracle interface {
	Eval(challenges [][]int8) ([]int8, error)
	EvalRepeated(challenges [][]int8, reps int) (*mat.Dense, error)
}

// TrainingSet pairs an ordered challenge set with a matrix of repeated
// response measurements (one row per challenge, one column per repetition)
// and a reference to the oracle that produced them. It is created once per
// experiment and read-only thereafter.
type TrainingSet struct {
	Challenges [][]int8   // num×n, {+1,-1}
	Responses  *mat.Dense // num×reps, {+1,-1}
	Source     Oracle

	Num  int
	N    int
	Reps int
}

// New samples num challenges of n stages and measures each reps times
// against the oracle.
func New(oracle Oracle, n, num, reps int, seed int64) (*TrainingSet, error) {
	challenges, err := bits.RandomChallenges(n, num, seed)
	if err != nil {
		return nil, err
	}
	responses, err := oracle.EvalRepeated(challenges, reps)
	if err != nil {
		return nil, err
	}
	return FromData(challenges, responses, oracle)
}

// FromData wraps externally assembled challenge/response matrices. All shape
// invariants are checked here, eagerly, so they never surface deep inside
// the optimizer.
func FromData(challenges [][]int8, responses *mat.Dense, source Oracle) (*TrainingSet, error) {
	if len(challenges) == 0 {
		return nil, core.ErrEmptyChallenge
	}
	n := len(challenges[0])
	if n == 0 {
		return nil, core.ErrStageCount
	}
	for _, c := range challenges {
		if len(c) != n {
			return nil, core.NewShapeError(n, len(c), "challenge length")
		}
	}
	rows, reps := responses.Dims()
	if rows != len(challenges) {
		return nil, core.NewShapeError(len(challenges), rows, "response rows")
	}
	if reps == 0 {
		return nil, core.NewShapeError(1, 0, "repetitions")
	}
	return &TrainingSet{
		Challenges: challenges,
		Responses:  responses,
		Source:     source,
		Num:        len(challenges),
		N:          n,
		Reps:       reps,
	}, nil
}

// MajorityResponses derives the per-challenge ground truth: the most
// frequent response value across repetitions, always in {+1,-1}. Polarity is
// detected matrix-wide with the same convention the reliability math uses: a
// matrix containing any negative entry is {+1,-1}, otherwise {0,1} and each
// row is normalized before the vote.
func (ts *TrainingSet) MajorityResponses() []int8 {
	is01 := true
	for i := 0; i < ts.Num && is01; i++ {
		is01 = bits.Is01(ts.Responses.RawRowView(i))
	}
	out := make([]int8, ts.Num)
	for i := 0; i < ts.Num; i++ {
		row := ts.Responses.RawRowView(i)
		if is01 {
			converted := make([]float64, len(row))
			for j, v := range row {
				converted[j] = bits.To11(v)
			}
			row = converted
		}
		out[i] = bits.MajorityVote(row)
	}
	return out
}
