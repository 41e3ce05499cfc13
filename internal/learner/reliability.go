package learner

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"gopuf/domain/bits"
)

// PUFReliabilities converts a num×reps matrix of repeated response
// measurements into one reliability score per challenge: the absolute
// deviation of the response sum from its balanced midpoint,
// |reps/2 - sum(responses as 0/1)|. Zero means the responses split evenly
// (the challenge sits on the decision boundary); reps/2 means full
// agreement. Input polarity is detected row-independently of the caller:
// a matrix containing any negative entry is treated as {+1,-1} and
// normalized, otherwise it is taken as {0,1}.
//
// This is computed once per run on oracle data and must stay untouched for
// the whole chain search.
func PUFReliabilities(responses *mat.Dense) []float64 {
	rows, reps := responses.Dims()
	is01 := true
	for i := 0; i < rows && is01; i++ {
		is01 = bits.Is01(responses.RawRowView(i))
	}
	out := make([]float64, rows)
	half := float64(reps) / 2
	for i := 0; i < rows; i++ {
		sum := 0.0
		for _, v := range responses.RawRowView(i) {
			if is01 {
				sum += v
			} else {
				sum += bits.To01(v)
			}
		}
		out[i] = math.Abs(half - sum)
	}
	return out
}

// ModelReliabilities thresholds a population's delay differences into hard
// reliability indicators: entry (i,j) is 1 when candidate i's absolute
// delay difference on challenge j exceeds that candidate's epsilon. Unlike
// the oracle side, the model's reliability is an indicator rather than a
// magnitude, parameterized by the learnable epsilon.
func ModelReliabilities(delayDiffs *mat.Dense, epsilon []float64) *mat.Dense {
	rows, cols := delayDiffs.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		eps := epsilon[i]
		for j := 0; j < cols; j++ {
			if math.Abs(delayDiffs.At(i, j)) > eps {
				out.Set(i, j, 1)
			}
		}
	}
	return out
}

// CanonicalizeSign returns w with a canonical orientation: if the first
// stage weight is negative the whole vector is negated. Reliability cannot
// distinguish a chain from its sign-flipped twin, so accepted chains are
// stored in this canonical form to make rediscovery checks sign-invariant.
// Idempotent: an already-canonical vector comes back unchanged.
func CanonicalizeSign(w []float64) []float64 {
	out := append([]float64(nil), w...)
	if len(out) > 0 && out[0] < 0 {
		for i := range out {
			out[i] = -out[i]
		}
	}
	return out
}
