package learner

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"gopuf/domain/core"
	"gopuf/domain/ltf"
)

// DegenerateCost is the documented sentinel cost for a candidate whose
// reliability indicator has zero variance. The Pearson correlation is
// undefined there; assigning the objective's maximum keeps the population
// ranking total without perturbing the optimizer's bookkeeping.
const DegenerateCost = 1.0

// objective scores candidate populations for one chain slot. It carries the
// per-attempt context explicitly: the slot's feature block and the static,
// pre-centered oracle reliability vector. Nothing here is shared mutable
// state, so attempts are safe to construct and discard freely.
type objective struct {
	features *mat.Dense // num×n feature block of the chain slot

	// Oracle reliabilities, centered once. centered sums to zero, ss is its
	// sum of squares.
	centered []float64
	ss       float64

	n int
}

// newObjective precomputes the static side of the correlation. A constant
// oracle reliability vector makes every correlation undefined, which is a
// degenerate training set rather than a degenerate candidate, so it is
// rejected eagerly.
func newObjective(features *mat.Dense, pufReliabilities []float64) (*objective, error) {
	num, n := features.Dims()
	if num != len(pufReliabilities) {
		return nil, core.NewShapeError(num, len(pufReliabilities), "reliability vector length")
	}
	mean := 0.0
	for _, v := range pufReliabilities {
		mean += v
	}
	mean /= float64(num)
	centered := make([]float64, num)
	ss := 0.0
	for i, v := range pufReliabilities {
		centered[i] = v - mean
		ss += centered[i] * centered[i]
	}
	if ss == 0 {
		return nil, core.ErrDegenerateReliability
	}
	return &objective{features: features, centered: centered, ss: ss, n: n}, nil
}

// evaluate scores a whole population at once. Each candidate row carries n
// weights plus a trailing epsilon. Steps: batched delay differences,
// epsilon-thresholded reliability indicators, Pearson correlation of each
// indicator vector against the static oracle vector, cost = 1 - |r|. A
// perfect match of either sign scores zero; the sign ambiguity is resolved
// later by orientation, not penalized here.
func (o *objective) evaluate(population *mat.Dense) ([]float64, error) {
	rows, cols := population.Dims()
	if cols != o.n+1 {
		return nil, core.NewShapeError(o.n+1, cols, "candidate length")
	}

	weights := population.Slice(0, rows, 0, o.n).(*mat.Dense)
	diffs := ltf.PopulationDelayDiffs(weights, o.features)

	num := len(o.centered)
	costs := make([]float64, rows)
	for i := 0; i < rows; i++ {
		eps := population.At(i, o.n)
		// The indicator is 0/1, so its centered cross- and auto-covariances
		// reduce to sums over the challenges marked reliable.
		ones := 0
		cross := 0.0
		for j := 0; j < num; j++ {
			if math.Abs(diffs.At(i, j)) > eps {
				ones++
				cross += o.centered[j]
			}
		}
		ssx := float64(ones) - float64(ones)*float64(ones)/float64(num)
		if ssx <= 0 {
			costs[i] = DegenerateCost
			continue
		}
		r := cross / math.Sqrt(ssx*o.ss)
		costs[i] = 1 - math.Abs(r)
	}
	return costs, nil
}
