package learner

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gopuf/domain/bits"
	"gopuf/domain/core"
	"gopuf/domain/ltf"
	"gopuf/internal/testkit"
)

// idealFixture builds a feature block, a ground-truth weight vector and an
// oracle reliability vector that exactly mirrors the |delay diff| > epsilon
// indicator of that vector: fully agreeing measurements for reliable
// challenges, an even split for the rest.
type idealFixture struct {
	features *mat.Dense
	weights  []float64
	epsilon  float64
	rel      []float64
}

func newIdealFixture(t *testing.T, n, num int) idealFixture {
	t.Helper()
	challenges, err := bits.RandomChallenges(n, num, 11)
	require.NoError(t, err)
	lin, err := ltf.TransformID.Apply(challenges, 1)
	require.NoError(t, err)
	features := lin.Chain(0)

	weights := testkit.RandomWeights(n, 12)
	absDiffs := make([]float64, num)
	for j := 0; j < num; j++ {
		dd := 0.0
		for l := 0; l < n; l++ {
			dd += features.At(j, l) * weights[l]
		}
		absDiffs[j] = math.Abs(dd)
	}
	// Epsilon between the two middle magnitudes, so both indicator classes
	// are populated and no value sits on the boundary.
	sorted := append([]float64(nil), absDiffs...)
	sort.Float64s(sorted)
	epsilon := (sorted[num/2-1] + sorted[num/2]) / 2

	rel := make([]float64, num)
	for j, d := range absDiffs {
		if d > epsilon {
			rel[j] = 2.5 // full agreement over 5 repetitions
		}
	}
	return idealFixture{features: features, weights: weights, epsilon: epsilon, rel: rel}
}

func candidateRow(weights []float64, epsilon float64) []float64 {
	return append(append([]float64(nil), weights...), epsilon)
}

func populationOf(rows ...[]float64) *mat.Dense {
	pop := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		pop.SetRow(i, r)
	}
	return pop
}

func TestObjectiveScoresMatchingCandidateNearZero(t *testing.T) {
	fix := newIdealFixture(t, 4, 40)
	obj, err := newObjective(fix.features, fix.rel)
	require.NoError(t, err)

	negated := make([]float64, len(fix.weights))
	for i, v := range fix.weights {
		negated[i] = -v
	}
	costs, err := obj.evaluate(populationOf(
		candidateRow(fix.weights, fix.epsilon),
		candidateRow(negated, fix.epsilon),
	))
	require.NoError(t, err)

	// The true chain matches the oracle reliabilities exactly, in either
	// sign: reliability carries no polarity.
	assert.InDelta(t, 0, costs[0], 1e-9)
	assert.InDelta(t, 0, costs[1], 1e-9)
}

func TestObjectiveScoresRandomCandidateWorse(t *testing.T) {
	fix := newIdealFixture(t, 4, 40)
	obj, err := newObjective(fix.features, fix.rel)
	require.NoError(t, err)

	costs, err := obj.evaluate(populationOf(
		candidateRow(fix.weights, fix.epsilon),
		candidateRow(testkit.RandomWeights(4, 99), fix.epsilon),
		candidateRow(testkit.RandomWeights(4, 100), fix.epsilon),
	))
	require.NoError(t, err)

	for i := 1; i < len(costs); i++ {
		assert.Greater(t, costs[i], costs[0], "unrelated candidate %d should score worse", i)
		assert.GreaterOrEqual(t, costs[i], 0.0)
		assert.LessOrEqual(t, costs[i], DegenerateCost)
	}
}

func TestObjectiveDegenerateIndicator(t *testing.T) {
	fix := newIdealFixture(t, 4, 40)
	obj, err := newObjective(fix.features, fix.rel)
	require.NoError(t, err)

	// An epsilon beyond every delay difference marks nothing reliable; the
	// correlation is undefined and the candidate gets the sentinel cost.
	costs, err := obj.evaluate(populationOf(candidateRow(fix.weights, 1e9)))
	require.NoError(t, err)
	assert.Equal(t, DegenerateCost, costs[0])
}

func TestObjectiveRejectsConstantReliabilities(t *testing.T) {
	fix := newIdealFixture(t, 4, 40)
	constant := make([]float64, 40)
	for i := range constant {
		constant[i] = 2.5
	}
	_, err := newObjective(fix.features, constant)
	assert.ErrorIs(t, err, core.ErrDegenerateReliability)
}

func TestObjectiveRejectsMismatchedShapes(t *testing.T) {
	fix := newIdealFixture(t, 4, 40)

	_, err := newObjective(fix.features, fix.rel[:10])
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	obj, err := newObjective(fix.features, fix.rel)
	require.NoError(t, err)
	_, err = obj.evaluate(mat.NewDense(2, 3, nil)) // candidates need n+1 columns
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}
