package learner

import (
	"context"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gopuf/domain/bits"
	"gopuf/domain/core"
	"gopuf/domain/crp"
	"gopuf/internal/testkit"
	"gopuf/ports"
)

// scriptedOptimizer returns one fixed candidate and stops after a single
// generation. It lets the chain search loop be exercised deterministically:
// rediscovery filtering, orientation and metadata bookkeeping, independent of
// the real optimizer.
type scriptedOptimizer struct {
	best []float64
	gen  int
	done bool
}

func (o *scriptedOptimizer) Ask() (*mat.Dense, error) {
	pop := mat.NewDense(2, len(o.best), nil)
	pop.SetRow(0, o.best)
	pop.SetRow(1, o.best)
	return pop, nil
}

func (o *scriptedOptimizer) Tell(_ *mat.Dense, _ []float64) error {
	o.gen++
	o.done = true
	return nil
}

func (o *scriptedOptimizer) ShouldStop() bool   { return o.done }
func (o *scriptedOptimizer) StopReason() string { return "scripted" }
func (o *scriptedOptimizer) Generation() int    { return o.gen }

func (o *scriptedOptimizer) Best() ([]float64, float64) {
	return append([]float64(nil), o.best...), 0
}

// scriptedFactory hands out the given chains one optimizer per call,
// repeating the last one once the script is exhausted.
func scriptedFactory(chains ...[]float64) ports.OptimizerFactory {
	i := 0
	return func(_ int64, _ []float64, _ float64, _, _ int) (ports.OptimizerPort, error) {
		w := chains[i]
		if i < len(chains)-1 {
			i++
		}
		best := append(append([]float64(nil), w...), 1.0) // trailing epsilon
		return &scriptedOptimizer{best: best}, nil
	}
}

// mixedTrainingSet builds a small set whose reliability vector has variance:
// half the challenges agree fully across repetitions, half carry one dissent.
func mixedTrainingSet(t *testing.T, n, num int) *crp.TrainingSet {
	t.Helper()
	challenges, err := bits.RandomChallenges(n, num, 3)
	require.NoError(t, err)
	rows := make([][]float64, num)
	for i := range rows {
		if i < num/2 {
			rows[i] = []float64{1, 1, 1}
		} else {
			rows[i] = []float64{1, -1, 1}
		}
	}
	ts, err := crp.FromData(challenges, testkit.ResponseMatrix(rows), nil)
	require.NoError(t, err)
	return ts
}

func TestLearnDiscardsRediscoveredChains(t *testing.T) {
	ts := mixedTrainingSet(t, 4, 20)

	w1 := []float64{1, 2, 3, 4}
	w1Again := []float64{1.1, 2.1, 2.9, 4.2} // near copy of w1
	w2 := []float64{1, -1, 1, -1}            // |r| with w1 well below the limit

	l, err := New(ts, Config{
		K:         2,
		N:         4,
		Seed:      1,
		Optimizer: scriptedFactory(w1, w1Again, w2),
	})
	require.NoError(t, err)

	model, meta, err := l.Learn(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, model.K())

	// Slot 0 accepts immediately; slot 1 burns one attempt on the near copy.
	assert.Equal(t, 0, meta.DiscardCount[0])
	assert.Equal(t, 1, meta.DiscardCount[1])
	assert.Equal(t, 3, meta.Iterations)
	assert.Len(t, meta.Stops, 2)
	assert.Equal(t, "scripted,scripted", meta.StopsString())

	// The accepted pool is pairwise decorrelated. Orientation may have
	// negated chain 0, which leaves |r| untouched.
	row0 := mat.Row(nil, 0, model.Weights)
	row1 := mat.Row(nil, 1, model.Weights)
	r, err := stats.Pearson(row0, row1)
	require.NoError(t, err)
	assert.LessOrEqual(t, absOf(r), PoolCorrelationLimit)
	assert.Equal(t, w2, row1)
}

func TestLearnGivesUpAfterMaxAttempts(t *testing.T) {
	ts := mixedTrainingSet(t, 4, 20)
	w := []float64{1, 2, 3, 4}

	l, err := New(ts, Config{
		K:           2,
		N:           4,
		Seed:        1,
		MaxAttempts: 3,
		Optimizer:   scriptedFactory(w), // every attempt rediscovers w
	})
	require.NoError(t, err)

	_, meta, err := l.Learn(context.Background())
	assert.ErrorIs(t, err, core.ErrNonConvergence)
	assert.Equal(t, 3, meta.DiscardCount[1])
}

func TestLearnOrientsModelAgainstMajorityVote(t *testing.T) {
	n, num := 4, 20
	challenges, err := bits.RandomChallenges(n, num, 5)
	require.NoError(t, err)

	// Ground truth is the inverse of what the scripted chain predicts, so
	// agreement starts at zero and the orientation pass must flip.
	w := []float64{0.5, -1.2, 2.0, 0.7}
	rows := make([][]float64, num)
	for i, c := range challenges {
		dd := 0.0
		for j, v := range c {
			dd += float64(v) * w[j]
		}
		p := -float64(bits.Sign(dd))
		if i < num/2 {
			rows[i] = []float64{p, p, p}
		} else {
			rows[i] = []float64{p, p, -p} // majority still p
		}
	}
	ts, err := crp.FromData(challenges, testkit.ResponseMatrix(rows), nil)
	require.NoError(t, err)

	l, err := New(ts, Config{K: 1, N: n, Seed: 1, Optimizer: scriptedFactory(w)})
	require.NoError(t, err)

	model, meta, err := l.Learn(context.Background())
	require.NoError(t, err)
	assert.True(t, meta.Flipped)
	assert.Equal(t, 1.0, meta.TrainingAccuracy)

	predicted, err := model.Eval(challenges)
	require.NoError(t, err)
	assert.Equal(t, ts.MajorityResponses(), predicted)
}

func TestLearnHonorsContextCancellation(t *testing.T) {
	ts := mixedTrainingSet(t, 4, 20)
	l, err := New(ts, Config{K: 1, N: 4, Seed: 1, Optimizer: scriptedFactory([]float64{1, 2, 3, 4})})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = l.Learn(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesConfig(t *testing.T) {
	ts := mixedTrainingSet(t, 4, 20)

	_, err := New(ts, Config{K: 0, N: 4, Optimizer: scriptedFactory([]float64{1})})
	assert.ErrorIs(t, err, core.ErrChainCount)

	_, err = New(ts, Config{K: 1, N: 8, Optimizer: scriptedFactory([]float64{1})})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)

	_, err = New(ts, Config{K: 1, N: 4})
	assert.Error(t, err)
}

func TestPUFReliabilityVector(t *testing.T) {
	ts := mixedTrainingSet(t, 4, 20)
	l, err := New(ts, Config{K: 1, N: 4, Seed: 1, Optimizer: scriptedFactory([]float64{1, 2, 3, 4})})
	require.NoError(t, err)

	rel := l.PUFReliabilityVector()
	require.Len(t, rel, 20)
	assert.Equal(t, 1.5, rel[0])  // full agreement, reps/2
	assert.Equal(t, 0.5, rel[19]) // one dissent
}

func absOf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
