// Package simulation provides the oracle adapters the attack is run
// against: arbiter LTF arrays with configurable measurement noise, and the
// two-layer Interpose PUF built from them.
package simulation

import (
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/mat"

	"gopuf/domain/bits"
	"gopuf/domain/core"
	"gopuf/domain/ltf"
)

// ArbiterArray simulates a k-chain XOR arbiter PUF. Stage weights are drawn
// once from a standard normal; every evaluation adds fresh Gaussian noise to
// each chain's delay difference, scaled the way the hardware literature
// scales it: sigma = noisiness * sqrt(n).
type ArbiterArray struct {
	model     *ltf.Model
	noisiness float64

	mu       sync.Mutex
	noiseRng *rand.Rand

	n, k int
}

// NewArbiterArray creates a simulated instance. seed fixes the stage
// weights, noiseSeed the measurement noise stream.
func NewArbiterArray(n, k int, transform ltf.Transform, combiner ltf.Combiner, noisiness float64, seed, noiseSeed int64) (*ArbiterArray, error) {
	if n <= 0 {
		return nil, core.ErrStageCount
	}
	if k <= 0 {
		return nil, core.ErrChainCount
	}
	rng := rand.New(rand.NewSource(seed))
	weights := mat.NewDense(k, n, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < n; j++ {
			weights.Set(i, j, rng.NormFloat64())
		}
	}
	model, err := ltf.NewModel(weights, transform, combiner)
	if err != nil {
		return nil, err
	}
	return &ArbiterArray{
		model:     model,
		noisiness: noisiness,
		noiseRng:  rand.New(rand.NewSource(noiseSeed)),
		n:         n,
		k:         k,
	}, nil
}

// N returns the stage count.
func (a *ArbiterArray) N() int { return a.n }

// K returns the chain count.
func (a *ArbiterArray) K() int { return a.k }

// Noisiness returns the configured noise proportion.
func (a *ArbiterArray) Noisiness() float64 { return a.noisiness }

// Model returns the noise-free ground-truth model of this instance.
func (a *ArbiterArray) Model() *ltf.Model { return a.model }

// Eval returns one noisy response bit per challenge.
func (a *ArbiterArray) Eval(challenges [][]int8) ([]int8, error) {
	lin, err := a.model.Transform.Apply(challenges, a.k)
	if err != nil {
		return nil, err
	}
	diffs, err := a.model.ChainDelayDiffs(lin)
	if err != nil {
		return nil, err
	}
	a.addNoise(diffs)
	vals, err := a.model.Combiner.Combine(diffs)
	if err != nil {
		return nil, err
	}
	out := make([]int8, len(vals))
	for i, v := range vals {
		out[i] = bits.Sign(v)
	}
	return out, nil
}

// EvalRepeated measures every challenge reps times with independent noise
// per repetition, returning a num×reps matrix.
func (a *ArbiterArray) EvalRepeated(challenges [][]int8, reps int) (*mat.Dense, error) {
	if reps <= 0 {
		return nil, core.NewShapeError(1, reps, "repetitions")
	}
	responses := mat.NewDense(len(challenges), reps, nil)
	for r := 0; r < reps; r++ {
		col, err := a.Eval(challenges)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			responses.Set(i, r, float64(v))
		}
	}
	return responses, nil
}

func (a *ArbiterArray) addNoise(diffs *mat.Dense) {
	if a.noisiness == 0 {
		return
	}
	sigma := a.noisiness * math.Sqrt(float64(a.n))
	a.mu.Lock()
	defer a.mu.Unlock()
	rows, cols := diffs.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			diffs.Set(i, j, diffs.At(i, j)+sigma*a.noiseRng.NormFloat64())
		}
	}
}
