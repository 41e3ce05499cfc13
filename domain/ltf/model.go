// Package ltf models networks of linear threshold functions: the weight
// matrices, input transforms and combiners that together approximate an
// XOR arbiter PUF, plus the vectorized delay-difference evaluation the
// learner's objective is built on.
package ltf

import (
	"gonum.org/v1/gonum/mat"

	"gopuf/domain/bits"
	"gopuf/domain/core"
)

// Model is a k-chain linear threshold array: one weight vector per chain
// plus the transform/combiner identifiers needed to re-evaluate it. It is
// the terminal artifact of a learning run.
type Model struct {
	Weights   *mat.Dense // k×n
	Transform Transform
	Combiner  Combiner
}

// NewModel builds a model from a k×n weight matrix.
func NewModel(weights *mat.Dense, transform Transform, combiner Combiner) (*Model, error) {
	k, n := weights.Dims()
	if k == 0 {
		return nil, core.ErrChainCount
	}
	if n == 0 {
		return nil, core.ErrStageCount
	}
	if _, err := ParseTransform(string(transform)); err != nil {
		return nil, err
	}
	if _, err := ParseCombiner(string(combiner)); err != nil {
		return nil, err
	}
	return &Model{Weights: weights, Transform: transform, Combiner: combiner}, nil
}

// NewModelFromChains builds a model from accepted chain weight vectors.
func NewModelFromChains(chains [][]float64, transform Transform, combiner Combiner) (*Model, error) {
	if len(chains) == 0 {
		return nil, core.ErrChainCount
	}
	n := len(chains[0])
	weights := mat.NewDense(len(chains), n, nil)
	for i, w := range chains {
		if len(w) != n {
			return nil, core.NewShapeError(n, len(w), "chain weight length")
		}
		weights.SetRow(i, w)
	}
	return NewModel(weights, transform, combiner)
}

// K returns the chain count.
func (m *Model) K() int {
	k, _ := m.Weights.Dims()
	return k
}

// N returns the stage count.
func (m *Model) N() int {
	_, n := m.Weights.Dims()
	return n
}

// WeightArray returns the k×n weight matrix.
func (m *Model) WeightArray() *mat.Dense {
	return m.Weights
}

// ChainDelayDiffs computes the k×num matrix of per-chain delay differences
// for pre-linearized challenges.
func (m *Model) ChainDelayDiffs(lin *Linearized) (*mat.Dense, error) {
	k, n := m.Weights.Dims()
	if lin.K != k {
		return nil, core.NewShapeError(k, lin.K, "linearized chain count")
	}
	if lin.N != n {
		return nil, core.NewShapeError(n, lin.N, "linearized stage count")
	}
	diffs := mat.NewDense(k, lin.Num, nil)
	for i := 0; i < k; i++ {
		w := m.Weights.RowView(i)
		var dd mat.VecDense
		dd.MulVec(lin.Chain(i), w) // (num×n)·(n) -> num
		for j := 0; j < lin.Num; j++ {
			diffs.Set(i, j, dd.AtVec(j))
		}
	}
	return diffs, nil
}

// Val evaluates the combined real-valued output per challenge.
func (m *Model) Val(challenges [][]int8) ([]float64, error) {
	lin, err := m.Transform.Apply(challenges, m.K())
	if err != nil {
		return nil, err
	}
	diffs, err := m.ChainDelayDiffs(lin)
	if err != nil {
		return nil, err
	}
	return m.Combiner.Combine(diffs)
}

// Eval evaluates the model's {+1,-1} response bits per challenge.
func (m *Model) Eval(challenges [][]int8) ([]int8, error) {
	vals, err := m.Val(challenges)
	if err != nil {
		return nil, err
	}
	out := make([]int8, len(vals))
	for i, v := range vals {
		out[i] = bits.Sign(v)
	}
	return out, nil
}

// FlipChain negates one chain's weight vector in place. With an XOR-style
// combiner this flips the parity of the combined output.
func (m *Model) FlipChain(i int) {
	_, n := m.Weights.Dims()
	for j := 0; j < n; j++ {
		m.Weights.Set(i, j, -m.Weights.At(i, j))
	}
}

// PopulationDelayDiffs computes delay differences for a whole candidate
// population against one chain's feature block in a single matrix product:
// weights (pop×n) times featuresᵀ (n×num) -> (pop×num). The optimizer
// evaluates many candidates per generation, so this stays batched.
func PopulationDelayDiffs(weights *mat.Dense, features *mat.Dense) *mat.Dense {
	var diffs mat.Dense
	diffs.Mul(weights, features.T())
	return &diffs
}
