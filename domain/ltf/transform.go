package ltf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"gopuf/domain/core"
)

// Transform names an input transformation of a linear threshold array. The
// set is closed: transforms are selected by identifier from configuration,
// never passed as arbitrary callables.
type Transform string

const (
	// TransformID feeds the raw challenge to every chain unchanged.
	TransformID Transform = "id"
	// TransformATF applies the arbiter transform: feature j is the product
	// of challenge bits j..n-1, the standard linearization of an arbiter
	// chain's delay accumulation.
	TransformATF Transform = "atf"
)

// ParseTransform validates a transform identifier.
func ParseTransform(s string) (Transform, error) {
	switch Transform(s) {
	case TransformID, TransformATF:
		return Transform(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownTransform, s)
}

// Linearized holds the transformed challenge block for every chain of an
// array, shape (num challenges, k chains, n stages). It is computed once per
// run and is read-only afterwards; the learner re-slices it per chain slot
// instead of recomputing.
type Linearized struct {
	Num, K, N int

	chains []*mat.Dense // one num×n feature matrix per chain
}

// Chain returns the num×n feature matrix of chain i. Callers must not
// mutate it.
func (l *Linearized) Chain(i int) *mat.Dense {
	return l.chains[i]
}

// Apply linearizes raw {+1,-1} challenges for a k-chain array.
func (t Transform) Apply(challenges [][]int8, k int) (*Linearized, error) {
	if k <= 0 {
		return nil, core.ErrChainCount
	}
	if len(challenges) == 0 {
		return nil, core.ErrEmptyChallenge
	}
	num := len(challenges)
	n := len(challenges[0])

	features := mat.NewDense(num, n, nil)
	switch t {
	case TransformID:
		for i, c := range challenges {
			for j, v := range c {
				features.Set(i, j, float64(v))
			}
		}
	case TransformATF:
		for i, c := range challenges {
			// Suffix products, built right to left.
			prod := 1.0
			for j := n - 1; j >= 0; j-- {
				prod *= float64(c[j])
				features.Set(i, j, prod)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownTransform, string(t))
	}

	// Both named transforms produce identical features for every chain; the
	// per-chain slices share one backing matrix.
	chains := make([]*mat.Dense, k)
	for i := range chains {
		chains[i] = features
	}
	return &Linearized{Num: num, K: k, N: n, chains: chains}, nil
}
