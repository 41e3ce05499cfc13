package ltf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"gopuf/domain/core"
)

// Combiner names the aggregation of per-chain outputs into one response.
type Combiner string

// CombinerXOR multiplies per-chain values, the real-valued analogue of
// XOR-ing the per-chain response bits.
const CombinerXOR Combiner = "xor"

// ParseCombiner validates a combiner identifier.
func ParseCombiner(s string) (Combiner, error) {
	switch Combiner(s) {
	case CombinerXOR:
		return Combiner(s), nil
	}
	return "", fmt.Errorf("%w: %q", core.ErrUnknownCombiner, s)
}

// Combine folds a k×num matrix of per-chain outputs into one value per
// challenge.
func (c Combiner) Combine(perChain *mat.Dense) ([]float64, error) {
	k, num := perChain.Dims()
	if k == 0 {
		return nil, core.ErrChainCount
	}
	switch c {
	case CombinerXOR:
		out := make([]float64, num)
		for j := 0; j < num; j++ {
			prod := 1.0
			for i := 0; i < k; i++ {
				prod *= perChain.At(i, j)
			}
			out[j] = prod
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", core.ErrUnknownCombiner, string(c))
}
