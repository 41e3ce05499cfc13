package learner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"gopuf/domain/bits"
	"gopuf/internal/testkit"
)

func TestPUFReliabilities(t *testing.T) {
	responses := testkit.ResponseMatrix([][]float64{
		{1, 1, 1, 1},    // full agreement
		{1, -1, 1, -1},  // even split
		{-1, -1, -1, 1}, // one dissent
	})
	rel := PUFReliabilities(responses)
	assert.Equal(t, []float64{2, 0, 1}, rel)
}

func TestPUFReliabilitiesPolarityAgnostic(t *testing.T) {
	pm := testkit.ResponseMatrix([][]float64{
		{1, -1, 1},
		{-1, -1, -1},
	})
	rows, cols := pm.Dims()
	zo := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			zo.Set(i, j, bits.To01(pm.At(i, j)))
		}
	}
	assert.Equal(t, PUFReliabilities(pm), PUFReliabilities(zo))
}

func TestModelReliabilities(t *testing.T) {
	diffs := mat.NewDense(2, 3, []float64{
		0.5, -2, 1.5,
		3, -0.1, 0,
	})
	rel := ModelReliabilities(diffs, []float64{1, 0.5})

	want := mat.NewDense(2, 3, []float64{
		0, 1, 1,
		1, 0, 0,
	})
	assert.True(t, mat.EqualApprox(want, rel, 0))
}

func TestCanonicalizeSign(t *testing.T) {
	t.Run("negative lead flips", func(t *testing.T) {
		w := []float64{-1, 2, -3}
		got := CanonicalizeSign(w)
		assert.Equal(t, []float64{1, -2, 3}, got)
		// Input untouched.
		assert.Equal(t, []float64{-1, 2, -3}, w)
	})

	t.Run("positive lead unchanged", func(t *testing.T) {
		assert.Equal(t, []float64{1, -2, 3}, CanonicalizeSign([]float64{1, -2, 3}))
	})

	t.Run("idempotent", func(t *testing.T) {
		once := CanonicalizeSign([]float64{-2, 1})
		assert.Equal(t, once, CanonicalizeSign(once))
	})
}
