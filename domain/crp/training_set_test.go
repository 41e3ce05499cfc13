package crp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gopuf/domain/core"
)

func responseMatrix(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}

func TestFromData(t *testing.T) {
	challenges := [][]int8{{1, -1}, {-1, -1}, {1, 1}}
	responses := responseMatrix([][]float64{
		{1, 1, 1},
		{-1, -1, 1},
		{-1, -1, -1},
	})

	ts, err := FromData(challenges, responses, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Num)
	assert.Equal(t, 2, ts.N)
	assert.Equal(t, 3, ts.Reps)
}

func TestFromDataRejectsBadShapes(t *testing.T) {
	responses := responseMatrix([][]float64{{1, 1}, {1, 1}})

	t.Run("empty challenge set", func(t *testing.T) {
		_, err := FromData(nil, responses, nil)
		assert.ErrorIs(t, err, core.ErrEmptyChallenge)
	})

	t.Run("ragged challenges", func(t *testing.T) {
		_, err := FromData([][]int8{{1, -1}, {1}}, responses, nil)
		assert.ErrorIs(t, err, core.ErrShapeMismatch)
	})

	t.Run("row count mismatch", func(t *testing.T) {
		_, err := FromData([][]int8{{1, -1}}, responses, nil)
		assert.ErrorIs(t, err, core.ErrShapeMismatch)
	})
}

func TestMajorityResponses(t *testing.T) {
	challenges := [][]int8{{1, 1}, {1, -1}, {-1, 1}}
	responses := responseMatrix([][]float64{
		{1, 1, -1},
		{-1, -1, -1},
		{-1, 1, 1},
	})
	ts, err := FromData(challenges, responses, nil)
	require.NoError(t, err)

	assert.Equal(t, []int8{1, -1, 1}, ts.MajorityResponses())
}

func TestMajorityResponsesNormalizesZeroOnePolarity(t *testing.T) {
	challenges := [][]int8{{1, 1}, {1, -1}, {-1, 1}}
	// Same measurements as above, in the {0,1} encoding (+1 -> 0, -1 -> 1).
	responses := responseMatrix([][]float64{
		{0, 0, 1},
		{1, 1, 1},
		{1, 0, 0},
	})
	ts, err := FromData(challenges, responses, nil)
	require.NoError(t, err)

	assert.Equal(t, []int8{1, -1, 1}, ts.MajorityResponses())
}
