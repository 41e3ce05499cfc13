package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopuf/domain/bits"
	"gopuf/domain/core"
	"gopuf/domain/ltf"
)

func TestNewArbiterArrayRejectsBadShapes(t *testing.T) {
	_, err := NewArbiterArray(0, 2, ltf.TransformATF, ltf.CombinerXOR, 0, 1, 2)
	assert.ErrorIs(t, err, core.ErrStageCount)

	_, err = NewArbiterArray(16, 0, ltf.TransformATF, ltf.CombinerXOR, 0, 1, 2)
	assert.ErrorIs(t, err, core.ErrChainCount)
}

func TestNoiselessInstanceIsDeterministic(t *testing.T) {
	a, err := NewArbiterArray(16, 2, ltf.TransformATF, ltf.CombinerXOR, 0, 42, 43)
	require.NoError(t, err)
	b, err := NewArbiterArray(16, 2, ltf.TransformATF, ltf.CombinerXOR, 0, 42, 43)
	require.NoError(t, err)

	challenges, err := bits.RandomChallenges(16, 100, 7)
	require.NoError(t, err)

	respA, err := a.Eval(challenges)
	require.NoError(t, err)
	respB, err := b.Eval(challenges)
	require.NoError(t, err)
	assert.Equal(t, respA, respB)

	// Without noise every repetition is identical and matches the
	// ground-truth model.
	repeated, err := a.EvalRepeated(challenges, 5)
	require.NoError(t, err)
	truth, err := a.Model().Eval(challenges)
	require.NoError(t, err)
	for i := range challenges {
		for r := 0; r < 5; r++ {
			assert.Equal(t, float64(truth[i]), repeated.At(i, r), "challenge %d rep %d", i, r)
		}
	}
}

func TestNoisyInstanceFlipsSomeResponses(t *testing.T) {
	a, err := NewArbiterArray(16, 1, ltf.TransformATF, ltf.CombinerXOR, 0.5, 42, 43)
	require.NoError(t, err)

	challenges, err := bits.RandomChallenges(16, 200, 7)
	require.NoError(t, err)
	repeated, err := a.EvalRepeated(challenges, 11)
	require.NoError(t, err)

	disagreements := 0
	for i := 0; i < 200; i++ {
		row := repeated.RawRowView(i)
		for _, v := range row[1:] {
			if v != row[0] {
				disagreements++
				break
			}
		}
	}
	assert.Greater(t, disagreements, 0, "expected measurement noise to flip at least one repetition")
}

func TestEvalRepeatedRejectsZeroReps(t *testing.T) {
	a, err := NewArbiterArray(8, 1, ltf.TransformATF, ltf.CombinerXOR, 0, 1, 2)
	require.NoError(t, err)
	challenges, err := bits.RandomChallenges(8, 10, 3)
	require.NoError(t, err)

	_, err = a.EvalRepeated(challenges, 0)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestInterposeWidensAtMiddle(t *testing.T) {
	puf, err := NewInterposePUF(8, 1, 1, ltf.TransformATF, ltf.CombinerXOR, 0, 11, 12)
	require.NoError(t, err)
	assert.Equal(t, 4, puf.InterposePos())

	c := []int8{1, -1, 1, -1, 1, -1, 1, -1}
	widened := puf.Interpose(c, -1)
	require.Len(t, widened, 9)
	assert.Equal(t, c[:4], widened[:4])
	assert.Equal(t, int8(-1), widened[4])
	assert.Equal(t, c[4:], widened[5:])
}

func TestInterposePUFEvalRepeatedShape(t *testing.T) {
	puf, err := NewInterposePUF(8, 1, 1, ltf.TransformATF, ltf.CombinerXOR, 0, 11, 12)
	require.NoError(t, err)

	challenges, err := bits.RandomChallenges(8, 50, 3)
	require.NoError(t, err)
	responses, err := puf.EvalRepeated(challenges, 3)
	require.NoError(t, err)

	rows, cols := responses.Dims()
	assert.Equal(t, 50, rows)
	assert.Equal(t, 3, cols)

	// The lower layer sees n+1 stages.
	_, n := puf.Down.Model().Weights.Dims()
	assert.Equal(t, 9, n)
}
