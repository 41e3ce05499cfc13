package simulation

import (
	"gonum.org/v1/gonum/mat"

	"gopuf/domain/core"
	"gopuf/domain/ltf"
)

// InterposePUF simulates a two-layer Interpose PUF: an upper arbiter array
// whose response bit is spliced into the middle of the challenge before the
// lower array evaluates it. The lower layer therefore works on n+1 stages.
type InterposePUF struct {
	Up   *ArbiterArray // kUp chains, n stages
	Down *ArbiterArray // kDown chains, n+1 stages

	n   int
	pos int // interpose position within the widened challenge
}

// NewInterposePUF creates a simulated (kUp, kDown)-Interpose PUF over
// n-stage challenges. The interpose position is the middle, n/2.
func NewInterposePUF(n, kUp, kDown int, transform ltf.Transform, combiner ltf.Combiner, noisiness float64, seed, noiseSeed int64) (*InterposePUF, error) {
	if n <= 0 {
		return nil, core.ErrStageCount
	}
	up, err := NewArbiterArray(n, kUp, transform, combiner, noisiness, seed, noiseSeed)
	if err != nil {
		return nil, err
	}
	down, err := NewArbiterArray(n+1, kDown, transform, combiner, noisiness, seed+1, noiseSeed+1)
	if err != nil {
		return nil, err
	}
	return &InterposePUF{Up: up, Down: down, n: n, pos: n / 2}, nil
}

// N returns the outer challenge stage count.
func (p *InterposePUF) N() int { return p.n }

// InterposePos returns the index the upper response is inserted at.
func (p *InterposePUF) InterposePos() int { return p.pos }

// Interpose widens a challenge by inserting bit at the interpose position.
func (p *InterposePUF) Interpose(challenge []int8, bit int8) []int8 {
	widened := make([]int8, 0, len(challenge)+1)
	widened = append(widened, challenge[:p.pos]...)
	widened = append(widened, bit)
	widened = append(widened, challenge[p.pos:]...)
	return widened
}

// Eval returns one noisy response bit per challenge.
func (p *InterposePUF) Eval(challenges [][]int8) ([]int8, error) {
	upBits, err := p.Up.Eval(challenges)
	if err != nil {
		return nil, err
	}
	widened := make([][]int8, len(challenges))
	for i, c := range challenges {
		widened[i] = p.Interpose(c, upBits[i])
	}
	return p.Down.Eval(widened)
}

// EvalRepeated measures every challenge reps times with independent noise
// per repetition.
func (p *InterposePUF) EvalRepeated(challenges [][]int8, reps int) (*mat.Dense, error) {
	if reps <= 0 {
		return nil, core.NewShapeError(1, reps, "repetitions")
	}
	responses := mat.NewDense(len(challenges), reps, nil)
	for r := 0; r < reps; r++ {
		col, err := p.Eval(challenges)
		if err != nil {
			return nil, err
		}
		for i, v := range col {
			responses.Set(i, r, float64(v))
		}
	}
	return responses, nil
}
