// Package learner implements the reliability-based evolutionary attack on
// XOR arbiter PUF models: it recovers the individual chains of a k-chain
// linear threshold array from noisy repeated challenge-response
// measurements by minimizing, per chain, one minus the absolute Pearson
// correlation between the model's and the oracle's reliability signals with
// a derivative-free optimizer.
package learner

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"strings"

	"github.com/montanaflynn/stats"

	"gopuf/domain/core"
	"gopuf/domain/crp"
	"gopuf/domain/ltf"
	"gopuf/ports"
)

const (
	// InitialEpsilon seeds the reliability threshold coordinate of every
	// fresh search attempt.
	InitialEpsilon = 2.0

	// InitialStepSize is the CMA-ES sigma every attempt starts from.
	InitialStepSize = 1.0

	// PoolCorrelationLimit is the rediscovery threshold: a learned chain
	// whose absolute Pearson correlation against any pool member exceeds it
	// is discarded as a rediscovery.
	PoolCorrelationLimit = 0.5

	// StagnationMinGenerations is the number of generations that must
	// elapse before the stagnation rule may fire.
	StagnationMinGenerations = 100

	// StopStagnation is recorded when the trailing best-cost window went
	// flat before the optimizer's own termination fired.
	StopStagnation = "stagnation"
)

// Config parameterizes a learner. K, N and Seed are required; zero values
// elsewhere select defaults.
type Config struct {
	K int
	N int

	Transform ltf.Transform
	Combiner  ltf.Combiner

	// PopSize is the optimizer population per generation; 0 selects the
	// optimizer's default.
	PopSize int

	// AbortDelta and AbortIter define the stagnation rule: once at least
	// StagnationMinGenerations generations have elapsed, a spread of the
	// trailing AbortIter best costs below AbortDelta stops the attempt.
	AbortDelta float64
	AbortIter  int

	// MaxGenerations bounds a single optimizer run and MaxAttempts bounds
	// the rediscovery retries per chain slot. The search loop is unbounded
	// by design without them, so both always carry a value; zero selects
	// the defaults.
	MaxGenerations int
	MaxAttempts    int

	Seed int64

	Optimizer ports.OptimizerFactory
	Progress  ports.ProgressSinkPort
	Logger    *log.Logger
}

// Meta is the search metadata surfaced next to the learned model.
type Meta struct {
	// Iterations is the total generation count across all attempts.
	Iterations int
	// Stops records the stop reason of every accepted attempt, in chain
	// order.
	Stops []string
	// DiscardCount and IterationCount are keyed by chain slot.
	DiscardCount   map[int]int
	IterationCount map[int]int
	// TrainingAccuracy is the final agreement with majority-vote ground
	// truth, after orientation. Below 0.5 it is surfaced as-is.
	TrainingAccuracy float64
	// Flipped reports whether the orientation correction was applied.
	Flipped bool
}

// Learner runs the chain search against one training set.
type Learner struct {
	cfg Config
	ts  *crp.TrainingSet

	// Static per-run state, read-only during the search.
	pufReliabilities []float64
	linearized       *ltf.Linearized

	rng *rand.Rand
}

// New validates the configuration against the training set and precomputes
// the static oracle reliabilities and linearized challenges.
func New(ts *crp.TrainingSet, cfg Config) (*Learner, error) {
	if cfg.K <= 0 {
		return nil, core.ErrChainCount
	}
	if cfg.N != ts.N {
		return nil, core.NewShapeError(cfg.N, ts.N, "training challenge length")
	}
	if cfg.Optimizer == nil {
		return nil, fmt.Errorf("learner: optimizer factory is required")
	}
	if cfg.AbortIter <= 0 {
		cfg.AbortIter = 10
	}
	if cfg.AbortDelta <= 0 {
		cfg.AbortDelta = 1e-3
	}
	if cfg.MaxGenerations <= 0 {
		cfg.MaxGenerations = 3000
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 20 * cfg.K
	}
	if cfg.Transform == "" {
		cfg.Transform = ltf.TransformID
	}
	if cfg.Combiner == "" {
		cfg.Combiner = ltf.CombinerXOR
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	linearized, err := cfg.Transform.Apply(ts.Challenges, cfg.K)
	if err != nil {
		return nil, err
	}
	l := &Learner{
		cfg:              cfg,
		ts:               ts,
		pufReliabilities: PUFReliabilities(ts.Responses),
		linearized:       linearized,
		rng:              rand.New(rand.NewSource(cfg.Seed)),
	}
	return l, nil
}

// PUFReliabilityVector exposes the static oracle-side reliabilities.
func (l *Learner) PUFReliabilityVector() []float64 {
	return l.pufReliabilities
}

// Learn runs the full chain search: one optimizer run per chain slot,
// rediscovery filtering against the accepted pool, and a final orientation
// pass. It returns the assembled model and the search metadata.
func (l *Learner) Learn(ctx context.Context) (*ltf.Model, *Meta, error) {
	meta := &Meta{
		DiscardCount:   make(map[int]int),
		IterationCount: make(map[int]int),
	}
	pool := make([][]float64, 0, l.cfg.K)

	for slot := 0; slot < l.cfg.K; {
		attempt := meta.DiscardCount[slot] + 1
		if attempt > l.cfg.MaxAttempts {
			return nil, meta, fmt.Errorf("%w: chain %d discarded %d times",
				core.ErrNonConvergence, slot, meta.DiscardCount[slot])
		}
		if l.cfg.Progress != nil {
			l.cfg.Progress.ChainStarted(slot, attempt)
		}
		l.cfg.Logger.Printf("[learner] chain %d attempt %d", slot, attempt)

		chain, reason, generations, err := l.searchChain(ctx, slot)
		if err != nil {
			return nil, meta, err
		}
		meta.Iterations += generations
		meta.IterationCount[slot] += generations

		chain = CanonicalizeSign(chain)
		if l.rediscovered(chain, pool) {
			meta.DiscardCount[slot]++
			if l.cfg.Progress != nil {
				l.cfg.Progress.ChainDiscarded(slot, attempt)
			}
			l.cfg.Logger.Printf("[learner] chain %d attempt %d rediscovered, retrying", slot, attempt)
			continue
		}

		pool = append(pool, chain)
		meta.Stops = append(meta.Stops, reason)
		if l.cfg.Progress != nil {
			l.cfg.Progress.ChainAccepted(slot, generations)
		}
		l.cfg.Logger.Printf("[learner] chain %d accepted after %d generations (%s)", slot, generations, reason)
		slot++
	}

	model, err := l.orient(pool, meta)
	if err != nil {
		return nil, meta, err
	}
	return model, meta, nil
}

// searchChain runs one optimizer attempt for a chain slot and returns the
// best weight vector (epsilon dropped), the stop reason and the generation
// count.
func (l *Learner) searchChain(ctx context.Context, slot int) ([]float64, string, int, error) {
	obj, err := newObjective(l.linearized.Chain(slot), l.pufReliabilities)
	if err != nil {
		return nil, "", 0, err
	}

	// Fresh randomness per attempt: initial weights from a standard normal,
	// a fixed initial epsilon, and a new optimizer seed.
	initial := make([]float64, l.cfg.N+1)
	for i := 0; i < l.cfg.N; i++ {
		initial[i] = l.rng.NormFloat64()
	}
	initial[l.cfg.N] = InitialEpsilon

	opt, err := l.cfg.Optimizer(l.rng.Int63(), initial, InitialStepSize, l.cfg.PopSize, l.cfg.MaxGenerations)
	if err != nil {
		return nil, "", 0, err
	}

	stagnation := newStagnationRule(l.cfg.AbortIter, l.cfg.AbortDelta)
	reason := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, "", opt.Generation(), err
		}
		if opt.ShouldStop() {
			reason = opt.StopReason()
			break
		}
		population, err := opt.Ask()
		if err != nil {
			return nil, "", opt.Generation(), err
		}
		costs, err := obj.evaluate(population)
		if err != nil {
			return nil, "", opt.Generation(), err
		}
		if err := opt.Tell(population, costs); err != nil {
			return nil, "", opt.Generation(), err
		}
		if stagnation.observe(minOf(costs)) {
			reason = StopStagnation
			break
		}
	}

	best, _ := opt.Best()
	return best[:l.cfg.N], reason, opt.Generation(), nil
}

// rediscovered reports whether a canonicalized chain correlates too
// strongly with any pool member.
func (l *Learner) rediscovered(chain []float64, pool [][]float64) bool {
	for _, member := range pool {
		r, err := stats.Pearson(chain, member)
		if err != nil {
			// Degenerate vectors cannot be meaningfully compared; treat as
			// novel and let validation judge the final model.
			continue
		}
		if math.Abs(r) > PoolCorrelationLimit {
			return true
		}
	}
	return false
}

// orient assembles the final model and resolves the global output polarity:
// if agreement with the majority-vote ground truth is below one half, the
// first chain is negated once, which flips the parity of an XOR-style
// combiner and with it the combined output.
func (l *Learner) orient(pool [][]float64, meta *Meta) (*ltf.Model, error) {
	model, err := ltf.NewModelFromChains(pool, l.cfg.Transform, l.cfg.Combiner)
	if err != nil {
		return nil, err
	}
	truth := l.ts.MajorityResponses()
	acc, err := agreement(model, l.ts.Challenges, truth)
	if err != nil {
		return nil, err
	}
	if acc < 0.5 {
		model.FlipChain(0)
		meta.Flipped = true
		acc, err = agreement(model, l.ts.Challenges, truth)
		if err != nil {
			return nil, err
		}
	}
	meta.TrainingAccuracy = acc
	return model, nil
}

func agreement(model *ltf.Model, challenges [][]int8, truth []int8) (float64, error) {
	predicted, err := model.Eval(challenges)
	if err != nil {
		return 0, err
	}
	match := 0
	for i, p := range predicted {
		if p == truth[i] {
			match++
		}
	}
	return float64(match) / float64(len(truth)), nil
}

// StopsString joins the per-chain stop reasons for logging and persistence.
func (m *Meta) StopsString() string {
	return strings.Join(m.Stops, ",")
}

func minOf(costs []float64) float64 {
	lo := costs[0]
	for _, v := range costs[1:] {
		if v < lo {
			lo = v
		}
	}
	return lo
}
