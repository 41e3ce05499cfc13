package app

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"gopuf/adapters/optimizer"
	"gopuf/adapters/simulation"
	"gopuf/domain/bits"
	"gopuf/domain/core"
	"gopuf/domain/crp"
	"gopuf/domain/ltf"
	"gopuf/internal/learner"
	"gopuf/models"
	"gopuf/ports"
)

// holdoutChallenges is the fresh challenge count used to estimate final
// model accuracy against the noise-free instance.
const holdoutChallenges = 10000

// reliabilityConfidence parameterizes the noise-quantile threshold of the
// unreliable-challenge census.
const reliabilityConfidence = 0.7

// AttackService runs one reliability attack end to end: simulate an
// instance, draw a repeated-measurement training set, learn a model and
// analyze it against the ground truth.
type AttackService struct {
	logger   *log.Logger
	progress ports.ProgressSinkPort
}

// NewAttackService creates an attack service.
func NewAttackService(logger *log.Logger, progress ports.ProgressSinkPort) *AttackService {
	if logger == nil {
		logger = log.Default()
	}
	return &AttackService{logger: logger, progress: progress}
}

// Run executes one experiment and returns its result record.
func (s *AttackService) Run(ctx context.Context, params models.ExperimentParams) (*models.ExperimentResult, error) {
	start := time.Now()

	transform, err := ltf.ParseTransform(params.Transform)
	if err != nil {
		return nil, err
	}
	combiner, err := ltf.ParseCombiner(params.Combiner)
	if err != nil {
		return nil, err
	}

	instance, err := simulation.NewArbiterArray(
		params.N, params.K, transform, combiner,
		params.Noisiness, params.SeedInstance, params.SeedInstance+1)
	if err != nil {
		return nil, err
	}

	ts, err := crp.New(instance, params.N, params.Num, params.Reps, params.SeedChallenges)
	if err != nil {
		return nil, err
	}

	l, err := learner.New(ts, learner.Config{
		K:              params.K,
		N:              params.N,
		Transform:      transform,
		Combiner:       combiner,
		PopSize:        params.PopSize,
		AbortDelta:     params.AbortDelta,
		AbortIter:      params.AbortIter,
		MaxGenerations: params.MaxGenerations,
		MaxAttempts:    params.MaxAttempts,
		Seed:           params.SeedModel,
		Optimizer:      optimizer.Factory,
		Progress:       s.progress,
		Logger:         s.logger,
	})
	if err != nil {
		return nil, err
	}

	model, meta, err := l.Learn(ctx)
	if err != nil {
		return nil, err
	}

	accuracy, err := s.holdoutAccuracy(model, instance.Model(), params)
	if err != nil {
		return nil, err
	}
	cross, err := crossCorrelation(model, instance.Model())
	if err != nil {
		return nil, err
	}

	result := &models.ExperimentResult{
		ID:               core.ExperimentID(core.NewID()),
		Params:           params,
		Accuracy:         accuracy,
		TrainingAccuracy: meta.TrainingAccuracy,
		Flipped:          meta.Flipped,
		Iterations:       meta.Iterations,
		Stops:            meta.StopsString(),
		DiscardCount:     meta.DiscardCount,
		IterationCount:   meta.IterationCount,
		CrossCorrelation: cross,
		UnreliableCensus: unreliableCensus(instance.Model(), ts, params.Noisiness),
		MeasuredSeconds:  time.Since(start).Seconds(),
		CreatedAt:        core.Now(),
	}
	s.logger.Printf("[attack] experiment %s finished: accuracy=%.4f training=%.4f iterations=%d time=%.1fs",
		result.ID, result.Accuracy, result.TrainingAccuracy, result.Iterations, result.MeasuredSeconds)
	return result, nil
}

// holdoutAccuracy estimates agreement between the learned model and the
// noise-free instance on fresh challenges.
func (s *AttackService) holdoutAccuracy(learned, truth *ltf.Model, params models.ExperimentParams) (float64, error) {
	challenges, err := bits.RandomChallenges(params.N, holdoutChallenges, params.SeedChallenges+1)
	if err != nil {
		return 0, err
	}
	want, err := truth.Eval(challenges)
	if err != nil {
		return 0, err
	}
	got, err := learned.Eval(challenges)
	if err != nil {
		return 0, err
	}
	match := 0
	for i := range want {
		if want[i] == got[i] {
			match++
		}
	}
	return float64(match) / float64(len(want)), nil
}

// crossCorrelation computes the Pearson correlation of every learned chain
// against every true chain. A recovered chain shows up as one entry near
// +/-1 per row.
func crossCorrelation(learned, truth *ltf.Model) ([][]float64, error) {
	kL := learned.K()
	kT := truth.K()
	out := make([][]float64, kL)
	for i := 0; i < kL; i++ {
		row := make([]float64, kT)
		li := rowOf(learned, i)
		for j := 0; j < kT; j++ {
			r, err := stats.Pearson(li, rowOf(truth, j))
			if err != nil {
				return nil, err
			}
			row[j] = r
		}
		out[i] = row
	}
	return out, nil
}

// unreliableCensus counts training challenges per chain whose true absolute
// delay difference falls below the noise-derived reliability threshold
// sigma_noise * Phi^-1(confidence). These are the challenges the attack
// draws its signal from.
func unreliableCensus(truth *ltf.Model, ts *crp.TrainingSet, noisiness float64) []int {
	if noisiness == 0 {
		return nil
	}
	lin, err := truth.Transform.Apply(ts.Challenges, truth.K())
	if err != nil {
		return nil
	}
	diffs, err := truth.ChainDelayDiffs(lin)
	if err != nil {
		return nil
	}
	sigma := noisiness * math.Sqrt(float64(truth.N()))
	threshold := sigma * distuv.UnitNormal.Quantile(reliabilityConfidence)
	counts := make([]int, truth.K())
	for i := 0; i < truth.K(); i++ {
		for j := 0; j < ts.Num; j++ {
			if math.Abs(diffs.At(i, j)) < threshold {
				counts[i]++
			}
		}
	}
	return counts
}

func rowOf(m *ltf.Model, i int) []float64 {
	_, n := m.Weights.Dims()
	row := make([]float64, n)
	for j := 0; j < n; j++ {
		row[j] = m.Weights.At(i, j)
	}
	return row
}
