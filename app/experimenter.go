package app

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"gopuf/domain/core"
	"gopuf/models"
	"gopuf/ports"
)

// successThreshold is the holdout accuracy at or above which a run counts
// as a successful attack in the study summary.
const successThreshold = 0.95

// Experimenter runs a study: instances x attempts experiments derived from
// one base parameter set, with bounded concurrency. The instance index
// shifts the instance and challenge seeds, the attempt index shifts the
// model seed, so runs stay reproducible and non-overlapping.
type Experimenter struct {
	Service     *AttackService
	Store       ports.ResultStorePort // optional
	Concurrency int
	Logger      *log.Logger
}

// NewExperimenter creates an experimenter over an attack service.
func NewExperimenter(service *AttackService, store ports.ResultStorePort, concurrency int, logger *log.Logger) *Experimenter {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Experimenter{Service: service, Store: store, Concurrency: concurrency, Logger: logger}
}

// Run executes instances x attempts experiments and aggregates them into a
// study summary. Individual run failures abort the study; rediscovery
// retries inside a run do not.
func (e *Experimenter) Run(ctx context.Context, name string, base models.ExperimentParams, instances, attempts int) (*models.StudySummary, []models.ExperimentResult, error) {
	start := time.Now()
	var (
		mu      sync.Mutex
		results []models.ExperimentResult
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.Concurrency)
	for instance := 0; instance < instances; instance++ {
		for attempt := 0; attempt < attempts; attempt++ {
			params := base
			params.SeedInstance = base.SeedInstance + int64(instance)
			params.SeedChallenges = base.SeedChallenges + int64(instance)
			params.SeedModel = base.SeedModel + int64(attempt)
			g.Go(func() error {
				res, err := e.Service.Run(ctx, params)
				if err != nil {
					return err
				}
				if e.Store != nil {
					if err := e.Store.SaveResult(ctx, res); err != nil {
						return err
					}
				}
				mu.Lock()
				results = append(results, *res)
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, results, err
	}

	summary := summarize(name, results)
	summary.TotalSeconds = time.Since(start).Seconds()
	e.Logger.Printf("[study] %s: %d runs, mean accuracy %.4f (std %.4f), success rate %.2f",
		name, summary.Runs, summary.MeanAccuracy, summary.StdAccuracy, summary.SuccessRate)
	return summary, results, nil
}

func summarize(name string, results []models.ExperimentResult) *models.StudySummary {
	summary := &models.StudySummary{
		ID:        core.StudyID(core.NewID()),
		Name:      name,
		Runs:      len(results),
		CreatedAt: core.Now(),
	}
	if len(results) == 0 {
		return summary
	}
	accuracies := make([]float64, len(results))
	best := math.Inf(-1)
	successes := 0
	for i, r := range results {
		accuracies[i] = r.Accuracy
		if r.Accuracy > best {
			best = r.Accuracy
		}
		if r.Accuracy >= successThreshold {
			successes++
		}
	}
	mean, _ := stats.Mean(accuracies)
	std, _ := stats.StandardDeviation(accuracies)
	summary.MeanAccuracy = mean
	summary.StdAccuracy = std
	summary.BestAccuracy = best
	summary.SuccessRate = float64(successes) / float64(len(results))
	return summary
}
