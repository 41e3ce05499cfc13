// Command attack runs the reliability-based CMA-ES attack against a
// simulated XOR arbiter PUF and exports the study results.
package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gopuf/adapters/export"
	"gopuf/adapters/postgres"
	"gopuf/app"
	"gopuf/internal/config"
	"gopuf/models"
	"gopuf/ports"
)

func main() {
	// .env is optional; explicit environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	n := flag.Int("n", cfg.Attack.N, "bits per arbiter chain")
	k := flag.Int("k", cfg.Attack.K, "number of arbiter chains")
	noisiness := flag.Float64("noisiness", cfg.Attack.Noisiness, "noise scale relative to delay variability")
	num := flag.Int("num", cfg.Attack.Num, "training challenges")
	reps := flag.Int("reps", cfg.Attack.Reps, "repeated measurements per challenge")
	popSize := flag.Int("pop-size", cfg.Attack.PopSize, "optimizer population per generation (0 = default)")
	abortDelta := flag.Float64("abort-delta", cfg.Attack.AbortDelta, "stagnation spread threshold")
	abortIter := flag.Int("abort-iter", cfg.Attack.AbortIter, "stagnation window size")
	maxGen := flag.Int("max-generations", cfg.Attack.MaxGenerations, "generation budget per optimizer run")
	instances := flag.Int("instances", cfg.Attack.Instances, "repeated instance initializations")
	attempts := flag.Int("attempts", cfg.Attack.Attempts, "repeated learner initializations per instance")
	name := flag.String("name", "sim_rel_cmaes", "study name")
	flag.Parse()

	logger := log.New(os.Stderr, "", log.LstdFlags)

	params := models.ExperimentParams{
		N:              *n,
		K:              *k,
		Noisiness:      *noisiness,
		Num:            *num,
		Reps:           *reps,
		PopSize:        *popSize,
		AbortDelta:     *abortDelta,
		AbortIter:      *abortIter,
		MaxGenerations: *maxGen,
		MaxAttempts:    cfg.Attack.MaxAttempts,
		Transform:      cfg.Attack.Transform,
		Combiner:       cfg.Attack.Combiner,
		SeedInstance:   seedOr(cfg.Attack.SeedInstance),
		SeedChallenges: seedOr(cfg.Attack.SeedChallenges),
		SeedModel:      seedOr(cfg.Attack.SeedModel),
	}
	logger.Printf("learning %d time(s) each of %d (%d,%d)-XOR arbiter PUF(s) with %g noisiness, "+
		"%d challenges x %d repetitions",
		*attempts, *instances, params.N, params.K, params.Noisiness, params.Num, params.Reps)
	logger.Printf("seeds: instance=0x%x challenges=0x%x model=0x%x",
		params.SeedInstance, params.SeedChallenges, params.SeedModel)

	var store ports.ResultStorePort
	if cfg.Database.Enabled {
		db, err := postgres.Connect(cfg.Database.URL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		store = postgres.NewResultStore(db)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := app.NewAttackService(logger, nil)
	experimenter := app.NewExperimenter(service, store, runtime.NumCPU(), logger)
	summary, results, err := experimenter.Run(ctx, *name, params, *instances, *attempts)
	if err != nil {
		log.Fatalf("study: %v", err)
	}

	if cfg.Export.CSVPath != "" {
		if err := export.WriteResultsCSV(cfg.Export.CSVPath, results); err != nil {
			log.Fatalf("export csv: %v", err)
		}
		logger.Printf("wrote %s", cfg.Export.CSVPath)
	}
	if cfg.Export.XLSXPath != "" {
		if err := export.WriteStudyWorkbook(cfg.Export.XLSXPath, summary, results); err != nil {
			log.Fatalf("export xlsx: %v", err)
		}
		logger.Printf("wrote %s", cfg.Export.XLSXPath)
	}
}

// seedOr returns the configured seed or a fresh random one when unset.
func seedOr(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return rand.Int63()
}
