package models

import (
	"gopuf/domain/core"
)

// ExperimentParams captures every knob of one reliability attack run.
// Instance weights, challenge sampling and model search draw from three
// independent seed streams so any one can be varied in isolation.
type ExperimentParams struct {
	N         int     `json:"n"`
	K         int     `json:"k"`
	Noisiness float64 `json:"noisiness"`
	Num       int     `json:"num"`
	Reps      int     `json:"reps"`
	PopSize   int     `json:"pop_size"`

	AbortDelta     float64 `json:"abort_delta"`
	AbortIter      int     `json:"abort_iter"`
	MaxGenerations int     `json:"max_generations"`
	MaxAttempts    int     `json:"max_attempts"`

	Transform string `json:"transform"`
	Combiner  string `json:"combiner"`

	SeedInstance   int64 `json:"seed_instance"`
	SeedChallenges int64 `json:"seed_challenges"`
	SeedModel      int64 `json:"seed_model"`
}

// ExperimentResult is the record of one completed attack: quality metrics,
// search metadata and timings. Low final accuracy is data here, not an
// error; the caller decides acceptability.
type ExperimentResult struct {
	ID     core.ExperimentID `json:"id"`
	Params ExperimentParams  `json:"params"`

	Accuracy         float64 `json:"accuracy"`          // on fresh challenges vs the noise-free instance
	TrainingAccuracy float64 `json:"training_accuracy"` // vs majority-vote ground truth
	Flipped          bool    `json:"flipped"`           // orientation correction applied

	Iterations     int         `json:"iterations"`
	Stops          string      `json:"stops"`
	DiscardCount   map[int]int `json:"discard_count"`
	IterationCount map[int]int `json:"iteration_count"`

	// CrossCorrelation[i][j] is the Pearson correlation of learned chain i
	// against true chain j.
	CrossCorrelation [][]float64 `json:"cross_correlation,omitempty"`

	// UnreliableCensus counts training challenges whose true delay
	// difference falls below the noise-derived reliability threshold,
	// per chain.
	UnreliableCensus []int `json:"unreliable_census,omitempty"`

	MeasuredSeconds float64        `json:"measured_seconds"`
	CreatedAt       core.Timestamp `json:"created_at"`
}

// StudySummary aggregates a batch of experiment runs.
type StudySummary struct {
	ID           core.StudyID `json:"id"`
	Name         string       `json:"name"`
	Runs         int          `json:"runs"`
	MeanAccuracy float64      `json:"mean_accuracy"`
	StdAccuracy  float64      `json:"std_accuracy"`
	BestAccuracy float64      `json:"best_accuracy"`
	SuccessRate  float64      `json:"success_rate"` // share of runs at or above the success threshold
	TotalSeconds float64      `json:"total_seconds"`

	CreatedAt core.Timestamp `json:"created_at"`
}
