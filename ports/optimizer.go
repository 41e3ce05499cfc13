package ports

import (
	"gonum.org/v1/gonum/mat"
)

// OptimizerPort is the minimal ask/tell surface of a derivative-free
// population optimizer. It isolates the optimizer implementation from the
// chain search loop: the loop only samples populations, reports costs and
// asks whether the optimizer's own termination fired.
type OptimizerPort interface {
	// Ask samples the next population, one candidate per row.
	Ask() (*mat.Dense, error)
	// Tell reports the cost of every candidate of the population most
	// recently returned by Ask and updates the internal search state.
	Tell(population *mat.Dense, costs []float64) error
	// ShouldStop reports whether an internal termination criterion fired.
	ShouldStop() bool
	// StopReason names the fired criterion, empty while running.
	StopReason() string
	// Best returns the best point seen so far and its cost.
	Best() ([]float64, float64)
	// Generation returns the number of completed Tell cycles.
	Generation() int
}

// OptimizerFactory builds a fresh optimizer for one search attempt. Each
// attempt gets its own seed, initial point and step size.
type OptimizerFactory func(seed int64, initial []float64, stepSize float64, popSize, maxGenerations int) (OptimizerPort, error)
