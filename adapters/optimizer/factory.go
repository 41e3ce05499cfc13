package optimizer

import (
	"gopuf/ports"
)

// Factory adapts New to the ports.OptimizerFactory signature the chain
// search loop is wired with.
func Factory(seed int64, initial []float64, stepSize float64, popSize, maxGenerations int) (ports.OptimizerPort, error) {
	return New(Params{
		Initial:        initial,
		StepSize:       stepSize,
		Seed:           seed,
		PopSize:        popSize,
		MaxGenerations: maxGenerations,
	})
}
