// Package testkit provides deterministic fixtures for learner and service
// tests: seeded simulated instances, noiseless training sets and an
// in-memory result store.
package testkit

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"gopuf/adapters/simulation"
	"gopuf/domain/crp"
	"gopuf/domain/ltf"
)

// NoiselessInstance returns a deterministic noise-free XOR arbiter array.
func NoiselessInstance(n, k int, seed int64) (*simulation.ArbiterArray, error) {
	return simulation.NewArbiterArray(n, k, ltf.TransformATF, ltf.CombinerXOR, 0, seed, seed+1)
}

// NoiselessTrainingSet samples a training set from a noise-free instance;
// all repetitions are identical by construction.
func NoiselessTrainingSet(instance *simulation.ArbiterArray, num, reps int, seed int64) (*crp.TrainingSet, error) {
	return crp.New(instance, instance.N(), num, reps, seed)
}

// KnownModel builds a model from explicit chain weights.
func KnownModel(chains [][]float64) (*ltf.Model, error) {
	return ltf.NewModelFromChains(chains, ltf.TransformATF, ltf.CombinerXOR)
}

// RandomWeights draws a seeded standard-normal weight vector.
func RandomWeights(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	w := make([]float64, n)
	for i := range w {
		w[i] = rng.NormFloat64()
	}
	return w
}

// ResponseMatrix builds a num×reps response matrix from rows.
func ResponseMatrix(rows [][]float64) *mat.Dense {
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, r := range rows {
		m.SetRow(i, r)
	}
	return m
}
