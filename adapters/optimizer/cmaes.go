// Package optimizer implements Covariance Matrix Adaptation Evolution
// Strategy (CMA-ES) behind the ports.OptimizerPort ask/tell interface.
// The update equations follow N. Hansen, "The CMA Evolution Strategy: A
// Comparing Review": weighted recombination of the best half of the
// population, cumulative step-size adaptation, and a rank-one plus rank-mu
// covariance update with eigendecomposition-based sampling.
package optimizer

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"gopuf/internal/errors"
)

// Stop reasons surfaced through StopReason.
const (
	StopMaxGenerations = "max_generations"
	StopNoEffect       = "no_effect"
	StopFlatFitness    = "flat_fitness"
	StopNumerical      = "numerical"
)

// Params configures one CMA-ES run.
type Params struct {
	Initial  []float64 // initial mean, defines the dimension
	StepSize float64   // initial sigma
	Seed     int64

	// PopSize is the number of candidates per generation; 0 selects the
	// default 4+floor(3*ln(dim)).
	PopSize int

	// MaxGenerations bounds the run; 0 means unbounded, which the caller
	// must pair with an external stop rule.
	MaxGenerations int

	// NoEffect stops the run once sigma times the largest covariance
	// eigenvalue square root drops below it; 0 selects 5e-3.
	NoEffect float64
}

// CMAES is a single-threaded ask/tell CMA-ES instance.
type CMAES struct {
	dim     int
	popSize int
	mu      int
	weights []float64
	muEff   float64

	// Strategy constants.
	cc, cs, c1, cmu, damps, chiN float64

	mean  []float64
	sigma float64
	cov   *mat.SymDense
	ps    []float64
	pc    []float64

	// Eigendecomposition of cov, refreshed before sampling.
	eigVec     *mat.Dense
	eigSqrt    []float64
	eigCurrent bool

	rng *rand.Rand

	gen        int
	maxGen     int
	noEffect   float64
	bestX      []float64
	bestCost   float64
	stopReason string
}

// New builds a CMA-ES instance around an initial point and step size.
func New(p Params) (*CMAES, error) {
	dim := len(p.Initial)
	if dim == 0 {
		return nil, errors.InvalidInput("initial point must be non-empty")
	}
	if p.StepSize <= 0 {
		return nil, errors.InvalidInput("step size must be positive")
	}
	popSize := p.PopSize
	if popSize == 0 {
		popSize = 4 + int(3*math.Log(float64(dim)))
	}
	if popSize < 2 {
		return nil, errors.InvalidInput("population size must be at least 2")
	}

	mu := popSize / 2
	weights := make([]float64, mu)
	sum := 0.0
	for i := range weights {
		weights[i] = math.Log(float64(popSize+1)/2) - math.Log(float64(i+1))
		sum += weights[i]
	}
	sumSq := 0.0
	for i := range weights {
		weights[i] /= sum
		sumSq += weights[i] * weights[i]
	}
	muEff := 1 / sumSq

	d := float64(dim)
	cs := (muEff + 2) / (d + muEff + 5)
	damps := 1 + 2*math.Max(0, math.Sqrt((muEff-1)/(d+1))-1) + cs
	cc := (4 + muEff/d) / (d + 4 + 2*muEff/d)
	c1 := 2 / ((d+1.3)*(d+1.3) + muEff)
	cmu := math.Min(1-c1, 2*(muEff-2+1/muEff)/((d+2)*(d+2)+muEff))
	chiN := math.Sqrt(d) * (1 - 1/(4*d) + 1/(21*d*d))

	cov := mat.NewSymDense(dim, nil)
	for i := 0; i < dim; i++ {
		cov.SetSym(i, i, 1)
	}

	noEffect := p.NoEffect
	if noEffect == 0 {
		noEffect = 5e-3
	}

	c := &CMAES{
		dim:      dim,
		popSize:  popSize,
		mu:       mu,
		weights:  weights,
		muEff:    muEff,
		cc:       cc,
		cs:       cs,
		c1:       c1,
		cmu:      cmu,
		damps:    damps,
		chiN:     chiN,
		mean:     append([]float64(nil), p.Initial...),
		sigma:    p.StepSize,
		cov:      cov,
		ps:       make([]float64, dim),
		pc:       make([]float64, dim),
		rng:      rand.New(rand.NewSource(p.Seed)),
		maxGen:   p.MaxGenerations,
		noEffect: noEffect,
		bestCost: math.Inf(1),
	}
	return c, nil
}

// PopSize returns the effective population size.
func (c *CMAES) PopSize() int { return c.popSize }

// Generation returns the number of completed Tell cycles.
func (c *CMAES) Generation() int { return c.gen }

// ShouldStop reports whether an internal termination criterion fired.
func (c *CMAES) ShouldStop() bool { return c.stopReason != "" }

// StopReason names the fired criterion, empty while running.
func (c *CMAES) StopReason() string { return c.stopReason }

// Best returns the best point seen so far and its cost.
func (c *CMAES) Best() ([]float64, float64) {
	return append([]float64(nil), c.bestX...), c.bestCost
}

// Ask samples the next population, one candidate per row.
func (c *CMAES) Ask() (*mat.Dense, error) {
	if err := c.refreshEigen(); err != nil {
		return nil, err
	}
	pop := mat.NewDense(c.popSize, c.dim, nil)
	z := make([]float64, c.dim)
	y := make([]float64, c.dim)
	for i := 0; i < c.popSize; i++ {
		for j := range z {
			z[j] = c.rng.NormFloat64() * c.eigSqrt[j]
		}
		// y = B * (D .* z)
		for j := 0; j < c.dim; j++ {
			v := 0.0
			for l := 0; l < c.dim; l++ {
				v += c.eigVec.At(j, l) * z[l]
			}
			y[j] = v
		}
		for j := 0; j < c.dim; j++ {
			pop.Set(i, j, c.mean[j]+c.sigma*y[j])
		}
	}
	return pop, nil
}

// Tell updates the search distribution from the costs of the population
// most recently returned by Ask.
func (c *CMAES) Tell(population *mat.Dense, costs []float64) error {
	rows, cols := population.Dims()
	if rows != c.popSize || cols != c.dim {
		return errors.InvalidInput("population shape does not match optimizer state")
	}
	if len(costs) != rows {
		return errors.InvalidInput("cost count does not match population size")
	}
	for _, v := range costs {
		if math.IsNaN(v) {
			c.stopReason = StopNumerical
			return nil
		}
	}

	order := argsort(costs)
	if costs[order[0]] < c.bestCost {
		c.bestCost = costs[order[0]]
		c.bestX = mat.Row(nil, order[0], population)
	}

	// Weighted recombination over the mu best candidates, expressed in the
	// sigma-normalized coordinates y = (x - mean) / sigma.
	oldMean := append([]float64(nil), c.mean...)
	yw := make([]float64, c.dim)
	ys := make([][]float64, c.mu)
	for r := 0; r < c.mu; r++ {
		row := mat.Row(nil, order[r], population)
		y := make([]float64, c.dim)
		for j := range y {
			y[j] = (row[j] - oldMean[j]) / c.sigma
			yw[j] += c.weights[r] * y[j]
		}
		ys[r] = y
	}
	for j := range c.mean {
		c.mean[j] = oldMean[j] + c.sigma*yw[j]
	}

	// Step-size path uses C^(-1/2) * yw.
	cInvSqrtYw, err := c.covInvSqrtMul(yw)
	if err != nil {
		return err
	}
	csFactor := math.Sqrt(c.cs * (2 - c.cs) * c.muEff)
	psNorm := 0.0
	for j := range c.ps {
		c.ps[j] = (1-c.cs)*c.ps[j] + csFactor*cInvSqrtYw[j]
		psNorm += c.ps[j] * c.ps[j]
	}
	psNorm = math.Sqrt(psNorm)

	expected := math.Sqrt(1 - math.Pow(1-c.cs, 2*float64(c.gen+1)))
	hsig := 0.0
	if psNorm/expected/c.chiN < 1.4+2/(float64(c.dim)+1) {
		hsig = 1
	}

	ccFactor := math.Sqrt(c.cc * (2 - c.cc) * c.muEff)
	for j := range c.pc {
		c.pc[j] = (1-c.cc)*c.pc[j] + hsig*ccFactor*yw[j]
	}

	// Rank-one plus rank-mu covariance update.
	oldWeight := 1 - c.c1 - c.cmu + c.c1*(1-hsig)*c.cc*(2-c.cc)
	for i := 0; i < c.dim; i++ {
		for j := i; j < c.dim; j++ {
			v := oldWeight * c.cov.At(i, j)
			v += c.c1 * c.pc[i] * c.pc[j]
			for r := 0; r < c.mu; r++ {
				v += c.cmu * c.weights[r] * ys[r][i] * ys[r][j]
			}
			c.cov.SetSym(i, j, v)
		}
	}
	c.eigCurrent = false

	c.sigma *= math.Exp((c.cs / c.damps) * (psNorm/c.chiN - 1))
	if math.IsNaN(c.sigma) || math.IsInf(c.sigma, 0) {
		c.stopReason = StopNumerical
		return nil
	}

	c.gen++
	c.checkTermination(costs)
	return nil
}

func (c *CMAES) checkTermination(costs []float64) {
	if c.maxGen > 0 && c.gen >= c.maxGen {
		c.stopReason = StopMaxGenerations
		return
	}
	maxSqrt := 0.0
	for _, v := range c.eigSqrt {
		if v > maxSqrt {
			maxSqrt = v
		}
	}
	if c.sigma*maxSqrt < c.noEffect {
		c.stopReason = StopNoEffect
		return
	}
	lo, hi := costs[0], costs[0]
	for _, v := range costs {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi-lo < 1e-14 && c.gen > 1 {
		c.stopReason = StopFlatFitness
	}
}

// refreshEigen recomputes the eigendecomposition of the covariance matrix.
// The dimension here is a PUF stage count, small enough to refresh every
// generation.
func (c *CMAES) refreshEigen() error {
	if c.eigCurrent && c.eigVec != nil {
		return nil
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(c.cov, true); !ok {
		return errors.OptimizerError("covariance eigendecomposition failed", nil)
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	sqrts := make([]float64, c.dim)
	for i, v := range vals {
		if v < 1e-20 {
			v = 1e-20
		}
		sqrts[i] = math.Sqrt(v)
	}
	c.eigVec = &vecs
	c.eigSqrt = sqrts
	c.eigCurrent = true
	return nil
}

// covInvSqrtMul computes C^(-1/2) * v via the eigendecomposition.
func (c *CMAES) covInvSqrtMul(v []float64) ([]float64, error) {
	if err := c.refreshEigen(); err != nil {
		return nil, err
	}
	// t = Bᵀ v, scaled by 1/D, rotated back.
	t := make([]float64, c.dim)
	for i := 0; i < c.dim; i++ {
		s := 0.0
		for j := 0; j < c.dim; j++ {
			s += c.eigVec.At(j, i) * v[j]
		}
		t[i] = s / c.eigSqrt[i]
	}
	out := make([]float64, c.dim)
	for i := 0; i < c.dim; i++ {
		s := 0.0
		for j := 0; j < c.dim; j++ {
			s += c.eigVec.At(i, j) * t[j]
		}
		out[i] = s
	}
	return out, nil
}

func argsort(costs []float64) []int {
	order := make([]int, len(costs))
	for i := range order {
		order[i] = i
	}
	// Insertion sort; populations are small.
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && costs[order[j]] < costs[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}
