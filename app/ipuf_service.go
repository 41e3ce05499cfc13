package app

import (
	"log"
	"math"

	"gonum.org/v1/gonum/mat"

	"gopuf/adapters/simulation"
	"gopuf/domain/core"
	"gopuf/domain/crp"
)

// unreliableMeanLimit classifies a challenge as unreliable when the mean of
// its repeated {+1,-1} responses lies inside (-0.5, 0.5).
const unreliableMeanLimit = 0.5

// reliablePadFactor pads the mined unreliable challenges with this many
// times as many reliable ones.
const reliablePadFactor = 4

// IPUFService builds training sets aimed at the lower XOR arbiter layer of
// an Interpose PUF. The lower layer cannot be measured directly; instead,
// challenges that are unreliable on the whole IPUF but become reliable once
// the two middle bits are flipped betray lower-layer boundary behavior.
// The set is assembled in the widened (n+1)-stage challenge space with the
// interpose bit fixed to both +1 and -1, doubling every measurement.
type IPUFService struct {
	logger *log.Logger
}

// NewIPUFService creates the service.
func NewIPUFService(logger *log.Logger) *IPUFService {
	if logger == nil {
		logger = log.Default()
	}
	return &IPUFService{logger: logger}
}

// BuildLowerTrainingSet mines a lower-layer training set from repeated
// measurements of the whole Interpose PUF.
func (s *IPUFService) BuildLowerTrainingSet(puf *simulation.InterposePUF, num, reps int, seed int64) (*crp.TrainingSet, error) {
	ts, err := crp.New(puf, puf.N(), num, reps, seed)
	if err != nil {
		return nil, err
	}

	// Challenges unreliable on the whole IPUF...
	unrelChals, unrelResps := filterByReliability(ts, false)
	if len(unrelChals) == 0 {
		return nil, core.ErrDegenerateReliability
	}

	// ...that turn reliable once the two middle bits are flipped point at
	// the lower layer.
	flipped := make([][]int8, len(unrelChals))
	mid := puf.N() / 2
	for i, c := range unrelChals {
		f := append([]int8(nil), c...)
		f[mid-1] *= -1
		f[mid] *= -1
		flipped[i] = f
	}
	flippedResps, err := puf.EvalRepeated(flipped, reps)
	if err != nil {
		return nil, err
	}
	candChals := make([][]int8, 0, len(unrelChals))
	candResps := make([][]float64, 0, len(unrelChals))
	for i := range unrelChals {
		if !isUnreliable(flippedResps.RawRowView(i)) {
			candChals = append(candChals, unrelChals[i])
			candResps = append(candResps, unrelResps[i])
		}
	}
	s.logger.Printf("[ipuf] %d unreliable challenges, %d reliable after middle-bit flip",
		len(unrelChals), len(candChals))

	// Pad with reliable whole-IPUF challenges so the reliability signal has
	// contrast on both sides.
	want := len(candChals) * reliablePadFactor
	relChals, relResps, err := s.collectReliable(puf, num, reps, seed+1, want)
	if err != nil {
		return nil, err
	}
	candChals = append(candChals, relChals...)
	candResps = append(candResps, relResps...)

	// Widen into the lower layer's challenge space with the interpose bit
	// pinned to both values; responses repeat for either pin.
	widened := make([][]int8, 0, 2*len(candChals))
	for _, c := range candChals {
		widened = append(widened, puf.Interpose(c, 1))
	}
	for _, c := range candChals {
		widened = append(widened, puf.Interpose(c, -1))
	}
	responses := mat.NewDense(2*len(candResps), reps, nil)
	for i, r := range candResps {
		responses.SetRow(i, r)
		responses.SetRow(i+len(candResps), r)
	}
	return crp.FromData(widened, responses, puf)
}

// collectReliable keeps sampling fresh challenge batches until want
// reliable ones are gathered.
func (s *IPUFService) collectReliable(puf *simulation.InterposePUF, batch, reps int, seed int64, want int) ([][]int8, [][]float64, error) {
	chals := make([][]int8, 0, want)
	resps := make([][]float64, 0, want)
	for round := 0; len(chals) < want; round++ {
		ts, err := crp.New(puf, puf.N(), batch, reps, seed+int64(round))
		if err != nil {
			return nil, nil, err
		}
		relChals, relResps := filterByReliability(ts, true)
		for i := range relChals {
			if len(chals) >= want {
				break
			}
			chals = append(chals, relChals[i])
			resps = append(resps, relResps[i])
		}
	}
	return chals, resps, nil
}

func filterByReliability(ts *crp.TrainingSet, wantReliable bool) ([][]int8, [][]float64) {
	chals := make([][]int8, 0, ts.Num)
	resps := make([][]float64, 0, ts.Num)
	for i := 0; i < ts.Num; i++ {
		row := ts.Responses.RawRowView(i)
		if isUnreliable(row) != wantReliable {
			chals = append(chals, ts.Challenges[i])
			resps = append(resps, append([]float64(nil), row...))
		}
	}
	return chals, resps
}

func isUnreliable(row []float64) bool {
	sum := 0.0
	for _, v := range row {
		sum += v // {+1,-1} measurements
	}
	mean := sum / float64(len(row))
	return math.Abs(mean) < unreliableMeanLimit
}
