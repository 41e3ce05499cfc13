package learner

// stagnationRule tracks the full history of best-per-generation costs and
// fires once the trailing window goes flat: after at least
// StagnationMinGenerations generations, a spread (max - min) of the last
// window costs below delta declares stagnation. This guards against wasting
// generations on a converged-but-noisy objective landscape.
type stagnationRule struct {
	window  int
	delta   float64
	history []float64
}

func newStagnationRule(window int, delta float64) *stagnationRule {
	return &stagnationRule{window: window, delta: delta}
}

// observe appends one generation's best cost and reports whether the rule
// fires.
func (s *stagnationRule) observe(best float64) bool {
	s.history = append(s.history, best)
	if len(s.history) < StagnationMinGenerations {
		return false
	}
	start := len(s.history) - s.window
	if start < 0 {
		start = 0
	}
	lo, hi := s.history[start], s.history[start]
	for _, v := range s.history[start+1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi-lo < s.delta
}
