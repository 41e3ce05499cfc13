package learner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStagnationFiresOnFlatHistory(t *testing.T) {
	rule := newStagnationRule(10, 1e-3)
	for i := 0; i < StagnationMinGenerations-1; i++ {
		assert.False(t, rule.observe(0.42), "observation %d fired before the minimum generation count", i)
	}
	// The trailing window has been flat all along; the rule may only fire
	// once the minimum history length is reached.
	assert.True(t, rule.observe(0.42))
}

func TestStagnationIgnoresProgressingHistory(t *testing.T) {
	rule := newStagnationRule(10, 0.5)
	cost := 1000.0
	for i := 0; i < 2*StagnationMinGenerations; i++ {
		assert.False(t, rule.observe(cost), "observation %d fired while costs were still falling", i)
		cost -= 1
	}
}

func TestStagnationFiresOnceWindowFlattens(t *testing.T) {
	rule := newStagnationRule(5, 1e-3)
	fired := false
	cost := 1.0
	for i := 0; i < StagnationMinGenerations+20 && !fired; i++ {
		if i < StagnationMinGenerations+4 {
			cost *= 0.9
		}
		// After the decay stops, the trailing window flattens.
		fired = rule.observe(cost)
	}
	assert.True(t, fired)
}
