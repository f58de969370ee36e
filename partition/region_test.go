package partition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionSplit(t *testing.T) {
	assert := assert.New(t)

	r := NewRegion([]float64{0, -1}, []float64{4, 1})
	left, right := r.Split(0, 1.5)

	// The halves tile the parent exactly: only the cut dimension changes,
	// and the shared boundary is the threshold.
	assert.Equal(r.Lo, left.Lo)
	assert.Equal(r.Hi, right.Hi)
	assert.Equal(1.5, left.Hi[0])
	assert.Equal(1.5, right.Lo[0])
	assert.Equal(r.Hi[1], left.Hi[1])
	assert.Equal(r.Lo[1], right.Lo[1])

	// Parent is untouched
	assert.Equal([]float64{0, -1}, r.Lo)
	assert.Equal([]float64{4, 1}, r.Hi)
}

func TestRegionContains(t *testing.T) {
	assert := assert.New(t)

	r := NewRegion([]float64{0, 0}, []float64{1, 2})
	assert.True(r.Contains([]float64{0.5, 1}))
	assert.True(r.Contains([]float64{0, 0}))
	assert.True(r.Contains([]float64{1, 2}))
	assert.False(r.Contains([]float64{1.01, 1}))
	assert.False(r.Contains([]float64{0.5, -0.01}))
}

func TestRegionLogVolume(t *testing.T) {
	assert := assert.New(t)

	r := NewRegion([]float64{0, 0}, []float64{2, 3})
	assert.InDelta(math.Log(6), r.LogVolume(), 1e-12)

	// A collapsed side is floored, not zeroed
	flat := NewRegion([]float64{0, 1}, []float64{2, 1})
	assert.False(math.IsInf(flat.LogVolume(), -1))
}
