package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCircularFloat(t *testing.T) {
	assert := assert.New(t)

	cf := NewCircularFloat(6)
	assert.Equal(6, cf.BufSize)
	assert.Equal(0, cf.Count)

	cf.Add(1)
	cf.Add(2)
	cf.Add(3)
	cf.Add(4)
	cf.Add(5)
	assert.Equal(6, cf.BufSize)
	assert.Equal(5, cf.Count)
	assert.Nil(cf.FirstHalf())
	assert.Nil(cf.SecondHalf())

	cf.Add(6)
	assert.Equal(6, cf.BufSize)
	assert.Equal(6, cf.Count)

	exp := 0.0
	for iter := cf.FirstHalf(); iter.Next(); {
		val := iter.Value()
		exp++
		assert.Equal(exp, val)
	}
	for iter := cf.SecondHalf(); iter.Next(); {
		val := iter.Value()
		exp++
		assert.Equal(exp, val)
	}

	// 1 2 3 4 5 6 add 8 add 8 => 8 8 3 4 5 6
	// So first=3,4,5 second=6,8,8
	cf.Add(8)
	cf.Add(8)
	expVals := []float64{3, 4, 5, 6, 8, 8}
	idx := 0
	for iter := cf.FirstHalf(); iter.Next(); {
		val := iter.Value()
		assert.Equal(expVals[idx], val)
		idx++
	}
	for iter := cf.SecondHalf(); iter.Next(); {
		val := iter.Value()
		assert.Equal(expVals[idx], val)
		idx++
	}
}

func TestHalvesAgree(t *testing.T) {
	assert := assert.New(t)

	cf := NewCircularFloat(8)

	// Not full yet - never agrees
	for i := 0; i < 7; i++ {
		cf.Add(1.0)
		assert.False(cf.HalvesAgree(0.5))
	}

	// Full of identical values - agrees at any tolerance
	cf.Add(1.0)
	assert.True(cf.HalvesAgree(1e-12))

	// A trend spanning the window should NOT agree at a tight tolerance
	cf = NewCircularFloat(8)
	for i := 0; i < 8; i++ {
		cf.Add(float64(i) * 10)
	}
	assert.False(cf.HalvesAgree(1e-6))
	assert.True(cf.HalvesAgree(2.0))
}
