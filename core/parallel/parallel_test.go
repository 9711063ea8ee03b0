package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, n := range []int{1, 7, 1000, 10007} {
		hits := make([]int32, n)
		Parallelize(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			assert.Equalf(t, int32(1), h, "n=%d index=%d", n, i)
		}
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(int, int) { called = true })
	ParallelizeWithThreshold(0, 10, func(int, int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWithThresholdRunsInlineBelowThreshold(t *testing.T) {
	var calls int
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestMap(t *testing.T) {
	n := DefaultThreshold*2 + 3
	src := make([]float64, n)
	for i := range src {
		src[i] = float64(i)
	}
	dst := make([]float64, n)
	Map(dst, src, func(v float64) float64 { return v * 2 })
	for i := range dst {
		assert.Equal(t, float64(2*i), dst[i])
	}
}
