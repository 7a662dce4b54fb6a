package utils

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionMapCoversRangeExactlyOnce(t *testing.T) {
	cases := [][2]int{
		{1, 1}, {1, 100}, {3, 10}, {4, 4}, {7, 100}, {8, 3},
	}
	for _, tc := range cases {
		var (
			degree, maxIndex = tc[0], tc[1]
			pm               = NewPartitionMap(degree, maxIndex)
			next             = 0
		)
		for bn := 0; bn < pm.ParallelDegree; bn++ {
			kMin, kMax := pm.GetBucketRange(bn)
			require.Equal(t, next, kMin, "degree %d, maxIndex %d, bucket %d", degree, maxIndex, bn)
			require.LessOrEqual(t, kMin, kMax)
			next = kMax
		}
		require.Equal(t, maxIndex, next, "degree %d, maxIndex %d", degree, maxIndex)
	}
}

func TestPartitionMapImbalanceAtMostOne(t *testing.T) {
	pm := NewPartitionMap(7, 100)
	var min, max = pm.GetBucketDimension(0), pm.GetBucketDimension(0)
	for bn := 1; bn < pm.ParallelDegree; bn++ {
		d := pm.GetBucketDimension(bn)
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}
	assert.LessOrEqual(t, max-min, 1)
}

func TestPartitionMapClampsDegree(t *testing.T) {
	pm := NewPartitionMap(16, 3)
	assert.Equal(t, 3, pm.ParallelDegree, "never more buckets than items")
	pm = NewPartitionMap(0, 3)
	assert.Equal(t, 1, pm.ParallelDegree)
}

func TestRunParallelVisitsEveryIndexOnce(t *testing.T) {
	const maxIndex = 137
	for _, nWorkers := range []int{0, 1, 4, maxIndex + 5} {
		visits := make([]int32, maxIndex)
		RunParallel(nWorkers, maxIndex, func(kMin, kMax int) {
			for k := kMin; k < kMax; k++ {
				atomic.AddInt32(&visits[k], 1)
			}
		})
		for k, v := range visits {
			require.EqualValues(t, 1, v, "nWorkers %d, index %d", nWorkers, k)
		}
	}
}

func TestRunParallelEmptyRange(t *testing.T) {
	called := false
	RunParallel(4, 0, func(kMin, kMax int) { called = true })
	assert.False(t, called)
}
