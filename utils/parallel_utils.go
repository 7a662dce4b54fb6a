// Package utils carries the intra-rank parallel helpers shared by the
// exchange and fix-up engines: an even work split over patch lists and a
// worker-group runner. Cross-rank parallelism lives in package transport.
package utils

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	if maxIndex > 0 && ParallelDegree > maxIndex {
		ParallelDegree = maxIndex
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	k1, k2 := pm.GetBucketRange(bn)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / pm.ParallelDegree
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

// DefaultWorkers is the worker count used when a caller passes zero.
func DefaultWorkers() int { return runtime.GOMAXPROCS(0) }

// RunParallel splits [0, maxIndex) over nWorkers goroutines and calls work
// with each bucket's half-open range. Workers own disjoint index ranges, so
// bodies writing only through their own indices need no locking. A single
// worker or a trivial range runs inline.
func RunParallel(nWorkers, maxIndex int, work func(kMin, kMax int)) {
	if maxIndex <= 0 {
		return
	}
	if nWorkers <= 0 {
		nWorkers = DefaultWorkers()
	}
	if nWorkers == 1 || maxIndex == 1 {
		work(0, maxIndex)
		return
	}
	var (
		pm = NewPartitionMap(nWorkers, maxIndex)
		eg errgroup.Group
	)
	for bn := 0; bn < pm.ParallelDegree; bn++ {
		kMin, kMax := pm.GetBucketRange(bn)
		eg.Go(func() error {
			work(kMin, kMax)
			return nil
		})
	}
	_ = eg.Wait() // work funcs return no errors; Wait only joins
}
