// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package io

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/0xsoniclabs/statetrees/common/interrupt"
	"github.com/0xsoniclabs/statetrees/database/mpf/trie"
	"github.com/0xsoniclabs/statetrees/state/statetrees"
)

// LoadParams configure a load test. A block is a batch of random inserts
// committed as one root.
type LoadParams struct {
	Blocks          int
	InsertsPerBlock int
	ValueSize       int
	ReportInterval  int    // < blocks between progress reports, 0 for none
	GcInterval      int    // < blocks between GC runs in single-version mode, 0 for none
	KeepVersions    int    // < versions retained in multi-version mode, 0 for all
	Seed            uint64 // < seed of the key and value generator
}

func DefaultLoadParams() LoadParams {
	return LoadParams{
		Blocks:          1000,
		InsertsPerBlock: 100,
		ValueSize:       32,
		ReportInterval:  100,
		GcInterval:      10,
		KeepVersions:    16,
		Seed:            42,
	}
}

// LoadInterval summarizes a reporting interval of a load test.
type LoadInterval struct {
	EndOfBlock int
	Throughput float64 // < inserts per second
	Memory     uint64  // < heap in use
	Deleted    int     // < nodes removed within the interval
}

type LoadResult struct {
	Blocks     int
	Inserts    int64
	Deleted    int
	InsertTime time.Duration
	CommitTime time.Duration
	GcTime     time.Duration
	Intervals  []LoadInterval
	Root       []byte
}

// RunLoad performs random inserts on top of the current root of the given
// state trees, committing every block according to the storage mode. In
// multi-version mode, versions exceeding KeepVersions are released; in
// single-version mode orphaned nodes are collected every GcInterval blocks.
// An interrupted run stops after the current block and reports the blocks
// completed so far.
func RunLoad(ctx context.Context, logger *Log, trees *statetrees.StateTrees, config trie.MpfConfig, params LoadParams) (*LoadResult, error) {
	if params.Blocks <= 0 || params.InsertsPerBlock <= 0 {
		return nil, fmt.Errorf("invalid load parameters, blocks %d, inserts per block %d", params.Blocks, params.InsertsPerBlock)
	}
	root, err := trees.GetCurrentRoot()
	if err != nil {
		return nil, err
	}
	tr := trees.Trie(config, root)
	random := rand.New(rand.NewPCG(params.Seed, params.Seed))
	res := &LoadResult{}

	logger.Printf("Running load test with %d blocks of %d inserts in %v mode...", params.Blocks, params.InsertsPerBlock, trees.StorageMode())
	intervalStart := time.Now()
	intervalDeleted := 0
	for block := range params.Blocks {
		if interrupt.IsCancelled(ctx) {
			logger.Printf("Interrupted after %d blocks", block)
			break
		}

		start := time.Now()
		for range params.InsertsPerBlock {
			key := make([]byte, 32)
			value := make([]byte, params.ValueSize)
			fill(random, key)
			fill(random, value)
			if err := tr.Put(key, value); err != nil {
				return nil, err
			}
		}
		res.InsertTime += time.Since(start)
		res.Inserts += int64(params.InsertsPerBlock)

		start = time.Now()
		deleted, err := commit(ctx, trees, tr.RootHash(), block, params)
		if err != nil {
			return nil, fmt.Errorf("failed to commit block %d: %w", block, err)
		}
		res.Deleted += deleted
		intervalDeleted += deleted
		if trees.StorageMode() == statetrees.SingleVersion && params.GcInterval > 0 && (block+1)%params.GcInterval == 0 {
			res.GcTime += time.Since(start)
		} else {
			res.CommitTime += time.Since(start)
		}
		res.Blocks = block + 1

		if params.ReportInterval > 0 && (block+1)%params.ReportInterval == 0 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			interval := LoadInterval{
				EndOfBlock: block + 1,
				Throughput: float64(params.ReportInterval*params.InsertsPerBlock) / time.Since(intervalStart).Seconds(),
				Memory:     stats.HeapInuse,
				Deleted:    intervalDeleted,
			}
			res.Intervals = append(res.Intervals, interval)
			logger.Printf("Reached block %d, %.2f inserts/s, %d MiB heap, %d nodes deleted", interval.EndOfBlock, interval.Throughput, interval.Memory>>20, interval.Deleted)
			intervalStart = time.Now()
			intervalDeleted = 0
		}
	}
	res.Root = tr.RootHash()
	logger.Printf("Completed %d blocks with %d inserts, root %x", res.Blocks, res.Inserts, res.Root)
	logger.Printf("Insert time: %v, commit time: %v, GC time: %v", res.InsertTime, res.CommitTime, res.GcTime)
	return res, nil
}

// commit records the given root and releases outdated nodes, returning the
// number of deleted nodes.
func commit(ctx context.Context, trees *statetrees.StateTrees, root []byte, block int, params LoadParams) (int, error) {
	if trees.StorageMode() == statetrees.MultiVersion {
		version, err := trees.PutRootWithRefcount(root)
		if err != nil {
			return 0, err
		}
		if params.KeepVersions <= 0 || version < uint64(params.KeepVersions) {
			return 0, nil
		}
		outdated := version - uint64(params.KeepVersions)
		previous, err := trees.RootsIndex().Get(outdated)
		if err != nil || previous == nil {
			return 0, err
		}
		return trees.ReleaseVersion(outdated)
	}

	if err := trees.PutRootSnapshot(root); err != nil {
		return 0, err
	}
	if params.GcInterval <= 0 || (block+1)%params.GcInterval != 0 {
		return 0, nil
	}
	report, err := trees.CleanupOrphanedNodes(ctx, statetrees.GcOptions{})
	if errors.Is(err, interrupt.ErrCanceled) {
		// the root is recorded, collection resumes with the next run
		if report != nil {
			return report.Deleted, nil
		}
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return report.Deleted, nil
}

func fill(random *rand.Rand, data []byte) {
	for i := range data {
		data[i] = byte(random.Uint32())
	}
}
