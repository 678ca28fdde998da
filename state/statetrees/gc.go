// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package statetrees

import (
	"context"
	"time"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/0xsoniclabs/statetrees/common/interrupt"
)

// DefaultDeleteBatchSize is the number of deletions applied per batch by
// the garbage collector.
const DefaultDeleteBatchSize = 1000

type GcOptions struct {
	// DryRun counts orphaned nodes without deleting them.
	DryRun bool
	// DeleteBatchSize is the number of deletions per batch, defaulting to
	// DefaultDeleteBatchSize.
	DeleteBatchSize int
	// Progress, if set, is called with the total number of deleted nodes
	// after every applied batch.
	Progress func(deleted int)
}

// GcReport summarizes a garbage collection run. In dry runs, Deleted is the
// number of nodes that would have been deleted.
type GcReport struct {
	Marked  int // < nodes reachable from the current root
	Deleted int
	Total   int // < nodes in the namespace before the run
	Elapsed time.Duration
	DryRun  bool
}

// CleanupOrphanedNodes deletes all nodes of the namespace that are not
// reachable from the current root. If there is no current root, all nodes are
// orphaned. Nodes are never deleted if marking fails. Cancelling the context
// stops the sweep between batches, keeping all batches applied so far. Only
// valid in single-version mode.
func (s *StateTrees) CleanupOrphanedNodes(ctx context.Context, options GcOptions) (*GcReport, error) {
	if err := s.check(SingleVersion, "CleanupOrphanedNodes"); err != nil {
		return nil, err
	}
	batchSize := options.DeleteBatchSize
	if batchSize <= 0 {
		batchSize = DefaultDeleteBatchSize
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	start := time.Now()
	report := &GcReport{DryRun: options.DryRun}
	root, err := s.roots.Get(0)
	if err != nil {
		return nil, err
	}
	marked, err := s.mark(ctx, root)
	if err != nil {
		return nil, err
	}
	report.Marked = len(marked)

	var batch kv.Batch
	var pending [][]byte
	flush := func() error {
		if batch == nil || batch.Len() == 0 {
			return nil
		}
		if err := batch.Write(); err != nil {
			return err
		}
		s.evict(pending)
		s.metrics.nodesDeleted.Add(float64(len(pending)))
		report.Deleted += len(pending)
		pending = pending[:0]
		batch = nil
		if options.Progress != nil {
			options.Progress(report.Deleted)
		}
		return nil
	}

	err = s.nodeTable.Iterate(nil, func(hash, _ []byte) error {
		report.Total++
		if _, found := marked[string(hash)]; found {
			return nil
		}
		if options.DryRun {
			report.Deleted++
			return nil
		}
		if batch == nil {
			if interrupt.IsCancelled(ctx) {
				return interrupt.ErrCanceled
			}
			batch = s.nodeTable.NewBatch()
		}
		if err := batch.Delete(hash); err != nil {
			return err
		}
		pending = append(pending, hash)
		if batch.Len() >= batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	report.Elapsed = time.Since(start)
	if err != nil {
		return report, err
	}
	s.metrics.gcRuns.Inc()
	s.metrics.gcMarked.Set(float64(report.Marked))
	s.metrics.gcDuration.Observe(report.Elapsed.Seconds())
	return report, nil
}

// mark collects the hashes of all nodes reachable from the given root.
func (s *StateTrees) mark(ctx context.Context, root []byte) (map[string]struct{}, error) {
	marked := map[string]struct{}{}
	if root == nil {
		return marked, nil
	}
	stack := [][]byte{root}
	for len(stack) > 0 {
		if interrupt.IsCancelled(ctx) {
			return nil, interrupt.ErrCanceled
		}
		hash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, found := marked[string(hash)]; found {
			continue
		}
		children, err := s.children(hash)
		if err != nil {
			return nil, err
		}
		marked[string(hash)] = struct{}{}
		stack = append(stack, children...)
	}
	return marked, nil
}
