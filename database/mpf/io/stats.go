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
	"fmt"

	"github.com/0xsoniclabs/statetrees/common/interrupt"
	"github.com/0xsoniclabs/statetrees/database/mpf/trie"
)

// TrieStats summarizes the content of a trie.
type TrieStats struct {
	Root       []byte
	Entries    uint64
	ValueBytes uint64
	Largest    uint64 // < size of the largest value
}

// CollectStats visits all entries of the given trie and reports aggregated
// statistics to the log.
func CollectStats(ctx context.Context, logger *Log, tr *trie.Trie) (*TrieStats, error) {
	logger.Printf("Collecting trie statistics...")
	progress := logger.NewProgressTracker("visited %d entries, %.2f entries/s", 1_000_000)
	visitor := statsCollectingVisitor{
		ctx:      ctx,
		progress: progress,
		stats:    TrieStats{Root: tr.RootHash()},
	}
	if err := tr.Entries(visitor.Visit); err != nil {
		return nil, fmt.Errorf("failed visiting content: %w", err)
	}

	stats := &visitor.stats
	logger.Printf("Root: %x", stats.Root)
	logger.Printf("Entries count: %d", stats.Entries)
	logger.Printf("Total value size: %d bytes", stats.ValueBytes)
	logger.Printf("Largest value: %d bytes", stats.Largest)
	return stats, nil
}

type statsCollectingVisitor struct {
	ctx      context.Context
	progress *ProgressLogger
	stats    TrieStats
}

func (v *statsCollectingVisitor) Visit(_, value []byte) error {
	if interrupt.IsCancelled(v.ctx) {
		return interrupt.ErrCanceled
	}
	size := uint64(len(value))
	v.stats.Entries++
	v.stats.ValueBytes += size
	v.stats.Largest = max(v.stats.Largest, size)
	v.progress.Step(1)
	return nil
}
