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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/0xsoniclabs/statetrees/common/interrupt"
	"github.com/0xsoniclabs/statetrees/database/mpf/trie"
	"golang.org/x/sync/errgroup"
)

// Entry is a key expected to be present with the given value, or to be absent
// if the value is nil.
type Entry struct {
	Key   []byte
	Value []byte
}

// ReadEntries parses one entry per line. A line consists of a key and a
// value separated by a tab. Lines without a tab name keys expected to be
// absent. Empty lines are skipped.
func ReadEntries(in io.Reader) ([]Entry, error) {
	var res []Entry
	scanner := bufio.NewScanner(in)
	scanner.Buffer(nil, 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		key, value, found := bytes.Cut(line, []byte{'\t'})
		entry := Entry{Key: bytes.Clone(key)}
		if found {
			entry.Value = append([]byte{}, value...)
		}
		res = append(res, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read entries: %w", err)
	}
	return res, nil
}

// VerifyReport lists the outcome of a VerifyAll run.
type VerifyReport struct {
	Verified int
	Failed   []Entry
}

// VerifyAll creates and checks the proof of every given entry against the
// current root of the trie using the given number of workers. Entries with a
// nil value are checked for exclusion. Proofs that do not verify are listed
// in the report; storage and decoding failures abort the run.
func VerifyAll(ctx context.Context, logger *Log, tr *trie.Trie, entries []Entry, workers int) (*VerifyReport, error) {
	root := tr.RootHash()
	logger.Printf("Verifying %d proofs against root %x using %d workers...", len(entries), root, workers)
	progress := logger.NewProgressTracker("verified %d proofs, %.2f proofs/s", 100_000)

	var (
		mutex  sync.Mutex
		report VerifyReport
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(workers, 1))
	for _, entry := range entries {
		if interrupt.IsCancelled(groupCtx) {
			break
		}
		group.Go(func() error {
			if interrupt.IsCancelled(groupCtx) {
				return interrupt.ErrCanceled
			}
			wire, err := tr.ProofWire(entry.Key)
			if err != nil {
				return fmt.Errorf("failed to create proof for key %x: %w", entry.Key, err)
			}
			ok, err := tr.VerifyProofWire(root, entry.Key, entry.Value, entry.Value != nil, wire)
			if err != nil {
				return fmt.Errorf("failed to verify proof for key %x: %w", entry.Key, err)
			}
			mutex.Lock()
			defer mutex.Unlock()
			if ok {
				report.Verified++
			} else {
				report.Failed = append(report.Failed, entry)
			}
			progress.Step(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if interrupt.IsCancelled(ctx) {
		return nil, interrupt.ErrCanceled
	}
	logger.Printf("Verified: %d, failed: %d", report.Verified, len(report.Failed))
	return &report, nil
}
