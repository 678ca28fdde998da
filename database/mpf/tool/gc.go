// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"strconv"

	"github.com/0xsoniclabs/statetrees/common/interrupt"
	"github.com/0xsoniclabs/statetrees/database/mpf/io"
	"github.com/0xsoniclabs/statetrees/state/statetrees"
	"github.com/urfave/cli/v2"
)

var (
	dryRunFlag = cli.BoolFlag{
		Name:  "dry-run",
		Usage: "only count orphaned nodes without deleting them",
	}
	batchSizeFlag = cli.IntFlag{
		Name:  "batch-size",
		Usage: "number of nodes deleted per batch",
		Value: statetrees.DefaultDeleteBatchSize,
	}
)

var Gc = cli.Command{
	Action:    gc,
	Name:      "gc",
	Usage:     "deletes all nodes not reachable from the current root of single-version state trees",
	ArgsUsage: "<db directory>",
	Flags:     withStoreFlags(&dryRunFlag, &batchSizeFlag),
}

var Release = cli.Command{
	Action:    release,
	Name:      "release",
	Usage:     "drops a version of multi-version state trees, deleting nodes no longer referenced",
	ArgsUsage: "<db directory> <version>",
	Flags:     withStoreFlags(),
}

func gc(context *cli.Context) (err error) {
	trees, _, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	logger := io.NewLogTo(context.App.Writer)
	ctx := interrupt.CancelOnInterrupt(context.Context)
	logger.Printf("Collecting orphaned nodes...")
	last := 0
	report, err := trees.CleanupOrphanedNodes(ctx, statetrees.GcOptions{
		DryRun:          context.Bool(dryRunFlag.Name),
		DeleteBatchSize: context.Int(batchSizeFlag.Name),
		Progress: func(deleted int) {
			if deleted-last >= 100_000 {
				logger.Printf("deleted %d nodes", deleted)
				last = deleted
			}
		},
	})
	if err != nil {
		return err
	}
	if report.DryRun {
		logger.Printf("Dry run, %d of %d nodes are orphaned", report.Deleted, report.Total)
	} else {
		logger.Printf("Deleted %d of %d nodes", report.Deleted, report.Total)
	}
	logger.Printf("Reachable nodes: %d, elapsed: %v", report.Marked, report.Elapsed)
	return nil
}

func release(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("expected a directory and a version")
	}
	version, err := strconv.ParseUint(context.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", context.Args().Get(1), err)
	}
	trees, _, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	deleted, err := trees.ReleaseVersion(version)
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "released version %d, deleted %d nodes\n", version, deleted)
	return nil
}
