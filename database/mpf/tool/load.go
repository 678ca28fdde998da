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
	"io/fs"
	"path/filepath"

	"github.com/0xsoniclabs/statetrees/common/interrupt"
	"github.com/0xsoniclabs/statetrees/database/mpf/io"
	"github.com/urfave/cli/v2"
)

var (
	numBlocksFlag = cli.IntFlag{
		Name:  "num-blocks",
		Usage: "number of blocks to be inserted",
		Value: io.DefaultLoadParams().Blocks,
	}
	insertsPerBlockFlag = cli.IntFlag{
		Name:  "inserts-per-block",
		Usage: "number of random entries inserted per block",
		Value: io.DefaultLoadParams().InsertsPerBlock,
	}
	valueSizeFlag = cli.IntFlag{
		Name:  "value-size",
		Usage: "size of the inserted values in bytes",
		Value: io.DefaultLoadParams().ValueSize,
	}
	reportPeriodFlag = cli.IntFlag{
		Name:  "report-period",
		Usage: "number of blocks between progress reports",
		Value: io.DefaultLoadParams().ReportInterval,
	}
	gcPeriodFlag = cli.IntFlag{
		Name:  "gc-period",
		Usage: "number of blocks between garbage collection runs in single-version mode, 0 disables collection",
		Value: io.DefaultLoadParams().GcInterval,
	}
	keepVersionsFlag = cli.IntFlag{
		Name:  "keep-versions",
		Usage: "number of versions retained in multi-version mode, 0 retains all",
		Value: io.DefaultLoadParams().KeepVersions,
	}
	seedFlag = cli.Uint64Flag{
		Name:  "seed",
		Usage: "seed of the random key and value generator",
		Value: io.DefaultLoadParams().Seed,
	}
)

var Load = cli.Command{
	Action:    load,
	Name:      "load",
	Usage:     "runs a load test inserting random entries block by block",
	ArgsUsage: "<db directory>",
	Flags: withStoreFlags(
		&numBlocksFlag,
		&insertsPerBlockFlag,
		&valueSizeFlag,
		&reportPeriodFlag,
		&gcPeriodFlag,
		&keepVersionsFlag,
		&seedFlag,
	),
}

func load(context *cli.Context) (err error) {
	trees, config, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	params := io.LoadParams{
		Blocks:          context.Int(numBlocksFlag.Name),
		InsertsPerBlock: context.Int(insertsPerBlockFlag.Name),
		ValueSize:       context.Int(valueSizeFlag.Name),
		ReportInterval:  context.Int(reportPeriodFlag.Name),
		GcInterval:      context.Int(gcPeriodFlag.Name),
		KeepVersions:    context.Int(keepVersionsFlag.Name),
		Seed:            context.Uint64(seedFlag.Name),
	}
	logger := io.NewLogTo(context.App.Writer)
	ctx := interrupt.CancelOnInterrupt(context.Context)
	if _, err := io.RunLoad(ctx, logger, trees, config, params); err != nil {
		return err
	}
	if directory := context.Args().Get(0); directory != "" {
		logger.Printf("Disk usage: %d MiB", getDirectorySize(directory)>>20)
	}
	return nil
}

// getDirectorySize computes the size of all files in the given directory in
// bytes. Unreadable entries are skipped.
func getDirectorySize(directory string) int64 {
	var sum int64 = 0
	filepath.Walk(directory, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			sum += info.Size()
		}
		return nil
	})
	return sum
}

