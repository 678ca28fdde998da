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
	"errors"
	"fmt"

	"github.com/0xsoniclabs/statetrees/common/interrupt"
	"github.com/0xsoniclabs/statetrees/database/mpf/io"
	"github.com/0xsoniclabs/statetrees/state/statetrees"
	"github.com/urfave/cli/v2"
)

var Info = cli.Command{
	Action:    info,
	Name:      "info",
	Usage:     "lists the recorded roots and content statistics of state trees",
	ArgsUsage: "<db directory>",
	Flags:     withStoreFlags(&versionFlag),
}

func info(context *cli.Context) (err error) {
	trees, config, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	out := context.App.Writer
	fmt.Fprintf(out, "Storage mode: %v\n", trees.StorageMode())
	if trees.StorageMode() == statetrees.MultiVersion {
		versions, err := trees.RootsIndex().ListAll()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Retained versions: %d\n", len(versions))
		for _, version := range versions {
			fmt.Fprintf(out, "\t%d: %x\n", version.Version, version.Root)
		}
		next, err := trees.RootsIndex().NextVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Next version: %d\n", next)
	}

	tr, err := selectTrie(context, trees, config)
	if err != nil {
		return err
	}
	ctx := interrupt.CancelOnInterrupt(context.Context)
	_, err = io.CollectStats(ctx, io.NewLogTo(out), tr)
	return err
}

// closeTrees closes the given state trees, combining a failure with the
// given error.
func closeTrees(trees *statetrees.StateTrees, err error) error {
	return errors.Join(err, trees.Close())
}
