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

	"github.com/urfave/cli/v2"
)

var Get = cli.Command{
	Action:    get,
	Name:      "get",
	Usage:     "prints the value stored for a key",
	ArgsUsage: "<db directory> <key>",
	Flags:     withStoreFlags(&hexFlag, &versionFlag),
}

var Put = cli.Command{
	Action:    put,
	Name:      "put",
	Usage:     "stores a value for a key and records the resulting root",
	ArgsUsage: "<db directory> <key> <value>",
	Flags:     withStoreFlags(&hexFlag),
}

var Delete = cli.Command{
	Action:    del,
	Name:      "delete",
	Usage:     "removes a key and records the resulting root",
	ArgsUsage: "<db directory> <key>",
	Flags:     withStoreFlags(&hexFlag),
}

func get(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("expected a directory and a key")
	}
	key, err := parseBytes(context, context.Args().Get(1))
	if err != nil {
		return err
	}
	trees, config, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	tr, err := selectTrie(context, trees, config)
	if err != nil {
		return err
	}
	value, found, err := tr.Get(key)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("key %q not found", context.Args().Get(1))
	}
	if context.Bool(hexFlag.Name) {
		fmt.Fprintf(context.App.Writer, "%x\n", value)
	} else {
		fmt.Fprintf(context.App.Writer, "%s\n", value)
	}
	return nil
}

func put(context *cli.Context) (err error) {
	if context.Args().Len() != 3 {
		return fmt.Errorf("expected a directory, a key and a value")
	}
	key, err := parseBytes(context, context.Args().Get(1))
	if err != nil {
		return err
	}
	value, err := parseBytes(context, context.Args().Get(2))
	if err != nil {
		return err
	}
	trees, config, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	root, err := trees.GetCurrentRoot()
	if err != nil {
		return err
	}
	tr := trees.Trie(config, root)
	if err := tr.Put(key, value); err != nil {
		return err
	}
	return commitRoot(context, trees, tr.RootHash())
}

func del(context *cli.Context) (err error) {
	if context.Args().Len() != 2 {
		return fmt.Errorf("expected a directory and a key")
	}
	key, err := parseBytes(context, context.Args().Get(1))
	if err != nil {
		return err
	}
	trees, config, err := openTrees(context)
	if err != nil {
		return err
	}
	defer func() { err = closeTrees(trees, err) }()

	root, err := trees.GetCurrentRoot()
	if err != nil {
		return err
	}
	tr := trees.Trie(config, root)
	if err := tr.Delete(key); err != nil {
		return err
	}
	if tr.RootHash() == nil {
		return fmt.Errorf("the trie is empty after the deletion, empty roots can not be recorded")
	}
	return commitRoot(context, trees, tr.RootHash())
}
