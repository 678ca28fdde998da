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
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/0xsoniclabs/statetrees/common/diagnostics"
	"github.com/0xsoniclabs/statetrees/database/mpf/trie"
	"github.com/0xsoniclabs/statetrees/state/statetrees"
	"github.com/pbnjay/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML file with the state trees configuration, flags override its settings",
	}
	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: fmt.Sprintf("key/value store backend, one of %v", statetrees.GetAllBackends()),
		Value: string(statetrees.BackendPebble),
	}
	modeFlag = cli.StringFlag{
		Name:  "mode",
		Usage: "storage mode, multi or single",
		Value: "multi",
	}
	namespaceFlag = cli.UintFlag{
		Name:  "namespace",
		Usage: "namespace of the state trees within the store, 0-254",
	}
	columnFamilyPrefixFlag = cli.StringFlag{
		Name:  "column-family-prefix",
		Usage: "prefix of the column family names",
	}
	compressFlag = cli.BoolFlag{
		Name:  "compress",
		Usage: "snappy-compress stored nodes",
	}
	cacheSizeFlag = cli.IntFlag{
		Name:  "cache-size",
		Usage: "number of nodes kept in the read cache, 0 disables the cache",
		Value: defaultCacheSize(),
	}
	hashFlag = cli.StringFlag{
		Name:  "hash",
		Usage: fmt.Sprintf("hashing configuration of the trie, one of %v", configurationNames()),
		Value: trie.MpfBlake2b.Name,
	}
	hexFlag = cli.BoolFlag{
		Name:  "hex",
		Usage: "interpret keys and values as hex strings",
	}
	versionFlag = cli.Uint64Flag{
		Name:  "version",
		Usage: "version of the root to use in multi-version mode, the latest if not set",
	}
)

// storeFlags are the flags of all commands operating on a state trees
// directory.
var storeFlags = []cli.Flag{
	&configFlag,
	&backendFlag,
	&modeFlag,
	&namespaceFlag,
	&columnFamilyPrefixFlag,
	&compressFlag,
	&cacheSizeFlag,
	&hashFlag,
}

func withStoreFlags(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, storeFlags...), flags...)
}

// defaultCacheSize uses about 1/16 of the physical memory for cached nodes,
// assuming 256 bytes per node.
func defaultCacheSize() int {
	size := memory.TotalMemory() / 16 / 256
	return int(min(max(size, 10_000), 10_000_000))
}

func configurationNames() []string {
	var res []string
	for _, config := range trie.GetAllConfigurations() {
		res = append(res, config.Name)
	}
	return res
}

// loadConfig resolves the configuration of the state trees located in the
// given directory from the config file and the command line flags.
func loadConfig(context *cli.Context, directory string) (statetrees.Config, error) {
	config := statetrees.DefaultConfig()
	config.CacheSize = context.Int(cacheSizeFlag.Name)
	if path := context.String(configFlag.Name); path != "" {
		var err error
		if config, err = statetrees.LoadConfig(path); err != nil {
			return config, err
		}
	}
	if directory != "" {
		config.Directory = directory
	}
	if context.IsSet(backendFlag.Name) || context.String(configFlag.Name) == "" {
		config.Backend = statetrees.Backend(context.String(backendFlag.Name))
	}
	if context.IsSet(modeFlag.Name) || context.String(configFlag.Name) == "" {
		mode, err := statetrees.ParseStorageMode(context.String(modeFlag.Name))
		if err != nil {
			return config, err
		}
		config.Mode = mode
	}
	if context.IsSet(namespaceFlag.Name) {
		namespace := context.Uint(namespaceFlag.Name)
		if namespace > 0xFF {
			return config, fmt.Errorf("invalid namespace %d", namespace)
		}
		config.Namespace = uint8(namespace)
	}
	if context.IsSet(columnFamilyPrefixFlag.Name) {
		config.ColumnFamilyPrefix = context.String(columnFamilyPrefixFlag.Name)
	}
	if context.IsSet(compressFlag.Name) {
		config.Compress = context.Bool(compressFlag.Name)
	}
	if context.IsSet(cacheSizeFlag.Name) {
		config.CacheSize = context.Int(cacheSizeFlag.Name)
	}
	if diagnostics.IsServerEnabled(context.Int(diagnosticsFlag.Name)) {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Directory == "" && config.Backend != statetrees.BackendMemory {
		return config, fmt.Errorf("missing state directory parameter")
	}
	return config, nil
}

// openTrees opens the state trees located in the directory given as the
// first argument.
func openTrees(context *cli.Context) (*statetrees.StateTrees, trie.MpfConfig, error) {
	hashConfig, found := trie.GetConfigByName(context.String(hashFlag.Name))
	if !found {
		return nil, trie.MpfConfig{}, fmt.Errorf("unknown hash configuration %q, supported: %v", context.String(hashFlag.Name), configurationNames())
	}
	config, err := loadConfig(context, context.Args().Get(0))
	if err != nil {
		return nil, trie.MpfConfig{}, err
	}
	trees, err := statetrees.OpenWithConfig(config)
	if err != nil {
		return nil, trie.MpfConfig{}, err
	}
	return trees, hashConfig, nil
}

// selectTrie returns a trie positioned at the root selected by the version
// flag, or the current root.
func selectTrie(context *cli.Context, trees *statetrees.StateTrees, config trie.MpfConfig) (*trie.Trie, error) {
	if !context.IsSet(versionFlag.Name) {
		root, err := trees.GetCurrentRoot()
		if err != nil {
			return nil, err
		}
		return trees.Trie(config, root), nil
	}
	version := context.Uint64(versionFlag.Name)
	root, err := trees.RootsIndex().Get(version)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, fmt.Errorf("%w: %d", statetrees.ErrUnknownVersion, version)
	}
	return trees.Trie(config, root), nil
}

// commitRoot records the given root according to the storage mode.
func commitRoot(context *cli.Context, trees *statetrees.StateTrees, root []byte) error {
	if trees.StorageMode() == statetrees.SingleVersion {
		if err := trees.PutRootSnapshot(root); err != nil {
			return err
		}
		fmt.Fprintf(context.App.Writer, "root: %x\n", root)
		return nil
	}
	version, err := trees.PutRootWithRefcount(root)
	if err != nil {
		return err
	}
	fmt.Fprintf(context.App.Writer, "version %d, root: %x\n", version, root)
	return nil
}

// parseBytes converts a key or value argument, decoding it if the hex flag
// is set.
func parseBytes(context *cli.Context, arg string) ([]byte, error) {
	if !context.Bool(hexFlag.Name) {
		return []byte(arg), nil
	}
	return parseHex(arg)
}

func parseHex(arg string) ([]byte, error) {
	res, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(arg, "0x"), "0X"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex string %q: %w", arg, err)
	}
	return res, nil
}
