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
	"errors"
	"fmt"
	"strings"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/BurntSushi/toml"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultCacheSize is the default number of nodes kept in the read cache.
const DefaultCacheSize = 100_000

// Options configure a StateTrees instance on top of a key/value store.
type Options struct {
	Mode      StorageMode
	Namespace kv.NamespaceOptions
	Compress  bool // < snappy-compress stored nodes
	CacheSize int  // < number of cached nodes, 0 disables the cache

	// Registerer receives the metrics of the instance. If nil, metrics are
	// collected but not exported.
	Registerer prometheus.Registerer
}

func DefaultOptions() Options {
	return Options{
		Mode:      MultiVersion,
		CacheSize: DefaultCacheSize,
	}
}

func (o Options) Validate() error {
	if o.Mode != MultiVersion && o.Mode != SingleVersion {
		return fmt.Errorf("invalid storage mode %v", o.Mode)
	}
	if o.CacheSize < 0 {
		return fmt.Errorf("invalid cache size %d", o.CacheSize)
	}
	return o.Namespace.Validate()
}

// Config is the file representation of a StateTrees setup, selecting both
// the backend and the options.
type Config struct {
	Backend            Backend     `toml:"backend"`
	Directory          string      `toml:"directory"`
	Mode               StorageMode `toml:"mode"`
	Namespace          uint8       `toml:"namespace"`
	ColumnFamilyPrefix string      `toml:"column_family_prefix"`
	Compress           bool        `toml:"compress"`
	CacheSize          int         `toml:"cache_size"`

	Registerer prometheus.Registerer `toml:"-"`
}

func DefaultConfig() Config {
	return Config{
		Backend:   BackendPebble,
		Mode:      MultiVersion,
		CacheSize: DefaultCacheSize,
	}
}

// LoadConfig reads a TOML configuration file. Settings missing in the file
// keep their default values; unknown settings are rejected.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	meta, err := toml.DecodeFile(path, &config)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return Config{}, fmt.Errorf("unknown settings in config %s: %s", path, strings.Join(keys, ", "))
	}
	return config, nil
}

// Options derives the options of a StateTrees instance from this config.
func (c Config) Options() Options {
	return Options{
		Mode: c.Mode,
		Namespace: kv.NamespaceOptions{
			Namespace:          c.Namespace,
			ColumnFamilyPrefix: c.ColumnFamilyPrefix,
		},
		Compress:   c.Compress,
		CacheSize:  c.CacheSize,
		Registerer: c.Registerer,
	}
}

// OpenWithConfig opens the configured backend and a StateTrees instance on
// top of it. Closing the instance closes the backend.
func OpenWithConfig(config Config) (*StateTrees, error) {
	options := config.Options()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	store, err := OpenBackend(config.Backend, config.Directory)
	if err != nil {
		return nil, err
	}
	res, err := Open(store, options)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	res.ownsStore = true
	return res, nil
}
