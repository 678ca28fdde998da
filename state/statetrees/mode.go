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
	"fmt"
	"strings"
)

// StorageMode defines the lifecycle policy of persisted nodes.
type StorageMode int

const (
	// MultiVersion retains every committed root. Nodes are reference counted
	// and removed once no retained version refers to them.
	MultiVersion StorageMode = iota
	// SingleVersion retains the current root only. Nodes unreachable from it
	// are removed by mark and sweep garbage collection.
	SingleVersion
)

func (m StorageMode) String() string {
	switch m {
	case MultiVersion:
		return "MULTI_VERSION"
	case SingleVersion:
		return "SINGLE_VERSION"
	}
	return fmt.Sprintf("StorageMode(%d)", int(m))
}

// ParseStorageMode accepts the names produced by String, case insensitive,
// as well as the short forms "multi" and "single".
func ParseStorageMode(s string) (StorageMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MULTI_VERSION", "MULTI":
		return MultiVersion, nil
	case "SINGLE_VERSION", "SINGLE":
		return SingleVersion, nil
	}
	return 0, fmt.Errorf("unknown storage mode %q", s)
}

func (m StorageMode) MarshalText() ([]byte, error) {
	if m != MultiVersion && m != SingleVersion {
		return nil, fmt.Errorf("invalid storage mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *StorageMode) UnmarshalText(text []byte) error {
	mode, err := ParseStorageMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
