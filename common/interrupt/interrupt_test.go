// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interrupt

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	require.False(t, IsCancelled(ctx))
	cancel()
	require.True(t, IsCancelled(ctx))
	require.False(t, IsCancelled(nil))
}

func TestCancelOnInterrupt_ParentCancellationIsForwarded(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx := CancelOnInterrupt(parent)
	require.False(t, IsCancelled(ctx))
	cancel()
	require.True(t, IsCancelled(ctx))
}

func TestCancelOnInterrupt_SignalCancelsContext(t *testing.T) {
	ctx := CancelOnInterrupt(context.Background())
	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled")
	}
}
