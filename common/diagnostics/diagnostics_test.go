// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package diagnostics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestAddPerformanceDiagnosticsAction(t *testing.T) {
	dir := t.TempDir()
	called := false
	action := func(ctx *cli.Context) error {
		// profile file created
		require.FileExists(t, path.Join(dir, "cpu.profile"))
		require.FileExists(t, path.Join(dir, "tracer.out"))

		// server started
		var statusCode int
		var counter int
		const loops = 10
		var lastHttpGetErr error
		wait := 100 * time.Millisecond
		for statusCode != http.StatusOK && counter < loops {
			resp, err := http.Get("http://localhost:6060/debug/pprof/")
			lastHttpGetErr = err
			if resp != nil {
				statusCode = resp.StatusCode
				resp.Body.Close()
			}
			counter++
			time.Sleep(wait)
			wait *= 2
		}

		require.NoError(t, lastHttpGetErr)
		require.Equal(t, http.StatusOK, statusCode)

		called = true
		return nil
	}

	diagnosticsFlag := cli.IntFlag{Name: "diagnostics"}
	cpuProfileFlag := cli.StringFlag{Name: "cpu-profile"}
	traceFlag := cli.StringFlag{Name: "trace"}

	app := &cli.App{
		Action: AddPerformanceDiagnosticsAction(action, &diagnosticsFlag, &cpuProfileFlag, &traceFlag),
		Flags:  []cli.Flag{&diagnosticsFlag, &cpuProfileFlag, &traceFlag},
	}

	set := []string{"cmd", "--diagnostics", "6060", "--cpu-profile", path.Join(dir, "cpu.profile"), "--trace", path.Join(dir, "tracer.out")}
	require.NoError(t, app.Run(set))
	require.True(t, called, "action should be called")
}

func TestAddPerformanceDiagnosticsAction_InvalidProfileTarget(t *testing.T) {
	diagnosticsFlag := cli.IntFlag{Name: "diagnostics"}
	cpuProfileFlag := cli.StringFlag{Name: "cpu-profile"}
	traceFlag := cli.StringFlag{Name: "trace"}
	action := func(*cli.Context) error {
		t.Fatal("action must not be called")
		return nil
	}
	app := &cli.App{
		Action: AddPerformanceDiagnosticsAction(action, &diagnosticsFlag, &cpuProfileFlag, &traceFlag),
		Flags:  []cli.Flag{&diagnosticsFlag, &cpuProfileFlag, &traceFlag},
	}
	err := app.Run([]string{"cmd", "--cpu-profile", "/path/does/not/exist/cpu.profile"})
	require.ErrorContains(t, err, "could not create CPU profile")
}

func TestNewHandler_ServesMetrics(t *testing.T) {
	require := require.New(t)
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "test"})
	registry.MustRegister(counter)
	counter.Add(3)

	server := httptest.NewServer(NewHandler(registry))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(err)
	defer resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(err)
	require.Contains(string(body), "test_counter 3")

	resp, err = http.Get(server.URL + "/debug/pprof/")
	require.NoError(err)
	resp.Body.Close()
	require.Equal(http.StatusOK, resp.StatusCode)
}

func TestIsServerEnabled(t *testing.T) {
	require.False(t, IsServerEnabled(0))
	require.False(t, IsServerEnabled(-1))
	require.False(t, IsServerEnabled(1<<16))
	require.True(t, IsServerEnabled(6060))
}
