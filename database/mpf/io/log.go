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
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Log is a logger prefixing every message with the time elapsed since its
// creation.
type Log struct {
	logger *log.Logger
	start  time.Time
}

func NewLog() *Log {
	return NewLogTo(os.Stdout)
}

// NewLogTo creates a log writing to the given writer.
func NewLogTo(out io.Writer) *Log {
	return &Log{
		logger: log.New(out, "", 0),
		start:  time.Now(),
	}
}

func (l *Log) Print(msg string) {
	now := time.Now()
	t := uint64(now.Sub(l.start).Seconds())
	l.logger.Printf("%s [t=%4d:%02d] - %s\n", now.Format("15:04:05"), t/60, t%60, msg)
}

func (l *Log) Printf(format string, args ...any) {
	l.Print(fmt.Sprintf(format, args...))
}

// NewProgressTracker creates a progress logger printing the given format,
// receiving the number of steps and the rate of the last window, every
// window steps.
func (l *Log) NewProgressTracker(format string, window int) *ProgressLogger {
	now := time.Now()
	return &ProgressLogger{
		format: format,
		window: window,
		log:    l,
		start:  now,
		last:   now,
	}
}

type ProgressLogger struct {
	format  string
	window  int
	log     *Log
	counter int
	start   time.Time
	last    time.Time
}

// Step registers the given number of steps, printing the progress whenever
// a window is completed.
func (l *ProgressLogger) Step(steps int) {
	if l.window <= 0 {
		l.counter += steps
		return
	}
	for range steps {
		l.counter++
		if l.counter%l.window == 0 {
			now := time.Now()
			rate := float64(l.window) / now.Sub(l.last).Seconds()
			l.log.Printf(l.format, l.counter, rate)
			l.last = now
		}
	}
}

// Count returns the number of registered steps.
func (l *ProgressLogger) Count() int {
	return l.counter
}

// Rate returns the average number of steps per second since the creation of
// the tracker.
func (l *ProgressLogger) Rate() float64 {
	elapsed := time.Since(l.start).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(l.counter) / elapsed
}
