/*
Copyright 2026 The OpenEBS Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging provides the shared logr construction and verbosity conventions used across the data plane.
package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels used with `logger.V(...)` throughout the codebase.
const (
	// DEFAULT is the default verbosity for routine operational messages.
	DEFAULT = 2
	// VERBOSE captures messages useful when observing a single request's lifecycle.
	VERBOSE = 3
	// DEBUG captures high-frequency decision points (per-submission, per-completion).
	DEBUG = 4
	// TRACE captures everything, including per-task loop events.
	TRACE = 5
)

// NewLogger builds a logr.Logger on top of zap. The verbosity argument is the maximum enabled V-level;
// messages logged at a higher V-level are dropped. Development mode switches to the human-oriented
// console encoder.
func NewLogger(verbosity int, development bool) logr.Logger {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	// logr V-levels map onto negative zap levels.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))
	zl, err := cfg.Build(zap.AddCaller())
	if err != nil {
		// The static configurations above cannot fail to build.
		panic(err)
	}
	return zapr.NewLogger(zl)
}

// NewTestLogger creates a development-mode logger with all verbosity levels enabled, writing to stderr.
func NewTestLogger() logr.Logger {
	zl := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		zapcore.Level(-TRACE),
	), zap.AddCaller())
	return zapr.NewLogger(zl)
}
