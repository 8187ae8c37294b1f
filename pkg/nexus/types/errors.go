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

package types

import "errors"

// --- Immediate rejection errors (zero submissions performed) ---

var (
	// ErrNoDevice indicates a read request found no usable replica in the read set.
	ErrNoDevice = errors.New("no usable replica")

	// ErrInvalidArgument indicates a request the nexus permanently rejects (administrative
	// passthrough commands). Callers must not blindly retry.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotSupported indicates an operation type this layer does not implement. Callers must not
	// blindly retry. Device implementations also report it from completions when a replica refused
	// an operation it was never expected to support; such refusals do not trigger retirement.
	ErrNotSupported = errors.New("operation not supported")
)

// --- Transient and device errors ---

var (
	// ErrResourceExhausted indicates the device layer rejected a submission for lack of resources.
	// It is transient: the caller should retry the entire request later.
	//
	// Callers should use `errors.Is(err, ErrResourceExhausted)` to detect this class.
	ErrResourceExhausted = errors.New("device resources exhausted")

	// ErrDeviceFailed indicates a genuine device fault, either at submission or completion time.
	// A completion carrying it causes the reporting replica to be retired.
	ErrDeviceFailed = errors.New("device failed")
)

// --- Engine errors ---

var (
	// ErrInternalInconsistency indicates the disposition engine observed a counter combination that
	// cannot occur under its invariants. It is logged, the request finalizes Failed, and tests
	// treat any occurrence as a defect.
	ErrInternalInconsistency = errors.New("internal disposition inconsistency")

	// ErrEngineNotRunning indicates an operation was attempted against an engine that is not
	// running or is shutting down.
	ErrEngineNotRunning = errors.New("nexus engine is not running")
)

// --- Snapshot boundary errors ---

var (
	// ErrNoHandle indicates no open replica handle was available to create a snapshot from.
	ErrNoHandle = errors.New("failed to get handle")
)
