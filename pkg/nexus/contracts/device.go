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

package contracts

import "context"

// Completion reports the terminal result of one accepted child operation.
//
// Exactly one Completion is delivered per accepted submission. Device implementations may deliver
// it from any goroutine; callbacks must never block.
type Completion struct {
	// Child is the name of the replica whose operation completed.
	Child string

	// Token is the parent request token supplied at submission time, round-tripped verbatim.
	// It is the only request identity that crosses the device boundary.
	Token uint64

	// Success reports whether the operation succeeded on the device.
	Success bool

	// Err classifies the failure when Success is false. Implementations should report
	// types.ErrNotSupported (or types.ErrInvalidArgument) for operations the replica refused as
	// unsupported or malformed; any other error is treated as a genuine device fault.
	Err error

	// Release frees the per-operation resources (descriptors, borrowed buffers) held by the device
	// layer for this operation. The engine invokes it exactly once, immediately after the
	// completion has been processed. It may be nil when the operation holds no releasable state.
	Release func()
}

// CompletionCallback receives the completion of one child operation.
type CompletionCallback func(Completion)

// DeviceHandle is an open handle to one replica's block device. All submissions are fire-and-forget:
// a nil return means the operation was accepted and its callback will be invoked exactly once; a
// non-nil return means nothing was submitted and no callback will fire.
//
// Submission rejections are classified with the sentinel errors in the types package:
// types.ErrResourceExhausted for transient exhaustion, types.ErrInvalidArgument for malformed
// operations, anything else for device failure.
type DeviceHandle interface {
	// Name returns the replica device name.
	Name() string

	// SubmitRead reads NumBlocks starting at offset into the scatter/gather buffers.
	SubmitRead(offset, numBlocks uint64, buffers [][]byte, cb CompletionCallback, token uint64) error

	// SubmitWrite writes the scatter/gather buffers over NumBlocks starting at offset.
	SubmitWrite(offset, numBlocks uint64, buffers [][]byte, cb CompletionCallback, token uint64) error

	// SubmitWriteZeroes zeroes NumBlocks starting at offset.
	SubmitWriteZeroes(offset, numBlocks uint64, cb CompletionCallback, token uint64) error

	// SubmitUnmap deallocates NumBlocks starting at offset.
	SubmitUnmap(offset, numBlocks uint64, cb CompletionCallback, token uint64) error

	// SubmitReset resets the device.
	SubmitReset(cb CompletionCallback, token uint64) error

	// CreateSnapshot creates a point-in-time snapshot on the replica and returns the snapshot
	// timestamp used to derive the snapshot name.
	CreateSnapshot(ctx context.Context) (int64, error)

	// Close releases the handle and the underlying device resource. Submissions after Close are
	// rejected.
	Close(ctx context.Context) error
}

// DeviceOpener opens replica devices by URI. It is the factory boundary between control-plane
// wiring and the data plane.
type DeviceOpener interface {
	Open(ctx context.Context, uri string) (DeviceHandle, error)
}
