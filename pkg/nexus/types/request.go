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

import "strconv"

// IOType classifies an inbound request for routing purposes.
type IOType int

const (
	// IOTypeRead is routed to exactly one replica, chosen by the configured reader picker.
	IOTypeRead IOType = iota
	// IOTypeWrite is fanned out to every writable replica.
	IOTypeWrite
	// IOTypeWriteZeroes is fanned out to every writable replica.
	IOTypeWriteZeroes
	// IOTypeUnmap is fanned out to every writable replica.
	IOTypeUnmap
	// IOTypeReset is fanned out to every writable replica.
	IOTypeReset
	// IOTypeFlush completes trivially at this layer; replicas persist writes on completion.
	IOTypeFlush
	// IOTypeAdmin covers administrative passthrough commands, which this layer rejects.
	IOTypeAdmin
)

// String returns a human-readable representation of the IOType.
func (t IOType) String() string {
	switch t {
	case IOTypeRead:
		return "Read"
	case IOTypeWrite:
		return "Write"
	case IOTypeWriteZeroes:
		return "WriteZeroes"
	case IOTypeUnmap:
		return "Unmap"
	case IOTypeReset:
		return "Reset"
	case IOTypeFlush:
		return "Flush"
	case IOTypeAdmin:
		return "Admin"
	default:
		return "UnknownIOType(" + strconv.Itoa(int(t)) + ")"
	}
}

// IsFanOut reports whether requests of this type are submitted to every writable replica.
func (t IOType) IsFanOut() bool {
	switch t {
	case IOTypeWrite, IOTypeWriteZeroes, IOTypeUnmap, IOTypeReset:
		return true
	default:
		return false
	}
}

// Request is one logical I/O against a nexus. Offsets and lengths are expressed in blocks; the
// nexus does not interpret buffer contents.
//
// Buffers remain owned by the device layer for as long as any child operation dispatched for this
// request is in flight. Callers must not reuse them until the request reaches a terminal outcome.
type Request struct {
	// ID identifies the request in logs and traces. The engine assigns one when left empty.
	ID string
	// Type selects the routing strategy (single-reader, fan-out, or immediate).
	Type IOType
	// Offset is the starting block of the operation.
	Offset uint64
	// NumBlocks is the length of the operation in blocks.
	NumBlocks uint64
	// Buffers is the scatter/gather list for data-carrying operations (Read, Write). It is nil for
	// WriteZeroes, Unmap, Reset, and Flush.
	Buffers [][]byte
}
