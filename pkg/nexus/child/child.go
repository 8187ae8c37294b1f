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

// Package child models one physical replica of a nexus: its open device handle and its lifecycle
// state.
//
// The state word is the single piece of data shared across cores. Every mutation goes through an
// atomic compare-and-exchange, which makes concurrent retirement attempts for the same child
// naturally serialize: exactly one caller observes the Open → Faulted edge.
package child

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts"
)

// StateKind is the lifecycle phase of a child.
type StateKind uint8

const (
	// StateInit marks a child that is attached but not yet in sync. Init children receive writes
	// (to converge) but never serve reads.
	StateInit StateKind = iota
	// StateOpen marks a fully usable child.
	StateOpen
	// StateFaulted marks a child taken out of service. A faulted child is never resurrected.
	StateFaulted
	// StateClosed marks a child removed by a control operation.
	StateClosed
)

// String returns a human-readable representation of the StateKind.
func (k StateKind) String() string {
	switch k {
	case StateInit:
		return "Init"
	case StateOpen:
		return "Open"
	case StateFaulted:
		return "Faulted"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("UnknownStateKind(%d)", uint8(k))
	}
}

// Reason qualifies a Faulted state.
type Reason uint8

const (
	// ReasonNone is used for every non-faulted state.
	ReasonNone Reason = iota
	// ReasonIOError marks a child faulted because a device operation failed.
	ReasonIOError
	// ReasonCantOpen marks a child whose device could not be opened.
	ReasonCantOpen
)

// String returns a human-readable representation of the Reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "None"
	case ReasonIOError:
		return "IoError"
	case ReasonCantOpen:
		return "CantOpen"
	default:
		return fmt.Sprintf("UnknownReason(%d)", uint8(r))
	}
}

// State is a child's lifecycle state, tagged with a fault reason when Kind is StateFaulted.
type State struct {
	Kind   StateKind
	Reason Reason
}

// String returns a human-readable representation of the State.
func (s State) String() string {
	if s.Kind == StateFaulted {
		return fmt.Sprintf("Faulted(%s)", s.Reason)
	}
	return s.Kind.String()
}

// Open is the usable state.
var Open = State{Kind: StateOpen}

// Init is the attached-but-syncing state.
var Init = State{Kind: StateInit}

// Closed is the removed-by-control-operation state.
var Closed = State{Kind: StateClosed}

// Faulted returns the faulted state tagged with the given reason.
func Faulted(r Reason) State {
	return State{Kind: StateFaulted, Reason: r}
}

// The state fits one atomic word: kind in the low byte, reason in the next.
func (s State) pack() uint32 {
	return uint32(s.Kind) | uint32(s.Reason)<<8
}

func unpack(v uint32) State {
	return State{Kind: StateKind(v & 0xff), Reason: Reason(v >> 8 & 0xff)}
}

// Child is one physical replica managed by a nexus. The nexus owns the Child exclusively;
// per-core channels hold non-owning references to its handle.
type Child struct {
	name   string
	handle contracts.DeviceHandle
	state  atomic.Uint32
}

// New creates a Child in StateInit wrapping the given open device handle.
func New(name string, handle contracts.DeviceHandle) *Child {
	c := &Child{name: name, handle: handle}
	c.state.Store(Init.pack())
	return c
}

// Name returns the child's replica name.
func (c *Child) Name() string { return c.name }

// Handle returns the child's device handle.
func (c *Child) Handle() contracts.DeviceHandle { return c.handle }

// State returns the child's current lifecycle state.
func (c *Child) State() State {
	return unpack(c.state.Load())
}

// CompareAndSwap atomically transitions the state from `from` to `to` and returns the state
// observed before the attempt. The transition took effect iff the returned state equals `from`.
//
// This is the sole serialization point for retirement: two concurrent completions failing on the
// same child both attempt Open → Faulted, and exactly one observes Open.
func (c *Child) CompareAndSwap(from, to State) State {
	for {
		cur := c.state.Load()
		if cur != from.pack() {
			return unpack(cur)
		}
		if c.state.CompareAndSwap(cur, to.pack()) {
			return from
		}
	}
}

// SetOpen marks an Init child usable. It reports whether the transition took effect.
func (c *Child) SetOpen() bool {
	return c.CompareAndSwap(Init, Open) == Init
}

// Destroy releases the child's underlying device resource. The lifecycle state is left untouched:
// a faulted child stays excluded from channel views regardless of the destroy outcome.
func (c *Child) Destroy(ctx context.Context) error {
	return c.handle.Close(ctx)
}
