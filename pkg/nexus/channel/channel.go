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

// Package channel provides the per-core cached view of a nexus's usable replicas.
//
// A Channel is owned by exactly one dispatch worker and is never shared: workers rebuild their
// Channel wholesale when the topology changes (a replica faulted, was added, or was removed) and
// never mutate one incrementally. A replica already holding an in-flight operation is unaffected
// by a rebuild; only future submissions see the new view.
package channel

import (
	"strconv"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/child"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts"
)

// Event identifies why channels are being reconfigured. Events are broadcast to every worker and
// awaited by the triggering task alone.
type Event int

const (
	// EventChildFault excludes a freshly faulted replica from all channel views.
	EventChildFault Event = iota
	// EventChildAdd includes a newly attached replica.
	EventChildAdd
	// EventChildRemove excludes an administratively removed replica.
	EventChildRemove
	// EventPause acknowledges an admission pause; workers stop dispatching new requests for the
	// nexus once the pause broadcast returns.
	EventPause
	// EventResume re-enables admission; workers re-dispatch requests deferred while paused.
	EventResume
)

// String returns a human-readable representation of the Event.
func (e Event) String() string {
	switch e {
	case EventChildFault:
		return "ChildFault"
	case EventChildAdd:
		return "ChildAdd"
	case EventChildRemove:
		return "ChildRemove"
	case EventPause:
		return "Pause"
	case EventResume:
		return "Resume"
	default:
		return "UnknownEvent(" + strconv.Itoa(int(e)) + ")"
	}
}

// Target pairs a replica name with its device handle inside a channel view. The name identifies
// the failing replica when a completion reports an error.
type Target struct {
	Child  string
	Handle contracts.DeviceHandle
}

// Channel is one worker's view of the currently usable replicas, split into the read set and the
// write set.
type Channel struct {
	// Readers lists the replicas eligible to serve reads: Open children only.
	Readers []Target
	// Writers lists the replicas receiving fan-out operations: Open children plus Init children
	// still converging onto the nexus contents.
	Writers []Target
}

// Rebuild constructs a fresh Channel from the nexus's current children. Faulted and Closed
// children are excluded from both sets; Init children write but do not read.
func Rebuild(children []*child.Child) *Channel {
	ch := &Channel{
		Readers: make([]Target, 0, len(children)),
		Writers: make([]Target, 0, len(children)),
	}
	for _, c := range children {
		t := Target{Child: c.Name(), Handle: c.Handle()}
		switch c.State().Kind {
		case child.StateOpen:
			ch.Readers = append(ch.Readers, t)
			ch.Writers = append(ch.Writers, t)
		case child.StateInit:
			ch.Writers = append(ch.Writers, t)
		}
	}
	return ch
}

// ReaderPicker selects which replica serves a read. Implementations are instantiated per worker
// and accessed only from that worker's loop, so they need no internal synchronization.
type ReaderPicker interface {
	// Name returns the picker's registered name.
	Name() string
	// Pick returns the index of the chosen reader. ok is false when readers is empty.
	Pick(readers []Target) (idx int, ok bool)
}
