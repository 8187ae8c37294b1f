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

// IOStatus is the interim aggregate status of a request while its child operations are in flight.
// It only ever worsens (Pending → Failed or Pending → NoMemory), with the single documented
// exception of a request held logically Pending while a failing child is retired but other child
// operations remain outstanding.
type IOStatus int

const (
	// IOStatusPending means no child operation has reported a failure yet.
	IOStatusPending IOStatus = iota
	// IOStatusSuccess is the terminal success status.
	IOStatusSuccess
	// IOStatusFailed means at least one child operation failed (completion or submission).
	IOStatusFailed
	// IOStatusNoMemory means a submission was rejected for resource exhaustion; the whole request
	// must be retried by the caller once outstanding child operations complete.
	IOStatusNoMemory
)

// String returns a human-readable representation of the IOStatus.
func (s IOStatus) String() string {
	switch s {
	case IOStatusPending:
		return "Pending"
	case IOStatusSuccess:
		return "Success"
	case IOStatusFailed:
		return "Failed"
	case IOStatusNoMemory:
		return "NoMemory"
	default:
		return "UnknownIOStatus(" + strconv.Itoa(int(s)) + ")"
	}
}

// IOOutcome is the terminal disposition of one logical request as reported to the caller.
//
// It is designed as a low-cardinality label suitable for metrics; the error returned alongside it
// carries the fine-grained cause.
type IOOutcome int

const (
	// IOOutcomeNotYetFinalized is the zero value; a request never reports it as terminal.
	IOOutcomeNotYetFinalized IOOutcome = iota

	// IOOutcomeSuccess indicates the request succeeded. A request can succeed even when a single
	// replica failed its child operation, provided at least one replica succeeded; the failing
	// replica is retired out of band.
	IOOutcomeSuccess

	// IOOutcomeFailed indicates the request failed terminally. The associated error wraps
	// ErrDeviceFailed, or ErrInternalInconsistency when the disposition engine fell through to its
	// defensive branch.
	IOOutcomeFailed

	// IOOutcomeNoMemory indicates transient resource exhaustion during submission. The caller
	// should retry the entire request later. The associated error wraps ErrResourceExhausted.
	IOOutcomeNoMemory

	// IOOutcomeNoDevice indicates a read found no usable replica. Zero submissions were performed.
	// The associated error wraps ErrNoDevice.
	IOOutcomeNoDevice

	// IOOutcomeInvalidArgument indicates a permanently rejected request (administrative
	// passthrough). The associated error wraps ErrInvalidArgument.
	IOOutcomeInvalidArgument

	// IOOutcomeNotSupported indicates an unrecognized operation type. The associated error wraps
	// ErrNotSupported.
	IOOutcomeNotSupported
)

// String returns a human-readable representation of the IOOutcome.
func (o IOOutcome) String() string {
	switch o {
	case IOOutcomeNotYetFinalized:
		return "NotYetFinalized"
	case IOOutcomeSuccess:
		return "Success"
	case IOOutcomeFailed:
		return "Failed"
	case IOOutcomeNoMemory:
		return "NoMemory"
	case IOOutcomeNoDevice:
		return "NoDevice"
	case IOOutcomeInvalidArgument:
		return "InvalidArgument"
	case IOOutcomeNotSupported:
		return "NotSupported"
	default:
		return "UnknownOutcome(" + strconv.Itoa(int(o)) + ")"
	}
}
