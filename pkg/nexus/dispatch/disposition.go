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

package dispatch

import "github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"

// action is the disposition decided after processing one child completion.
type action int

const (
	// actionWait means child operations are still outstanding; do nothing.
	actionWait action = iota
	// actionCompleteSuccess finalizes the request successfully.
	actionCompleteSuccess
	// actionCompleteFailed finalizes the request as failed; every child operation failed.
	actionCompleteFailed
	// actionCompleteNoMemory finalizes the request as transiently out of resources; the caller
	// must retry the whole request.
	actionCompleteNoMemory
	// actionRetireContinue retires the failing child and keeps waiting: other child operations
	// are still in flight, so the aggregate status is reset to Pending and they decide the
	// terminal outcome.
	actionRetireContinue
	// actionRetireSuccess retires the failing child and finalizes the request successfully: at
	// least one replica holds the data.
	actionRetireSuccess
	// actionInconsistent flags a counter combination that cannot occur under the engine's
	// invariants. It is logged and finalized as failed.
	actionInconsistent
)

// String returns a human-readable representation of the action.
func (a action) String() string {
	switch a {
	case actionWait:
		return "Wait"
	case actionCompleteSuccess:
		return "CompleteSuccess"
	case actionCompleteFailed:
		return "CompleteFailed"
	case actionCompleteNoMemory:
		return "CompleteNoMemory"
	case actionRetireContinue:
		return "RetireContinue"
	case actionRetireSuccess:
		return "RetireSuccess"
	case actionInconsistent:
		return "Inconsistent"
	default:
		return "UnknownAction"
	}
}

// disposition maps a request's completion counters to the action to take. It is a pure function
// of (status, inFlight, numOK), deliberately order-independent: no matter how a request's child
// completions interleave, the same counter state yields the same decision.
func disposition(status types.IOStatus, inFlight, numOK int) action {
	switch {
	// All child operations completed successfully.
	case status == types.IOStatusPending && inFlight == 0:
		return actionCompleteSuccess
	// Some completed, none failed so far.
	case status == types.IOStatusPending:
		return actionWait
	// A child failed while others are still in flight: retire it and keep waiting.
	case status == types.IOStatusFailed && inFlight > 0:
		return actionRetireContinue
	// The last completion failed but earlier ones succeeded: retire the failing child and
	// report success, at least one replica holds the data.
	case status == types.IOStatusFailed && numOK > 0:
		return actionRetireSuccess
	// Every child operation failed.
	case status == types.IOStatusFailed:
		return actionCompleteFailed
	// A submission hit resource exhaustion; all partially submitted operations have now
	// completed, so the exhaustion can finally be surfaced for a full retry.
	case status == types.IOStatusNoMemory && inFlight == 0:
		return actionCompleteNoMemory
	default:
		return actionInconsistent
	}
}
