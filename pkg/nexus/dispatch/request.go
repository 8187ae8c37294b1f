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

import (
	"fmt"
	"time"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"
)

// requestContext tracks one admitted request across its fanned-out child operations.
//
// Every field except done is owned by the admitting worker and is only ever touched on that
// worker's task loop. The caller blocks on done; the close happens-before the caller's reads of
// outcome and err.
type requestContext struct {
	id  string
	req *types.Request

	// core is the index of the admitting worker. Completions are asserted against it.
	core int
	// token keys this context in the admitting worker's registry. It is the only identity that
	// crosses the device callback boundary.
	token uint64
	start time.Time

	// inFlight counts outstanding child operations. It is never negative and is decremented
	// exactly once per completion.
	inFlight int
	// numOK counts child operations that reported success.
	numOK int
	// status is the interim aggregate, worsened by submission rejections and failed completions.
	status types.IOStatus

	outcome   types.IOOutcome
	err       error
	done      chan struct{}
	finalized bool
}

func newRequestContext(req *types.Request, core int, start time.Time) *requestContext {
	return &requestContext{
		id:    req.ID,
		req:   req,
		core:  core,
		start: start,
		done:  make(chan struct{}),
	}
}

// finalize records the terminal outcome and releases the caller. Finalizing twice is an invariant
// violation: a request is destroyed exactly once, so a second terminal action means the
// disposition engine double-fired.
func (rc *requestContext) finalize(outcome types.IOOutcome, err error) {
	if rc.finalized {
		panic(fmt.Sprintf("request %q finalized twice (second outcome %s)", rc.id, outcome))
	}
	rc.finalized = true
	rc.outcome = outcome
	rc.err = err
	close(rc.done)
}
