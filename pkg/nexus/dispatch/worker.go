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
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	logutil "github.com/CoCreate-app/CoCreate-openebs/pkg/common/logging"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/metrics"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"
)

// task is one unit of work executed on a worker's loop.
type task func()

// worker is a single-goroutine, run-to-completion dispatch loop. It exclusively owns its channel
// view, its picker, and the contexts of every request it admitted; none of its fields (other than
// the task queue itself) are ever touched from outside its loop.
type worker struct {
	id     int
	engine *Engine
	logger logr.Logger

	tasks chan task

	// view is this worker's private snapshot of the usable replicas, rebuilt wholesale on
	// topology events.
	view   *channel.Channel
	picker channel.ReaderPicker

	// requests maps token to request context for every request admitted on this worker that has
	// not yet finalized. Only the token crosses the device callback boundary.
	requests  map[uint64]*requestContext
	nextToken uint64

	// deferred holds requests admitted while the nexus was paused, re-dispatched on resume.
	deferred []*requestContext

	draining bool
}

func newWorker(id int, e *Engine, pk channel.ReaderPicker, queueCapacity int) *worker {
	return &worker{
		id:       id,
		engine:   e,
		logger:   e.logger.WithName(fmt.Sprintf("worker-%d", id)),
		tasks:    make(chan task, queueCapacity),
		view:     channel.Rebuild(e.nexus.Children()),
		picker:   pk,
		requests: make(map[uint64]*requestContext),
	}
}

// run executes tasks until the context is cancelled, then drains the queue once and abandons
// whatever is still pending.
func (w *worker) run(ctx context.Context) {
	defer w.shutdown()
	// Topology may have changed between engine construction and start.
	w.view = channel.Rebuild(w.engine.nexus.Children())
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-w.tasks:
			t()
		}
	}
}

func (w *worker) shutdown() {
	w.draining = true
	for {
		select {
		case t := <-w.tasks:
			t()
		default:
			w.sweep()
			return
		}
	}
}

// sweep finalizes every request still tracked by this worker. It runs exactly once, after the
// final queue drain.
func (w *worker) sweep() {
	pending := make([]*requestContext, 0, len(w.requests))
	for _, rc := range w.requests {
		pending = append(pending, rc)
	}
	for _, rc := range pending {
		w.finalizeAndForget(rc, types.IOOutcomeFailed,
			fmt.Errorf("%w: request %q abandoned at shutdown", types.ErrEngineNotRunning, rc.id))
	}
	w.deferred = nil
	if len(pending) > 0 {
		w.logger.V(logutil.DEFAULT).Info("Abandoned pending requests at shutdown", "count", len(pending))
	}
}

// post enqueues a task without ever blocking the caller. Device completion callbacks must not
// block, so when the queue is momentarily full the send is finished from a fresh goroutine.
func (w *worker) post(t task) {
	select {
	case w.tasks <- t:
		return
	default:
	}
	go func() {
		select {
		case w.tasks <- t:
		case <-w.engine.stopped:
		}
	}()
}

// completion is the callback handed to every device submission. It trampolines the completion
// onto the admitting worker's loop; counters and disposition are never touched off-loop.
func (w *worker) completion(c contracts.Completion) {
	w.post(func() { w.onCompletion(c) })
}

// admit registers a newly accepted request on this worker and dispatches it, unless the nexus is
// paused, in which case the request is parked until resume.
func (w *worker) admit(rc *requestContext) {
	if w.draining {
		rc.finalize(types.IOOutcomeFailed,
			fmt.Errorf("%w: request %q rejected", types.ErrEngineNotRunning, rc.id))
		return
	}
	w.nextToken++
	rc.token = w.nextToken
	w.requests[rc.token] = rc

	if w.engine.nexus.IsPaused() {
		w.logger.V(logutil.TRACE).Info("Nexus paused, deferring request", "request", rc.id)
		w.deferred = append(w.deferred, rc)
		return
	}
	w.dispatch(rc)
}

// dispatch routes a request by operation type.
func (w *worker) dispatch(rc *requestContext) {
	switch req := rc.req; {
	case req.Type == types.IOTypeRead:
		w.submitRead(rc)
	case req.Type.IsFanOut():
		w.submitAll(rc)
	case req.Type == types.IOTypeFlush:
		// Replicas persist writes at completion time; a flush has nothing to forward.
		w.finalizeAndForget(rc, types.IOOutcomeSuccess, nil)
	case req.Type == types.IOTypeAdmin:
		w.finalizeAndForget(rc, types.IOOutcomeInvalidArgument,
			fmt.Errorf("%w: administrative passthrough is not served", types.ErrInvalidArgument))
	default:
		w.finalizeAndForget(rc, types.IOOutcomeNotSupported,
			fmt.Errorf("%w: %s", types.ErrNotSupported, req.Type))
	}
}

// submitRead routes a read to exactly one replica chosen by the picker. A failed read is not
// retried against another replica; the failing replica is retired and subsequent reads land
// elsewhere.
func (w *worker) submitRead(rc *requestContext) {
	idx, ok := w.picker.Pick(w.view.Readers)
	if !ok {
		w.finalizeAndForget(rc, types.IOOutcomeNoDevice,
			fmt.Errorf("%w: nexus %q has no readable replica", types.ErrNoDevice, w.engine.nexus.Name()))
		return
	}
	target := w.view.Readers[idx]
	if err := target.Handle.SubmitRead(rc.req.Offset, rc.req.NumBlocks, rc.req.Buffers, w.completion, rc.token); err != nil {
		w.rejectSubmission(rc, err)
		return
	}
	rc.inFlight = 1
}

// submitAll fans a request out to every replica in the write set. The loop stops at the first
// rejected submission; already-accepted operations keep flying, so on partial acceptance the
// request records a tentative status and waits for every outstanding completion before
// finalizing. Buffers remain referenced by in-flight operations until their callbacks fire.
func (w *worker) submitAll(rc *requestContext) {
	inflight := 0
	var submitErr error
	for _, target := range w.view.Writers {
		if err := w.submitTo(rc, target); err != nil {
			submitErr = err
			break
		}
		inflight++
	}

	if inflight > 0 {
		rc.inFlight = inflight
		switch {
		case submitErr == nil:
		case errors.Is(submitErr, types.ErrResourceExhausted):
			rc.status = types.IOStatusNoMemory
		default:
			rc.status = types.IOStatusFailed
		}
		if submitErr != nil {
			w.logger.V(logutil.VERBOSE).Info("Partial fan-out submission, awaiting accepted operations",
				"request", rc.id, "accepted", inflight, "status", rc.status, "err", submitErr.Error())
		}
		return
	}

	if submitErr == nil {
		w.finalizeAndForget(rc, types.IOOutcomeNoDevice,
			fmt.Errorf("%w: nexus %q has no writable replica", types.ErrNoDevice, w.engine.nexus.Name()))
		return
	}
	w.rejectSubmission(rc, submitErr)
}

// rejectSubmission finalizes a request for which zero submissions were accepted.
func (w *worker) rejectSubmission(rc *requestContext, err error) {
	if errors.Is(err, types.ErrResourceExhausted) {
		w.finalizeAndForget(rc, types.IOOutcomeNoMemory,
			fmt.Errorf("request %q must be retried: %w", rc.id, err))
		return
	}
	w.finalizeAndForget(rc, types.IOOutcomeFailed,
		fmt.Errorf("%w: request %q submission rejected: %w", types.ErrDeviceFailed, rc.id, err))
}

func (w *worker) submitTo(rc *requestContext, target channel.Target) error {
	req := rc.req
	switch req.Type {
	case types.IOTypeWrite:
		return target.Handle.SubmitWrite(req.Offset, req.NumBlocks, req.Buffers, w.completion, rc.token)
	case types.IOTypeWriteZeroes:
		return target.Handle.SubmitWriteZeroes(req.Offset, req.NumBlocks, w.completion, rc.token)
	case types.IOTypeUnmap:
		return target.Handle.SubmitUnmap(req.Offset, req.NumBlocks, w.completion, rc.token)
	case types.IOTypeReset:
		return target.Handle.SubmitReset(w.completion, rc.token)
	default:
		panic(fmt.Sprintf("fan-out submission for non-fan-out operation %s", req.Type))
	}
}

// onCompletion processes one child completion on the admitting worker's loop: update the
// counters, decide the disposition, and release the operation's resources exactly once.
func (w *worker) onCompletion(c contracts.Completion) {
	defer func() {
		if c.Release != nil {
			c.Release()
		}
	}()

	rc, ok := w.requests[c.Token]
	if !ok {
		// The request was already finalized (shutdown sweep) or the token is stale.
		w.logger.V(logutil.DEBUG).Info("Completion for unknown token, dropping",
			"token", c.Token, "child", c.Child)
		return
	}
	if rc.core != w.id {
		panic(fmt.Sprintf("completion for request %q admitted on worker %d processed on worker %d",
			rc.id, rc.core, w.id))
	}
	if rc.inFlight <= 0 {
		panic(fmt.Sprintf("request %q received more completions than submissions", rc.id))
	}

	rc.inFlight--
	if c.Success {
		rc.numOK++
	} else {
		rc.status = types.IOStatusFailed
	}

	switch act := disposition(rc.status, rc.inFlight, rc.numOK); act {
	case actionWait:

	case actionCompleteSuccess:
		w.finalizeAndForget(rc, types.IOOutcomeSuccess, nil)

	case actionCompleteFailed:
		err := fmt.Errorf("%w: request %q failed on all replicas", types.ErrDeviceFailed, rc.id)
		if c.Err != nil {
			err = fmt.Errorf("%w: request %q failed on all replicas: %w", types.ErrDeviceFailed, rc.id, c.Err)
		}
		w.finalizeAndForget(rc, types.IOOutcomeFailed, err)

	case actionCompleteNoMemory:
		w.finalizeAndForget(rc, types.IOOutcomeNoMemory,
			fmt.Errorf("%w: request %q must be retried", types.ErrResourceExhausted, rc.id))

	case actionRetireContinue:
		w.maybeRetire(rc, c)
		// Remaining in-flight completions decide the terminal outcome.
		rc.status = types.IOStatusPending

	case actionRetireSuccess:
		w.maybeRetire(rc, c)
		w.finalizeAndForget(rc, types.IOOutcomeSuccess, nil)

	case actionInconsistent:
		w.logger.Error(nil, "Disposition fell through to the inconsistency branch",
			"request", rc.id, "status", rc.status, "inFlight", rc.inFlight, "numOK", rc.numOK)
		w.finalizeAndForget(rc, types.IOOutcomeFailed,
			fmt.Errorf("%w: request %q: status=%s inFlight=%d numOK=%d",
				types.ErrInternalInconsistency, rc.id, rc.status, rc.inFlight, rc.numOK))
	}
}

// maybeRetire schedules the asynchronous retirement of the replica whose completion just failed.
// A replica that refused the operation as unsupported or malformed is not penalized; neither
// retirement nor its absence ever delays finalizing the parent request.
func (w *worker) maybeRetire(rc *requestContext, c contracts.Completion) {
	if c.Success {
		// The aggregate failure stems from an earlier submission rejection, not this completion.
		return
	}
	if errors.Is(c.Err, types.ErrNotSupported) || errors.Is(c.Err, types.ErrInvalidArgument) {
		w.logger.V(logutil.VERBOSE).Info("Replica refused operation, not retiring",
			"request", rc.id, "child", c.Child, "err", c.Err.Error())
		return
	}
	w.logger.Error(c.Err, "Child operation failed, scheduling retirement",
		"request", rc.id, "child", c.Child, "op", rc.req.Type)
	w.engine.reg.ScheduleRetire(w.engine.nexus.Name(), c.Child)
}

func (w *worker) finalizeAndForget(rc *requestContext, outcome types.IOOutcome, err error) {
	delete(w.requests, rc.token)
	rc.finalize(outcome, err)
	w.logger.V(logutil.TRACE).Info("Request finalized", "request", rc.id, "outcome", outcome)
}

// handleEvent reacts to one broadcast topology or admission event on this worker's loop.
func (w *worker) handleEvent(ev channel.Event) {
	switch ev {
	case channel.EventPause:
		// Admission checks the pause gate; executing this task is the acknowledgement that no
		// dispatch is running concurrently with the pausing caller.
	case channel.EventResume:
		w.flushDeferred()
	default:
		w.view = channel.Rebuild(w.engine.nexus.Children())
		metrics.RecordRebuild(w.engine.nexus.Name(), ev.String())
		w.logger.V(logutil.DEBUG).Info("Channel view rebuilt",
			"event", ev, "readers", len(w.view.Readers), "writers", len(w.view.Writers))
	}
}

// flushDeferred re-dispatches requests parked while the nexus was paused. A nested pause can
// close the gate again mid-flush; the remainder stays parked.
func (w *worker) flushDeferred() {
	if len(w.deferred) == 0 {
		return
	}
	parked := w.deferred
	w.deferred = nil
	for i := 0; i < len(parked); i++ {
		if w.engine.nexus.IsPaused() {
			w.deferred = append(w.deferred, parked[i:]...)
			return
		}
		w.dispatch(parked[i])
	}
}
