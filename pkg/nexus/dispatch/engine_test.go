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
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	testclock "k8s.io/utils/clock/testing"

	logutil "github.com/CoCreate-app/CoCreate-openebs/pkg/common/logging"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/child"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts/mocks"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/metrics"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/registry"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"
)

const testTimeout = 2 * time.Second

// result carries the terminal outcome of one submitted request back to the test goroutine.
type result struct {
	outcome types.IOOutcome
	err     error
}

// harness runs a real engine over mock devices. Submissions are captured on per-handle channels,
// so tests decide exactly when and how each child operation completes.
type harness struct {
	t *testing.T

	reg     *registry.Registry
	nexus   *registry.Nexus
	handles []*mocks.MockDeviceHandle
	engine  *Engine

	cancel  context.CancelFunc
	runDone chan struct{}
}

func newHarness(t *testing.T, childCount int, opts ...ConfigOption) *harness {
	return newNamedHarness(t, "nexus-0", childCount, opts...)
}

// newNamedHarness is newHarness with a caller-chosen nexus name, for tests that must observe
// per-nexus metric series without interference from parallel tests.
func newNamedHarness(t *testing.T, name string, childCount int, opts ...ConfigOption) *harness {
	t.Helper()
	ctx := context.Background()
	logger := logutil.NewTestLogger()

	h := &harness{
		t:       t,
		reg:     registry.New(logger),
		nexus:   registry.NewNexus(name, logger),
		runDone: make(chan struct{}),
	}
	for i := 0; i < childCount; i++ {
		name := "replica-" + string(rune('0'+i))
		handle := &mocks.MockDeviceHandle{NameV: name, Submissions: make(chan mocks.Submission, 16)}
		c := child.New(name, handle)
		require.True(t, c.SetOpen())
		require.NoError(t, h.nexus.AddChild(ctx, c))
		h.handles = append(h.handles, handle)
	}
	require.NoError(t, h.reg.Register(h.nexus))

	// One worker makes submission order deterministic.
	defaults := []ConfigOption{
		WithWorkers(1),
		WithClock(testclock.NewFakePassiveClock(time.Now())),
	}
	cfg, err := NewConfig(append(defaults, opts...)...)
	require.NoError(t, err)
	h.engine, err = NewEngine(h.nexus, h.reg, cfg, logger)
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	go func() {
		defer close(h.runDone)
		h.engine.Run(runCtx)
	}()
	t.Cleanup(h.stop)
	// Run is asynchronous; wait until the engine admits requests so submissions cannot race the
	// startup CAS and bounce with ErrEngineNotRunning.
	require.Eventually(t, h.engine.running.Load, testTimeout, time.Millisecond, "engine failed to start")
	return h
}

// stop shuts the engine down and waits for it to drain. Safe to call twice.
func (h *harness) stop() {
	h.cancel()
	select {
	case <-h.runDone:
	case <-time.After(testTimeout):
		h.t.Fatal("timed out waiting for the engine to stop")
	}
}

// submit runs SubmitAndWait on its own goroutine and returns the channel carrying the terminal
// outcome.
func (h *harness) submit(req *types.Request) chan result {
	out := make(chan result, 1)
	go func() {
		outcome, err := h.engine.SubmitAndWait(context.Background(), req)
		out <- result{outcome: outcome, err: err}
	}()
	return out
}

func (h *harness) nextSubmission(m *mocks.MockDeviceHandle) mocks.Submission {
	h.t.Helper()
	select {
	case s := <-m.Submissions:
		return s
	case <-time.After(testTimeout):
		h.t.Fatalf("timed out waiting for a submission on %s", m.NameV)
		return mocks.Submission{}
	}
}

func (h *harness) await(out chan result) result {
	h.t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(testTimeout):
		h.t.Fatal("timed out waiting for the request to finalize")
		return result{}
	}
}

func (h *harness) expectNotFinalized(out chan result) {
	h.t.Helper()
	select {
	case r := <-out:
		h.t.Fatalf("request finalized early with outcome %s", r.outcome)
	case <-time.After(50 * time.Millisecond):
	}
}

func writeRequest() *types.Request {
	return &types.Request{
		Type:      types.IOTypeWrite,
		Offset:    0,
		NumBlocks: 8,
		Buffers:   [][]byte{make([]byte, 4096)},
	}
}

func TestEngine_WriteFanOutAllSucceed(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3)
	out := h.submit(writeRequest())

	var releases atomic.Int32
	for _, handle := range h.handles {
		s := h.nextSubmission(handle)
		assert.Equal(t, "write", s.Op)
		s.Complete(contracts.Completion{
			Child:   handle.NameV,
			Success: true,
			Release: func() { releases.Add(1) },
		})
	}

	r := h.await(out)
	require.NoError(t, r.err)
	assert.Equal(t, types.IOOutcomeSuccess, r.outcome)
	assert.Eventually(t, func() bool { return releases.Load() == 3 },
		testTimeout, time.Millisecond, "every child operation's resources must be released exactly once")

	h.reg.WaitRetirements()
	assert.Equal(t, registry.StatusOnline, h.nexus.Status())
}

// One replica of three fails its completion: the request still succeeds and the failing replica
// is retired and excluded from subsequent fan-outs.
func TestEngine_WriteOneReplicaFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3)
	out := h.submit(writeRequest())

	for i, handle := range h.handles {
		s := h.nextSubmission(handle)
		if i == 1 {
			s.Complete(contracts.Completion{Child: handle.NameV, Success: false, Err: errors.New("disk gone")})
			continue
		}
		s.Complete(contracts.Completion{Child: handle.NameV, Success: true})
	}

	r := h.await(out)
	require.NoError(t, r.err)
	assert.Equal(t, types.IOOutcomeSuccess, r.outcome)

	h.reg.WaitRetirements()
	failed := h.nexus.ChildLookup("replica-1")
	require.NotNil(t, failed)
	assert.Equal(t, child.Faulted(child.ReasonIOError), failed.State())
	assert.True(t, h.handles[1].Closed())
	assert.Equal(t, registry.StatusDegraded, h.nexus.Status())

	// The rebuilt channel views exclude the retired replica.
	out = h.submit(writeRequest())
	s0 := h.nextSubmission(h.handles[0])
	s2 := h.nextSubmission(h.handles[2])
	s0.Complete(contracts.Completion{Child: "replica-0", Success: true})
	s2.Complete(contracts.Completion{Child: "replica-2", Success: true})
	r = h.await(out)
	assert.Equal(t, types.IOOutcomeSuccess, r.outcome)
	assert.Empty(t, h.handles[1].Submissions, "a retired replica receives no new submissions")
}

func TestEngine_WriteAllReplicasFail(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3)
	out := h.submit(writeRequest())

	for _, handle := range h.handles {
		s := h.nextSubmission(handle)
		s.Complete(contracts.Completion{Child: handle.NameV, Success: false, Err: errors.New("disk gone")})
	}

	r := h.await(out)
	assert.Equal(t, types.IOOutcomeFailed, r.outcome)
	require.ErrorIs(t, r.err, types.ErrDeviceFailed)

	// The first two failing completions retire their replicas; the final one finalizes the
	// request as failed.
	h.reg.WaitRetirements()
	assert.Equal(t, child.StateFaulted, h.nexus.ChildLookup("replica-0").State().Kind)
	assert.Equal(t, child.StateFaulted, h.nexus.ChildLookup("replica-1").State().Kind)
	assert.Equal(t, registry.StatusDegraded, h.nexus.Status())
}

// A replica refusing an operation as unsupported is not penalized with retirement.
func TestEngine_RefusedOperationNotRetired(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2)
	out := h.submit(&types.Request{Type: types.IOTypeUnmap, Offset: 0, NumBlocks: 8})

	s0 := h.nextSubmission(h.handles[0])
	s1 := h.nextSubmission(h.handles[1])
	s0.Complete(contracts.Completion{Child: "replica-0", Success: true})
	s1.Complete(contracts.Completion{
		Child:   "replica-1",
		Success: false,
		Err:     types.ErrNotSupported,
	})

	r := h.await(out)
	assert.Equal(t, types.IOOutcomeSuccess, r.outcome)

	h.reg.WaitRetirements()
	assert.Equal(t, child.Open, h.nexus.ChildLookup("replica-1").State())
	assert.False(t, h.handles[1].Closed())
}

func TestEngine_ReadRoutesToOneReplica(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3)
	buf := make([]byte, 4096)
	out := h.submit(&types.Request{Type: types.IOTypeRead, Offset: 4, NumBlocks: 8, Buffers: [][]byte{buf}})

	s := h.nextSubmission(h.handles[0])
	assert.Equal(t, "read", s.Op)
	assert.Equal(t, uint64(4), s.Offset)
	s.Complete(contracts.Completion{Child: "replica-0", Success: true})

	r := h.await(out)
	require.NoError(t, r.err)
	assert.Equal(t, types.IOOutcomeSuccess, r.outcome)
	assert.Empty(t, h.handles[1].Submissions)
	assert.Empty(t, h.handles[2].Submissions)
}

// A failed read does not fall back to another replica: the request fails and the replica is
// retired, so subsequent reads land elsewhere.
func TestEngine_ReadFailureDoesNotFallBack(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2)
	out := h.submit(&types.Request{Type: types.IOTypeRead, NumBlocks: 8, Buffers: [][]byte{make([]byte, 4096)}})

	s := h.nextSubmission(h.handles[0])
	s.Complete(contracts.Completion{Child: "replica-0", Success: false, Err: errors.New("medium error")})

	r := h.await(out)
	assert.Equal(t, types.IOOutcomeFailed, r.outcome)
	require.ErrorIs(t, r.err, types.ErrDeviceFailed)
	assert.Empty(t, h.handles[1].Submissions, "no read fallback to a second replica")

	h.reg.WaitRetirements()
	assert.Equal(t, child.StateFaulted, h.nexus.ChildLookup("replica-0").State().Kind)

	out = h.submit(&types.Request{Type: types.IOTypeRead, NumBlocks: 8, Buffers: [][]byte{make([]byte, 4096)}})
	s = h.nextSubmission(h.handles[1])
	s.Complete(contracts.Completion{Child: "replica-1", Success: true})
	r = h.await(out)
	assert.Equal(t, types.IOOutcomeSuccess, r.outcome)
}

func TestEngine_ReadWithNoReaders(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)

	// A syncing child is writable but not readable.
	handle := &mocks.MockDeviceHandle{NameV: "replica-sync", Submissions: make(chan mocks.Submission, 16)}
	require.NoError(t, h.nexus.AddChild(context.Background(), child.New("replica-sync", handle)))

	r := h.await(h.submit(&types.Request{Type: types.IOTypeRead, NumBlocks: 8, Buffers: [][]byte{make([]byte, 4096)}}))
	assert.Equal(t, types.IOOutcomeNoDevice, r.outcome)
	require.ErrorIs(t, r.err, types.ErrNoDevice)
	assert.Empty(t, handle.Submissions, "zero submissions on the no-reader path")

	// The same syncing child still receives fan-out writes.
	out := h.submit(writeRequest())
	s := h.nextSubmission(handle)
	assert.Equal(t, "write", s.Op)
	s.Complete(contracts.Completion{Child: "replica-sync", Success: true})
	assert.Equal(t, types.IOOutcomeSuccess, h.await(out).outcome)
}

// A partially accepted fan-out must wait for every accepted completion before surfacing the
// exhaustion: the buffers stay referenced by the in-flight operation until its callback fires.
func TestEngine_PartialSubmissionWaitsThenNoMemory(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2)
	h.handles[1].SubmitWriteFunc = func(uint64, uint64, [][]byte, contracts.CompletionCallback, uint64) error {
		return types.ErrResourceExhausted
	}

	out := h.submit(writeRequest())
	s := h.nextSubmission(h.handles[0])
	h.expectNotFinalized(out)

	s.Complete(contracts.Completion{Child: "replica-0", Success: true})
	r := h.await(out)
	assert.Equal(t, types.IOOutcomeNoMemory, r.outcome)
	require.ErrorIs(t, r.err, types.ErrResourceExhausted)
}

func TestEngine_ZeroAcceptedSubmissions(t *testing.T) {
	t.Parallel()

	t.Run("resource exhaustion surfaces as no-memory", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 2)
		for _, handle := range h.handles {
			handle.SubmitWriteFunc = func(uint64, uint64, [][]byte, contracts.CompletionCallback, uint64) error {
				return types.ErrResourceExhausted
			}
		}
		r := h.await(h.submit(writeRequest()))
		assert.Equal(t, types.IOOutcomeNoMemory, r.outcome)
		require.ErrorIs(t, r.err, types.ErrResourceExhausted)
	})

	t.Run("other rejection surfaces as failed", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, 1)
		h.handles[0].SubmitWriteFunc = func(uint64, uint64, [][]byte, contracts.CompletionCallback, uint64) error {
			return errors.New("device detached")
		}
		r := h.await(h.submit(writeRequest()))
		assert.Equal(t, types.IOOutcomeFailed, r.outcome)
		require.ErrorIs(t, r.err, types.ErrDeviceFailed)
	})
}

func TestEngine_ImmediateOutcomes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2)

	r := h.await(h.submit(&types.Request{Type: types.IOTypeFlush}))
	require.NoError(t, r.err)
	assert.Equal(t, types.IOOutcomeSuccess, r.outcome, "flush completes at this layer")

	r = h.await(h.submit(&types.Request{Type: types.IOTypeAdmin}))
	assert.Equal(t, types.IOOutcomeInvalidArgument, r.outcome)
	require.ErrorIs(t, r.err, types.ErrInvalidArgument)

	r = h.await(h.submit(&types.Request{Type: types.IOType(99)}))
	assert.Equal(t, types.IOOutcomeNotSupported, r.outcome)
	require.ErrorIs(t, r.err, types.ErrNotSupported)

	for _, handle := range h.handles {
		assert.Empty(t, handle.Submissions, "immediate outcomes perform zero submissions")
	}
}

// Requests admitted while the nexus is paused are parked and dispatched on resume.
func TestEngine_PauseDefersAdmission(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, 2)

	require.NoError(t, h.nexus.Pause(ctx))
	out := h.submit(writeRequest())
	h.expectNotFinalized(out)
	for _, handle := range h.handles {
		assert.Empty(t, handle.Submissions, "no dispatch while paused")
	}

	require.NoError(t, h.nexus.Resume(ctx))
	for _, handle := range h.handles {
		s := h.nextSubmission(handle)
		s.Complete(contracts.Completion{Child: handle.NameV, Success: true})
	}
	assert.Equal(t, types.IOOutcomeSuccess, h.await(out).outcome)
}

func TestEngine_Shutdown(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 2)

	// A request in flight at shutdown is abandoned with a terminal answer.
	out := h.submit(writeRequest())
	h.nextSubmission(h.handles[0])
	h.nextSubmission(h.handles[1])
	h.stop()

	r := h.await(out)
	assert.Equal(t, types.IOOutcomeFailed, r.outcome)
	require.ErrorIs(t, r.err, types.ErrEngineNotRunning)

	// New requests are rejected outright.
	_, err := h.engine.SubmitAndWait(context.Background(), writeRequest())
	require.ErrorIs(t, err, types.ErrEngineNotRunning)
}

// The in-flight gauge counts admission to finalization. A caller abandoning its wait does not
// decrement it; the decrement lands when the request actually finalizes.
func TestEngine_InFlightGaugeTracksFinalization(t *testing.T) {
	t.Parallel()
	h := newNamedHarness(t, "nexus-gauge", 1)

	reqCtx, cancelReq := context.WithCancel(context.Background())
	defer cancelReq()
	out := make(chan result, 1)
	go func() {
		outcome, err := h.engine.SubmitAndWait(reqCtx, writeRequest())
		out <- result{outcome: outcome, err: err}
	}()

	s := h.nextSubmission(h.handles[0])
	assert.Equal(t, 1.0, inflightGaugeValue(t, "nexus-gauge"))

	cancelReq()
	r := h.await(out)
	assert.Equal(t, types.IOOutcomeNotYetFinalized, r.outcome)
	require.ErrorIs(t, r.err, context.Canceled)
	assert.Equal(t, 1.0, inflightGaugeValue(t, "nexus-gauge"),
		"the abandoned request is still running internally")

	s.Complete(contracts.Completion{Child: "replica-0", Success: true})
	assert.Eventually(t, func() bool { return inflightGaugeValue(t, "nexus-gauge") == 0 },
		testTimeout, time.Millisecond, "finalization decrements the gauge")
}

// metricsGatherer is the registry the package collectors bind to for the whole test binary.
var metricsGatherer = func() prometheus.Gatherer {
	r := prometheus.NewRegistry()
	metrics.Register(r)
	return r
}()

func inflightGaugeValue(t *testing.T, nexus string) float64 {
	t.Helper()
	families, err := metricsGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "nexus_inflight_requests" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "nexus" && lp.GetValue() == nexus {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	return 0
}

func TestEngine_AssignsRequestIDs(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 1)

	req := writeRequest()
	out := h.submit(req)
	s := h.nextSubmission(h.handles[0])
	s.Complete(contracts.Completion{Child: "replica-0", Success: true})
	h.await(out)

	assert.NotEmpty(t, req.ID, "a blank request ID must be assigned at admission")
}
