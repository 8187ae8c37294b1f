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
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel/picker"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/metrics"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/registry"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"
)

// Engine is the I/O engine of one nexus. It owns a fixed set of dispatch workers and installs
// itself as the nexus's reconfigure hook, so pause, resume, and topology changes reach every
// worker as awaitable broadcasts.
type Engine struct {
	logger logr.Logger
	nexus  *registry.Nexus
	reg    *registry.Registry
	clock  clock.PassiveClock

	workers    []*worker
	nextWorker atomic.Uint64

	running atomic.Bool
	// stopped is closed once every worker has exited; it releases callers awaiting requests that
	// can no longer finalize.
	stopped chan struct{}
}

// NewEngine creates the engine for a nexus and attaches it as the nexus's reconfigure hook. The
// engine serves no I/O until Run is called.
func NewEngine(nx *registry.Nexus, reg *registry.Registry, config *Config, logger logr.Logger) (*Engine, error) {
	if config == nil {
		var err error
		if config, err = NewConfig(); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		logger:  logger.WithName("nexus-engine").WithValues("nexus", nx.Name()),
		nexus:   nx,
		reg:     reg,
		clock:   config.Clock,
		stopped: make(chan struct{}),
	}
	e.workers = make([]*worker, config.Workers)
	for i := range e.workers {
		pk, err := picker.NewFromName(config.Picker)
		if err != nil {
			return nil, fmt.Errorf("constructing picker for worker %d: %w", i, err)
		}
		e.workers[i] = newWorker(i, e, pk, config.TaskQueueCapacity)
	}
	nx.SetReconfigureHook(e.broadcast)
	return e, nil
}

// Run executes the engine until the context is cancelled and all workers have drained. It must be
// called at most once.
func (e *Engine) Run(ctx context.Context) {
	if !e.running.CompareAndSwap(false, true) {
		panic("engine started twice")
	}
	e.logger.Info("Engine starting", "workers", len(e.workers))

	var wg sync.WaitGroup
	for _, w := range e.workers {
		wg.Add(1)
		go func(w *worker) {
			defer wg.Done()
			w.run(ctx)
		}(w)
	}
	<-ctx.Done()
	e.running.Store(false)
	wg.Wait()
	close(e.stopped)
	e.logger.Info("Engine stopped")
}

// SubmitAndWait admits one logical request and blocks until it reaches a terminal outcome, the
// engine stops, or ctx is cancelled.
//
// On ctx cancellation the request keeps running to completion internally; the caller must not
// reuse the request's buffers, since in-flight child operations may still reference them.
func (e *Engine) SubmitAndWait(ctx context.Context, req *types.Request) (types.IOOutcome, error) {
	if !e.running.Load() {
		return types.IOOutcomeFailed, fmt.Errorf("%w: rejecting request", types.ErrEngineNotRunning)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	idx := int(e.nextWorker.Add(1) % uint64(len(e.workers)))
	w := e.workers[idx]
	rc := newRequestContext(req, idx, e.clock.Now())

	metrics.IncInFlight(e.nexus.Name())

	w.post(func() { w.admit(rc) })

	select {
	case <-rc.done:
	case <-ctx.Done():
		// The request keeps running internally, so it stays counted until it finalizes or the
		// engine stops.
		go func() {
			select {
			case <-rc.done:
			case <-e.stopped:
			}
			metrics.DecInFlight(e.nexus.Name())
		}()
		return types.IOOutcomeNotYetFinalized, fmt.Errorf("awaiting request %q: %w", req.ID, ctx.Err())
	case <-e.stopped:
		select {
		case <-rc.done:
		default:
			metrics.DecInFlight(e.nexus.Name())
			e.recordIO(req, types.IOOutcomeFailed, rc)
			return types.IOOutcomeFailed,
				fmt.Errorf("%w: engine stopped before request %q finalized", types.ErrEngineNotRunning, req.ID)
		}
	}
	metrics.DecInFlight(e.nexus.Name())
	e.recordIO(req, rc.outcome, rc)
	return rc.outcome, rc.err
}

func (e *Engine) recordIO(req *types.Request, outcome types.IOOutcome, rc *requestContext) {
	metrics.RecordIO(e.nexus.Name(), req.Type.String(), outcome.String(), e.clock.Since(rc.start).Seconds())
}

// broadcast posts an event to every worker and awaits all acknowledgements. It is the nexus's
// reconfigure hook: Pause returns only once no worker can still be dispatching, and fault or
// topology events return only once every channel view reflects the new replica set.
func (e *Engine) broadcast(ctx context.Context, ev channel.Event) error {
	if !e.running.Load() {
		select {
		case <-e.stopped:
			return fmt.Errorf("%w: cannot broadcast %s", types.ErrEngineNotRunning, ev)
		default:
			// Not started yet: workers hold no view older than the one Run will build from, so
			// there is nothing to reconcile.
			return nil
		}
	}
	acks := make(chan struct{}, len(e.workers))
	for _, w := range e.workers {
		w := w
		w.post(func() {
			w.handleEvent(ev)
			acks <- struct{}{}
		})
	}
	for range e.workers {
		select {
		case <-acks:
		case <-e.stopped:
			return fmt.Errorf("%w: engine stopped during %s broadcast", types.ErrEngineNotRunning, ev)
		case <-ctx.Done():
			return fmt.Errorf("broadcasting %s: %w", ev, ctx.Err())
		}
	}
	return nil
}
