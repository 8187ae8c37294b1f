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

package registry

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-logr/logr"

	logutil "github.com/CoCreate-app/CoCreate-openebs/pkg/common/logging"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/child"
)

// Status is the aggregate health of a nexus, derived from its children's states.
type Status int

const (
	// StatusOnline means every child is open.
	StatusOnline Status = iota
	// StatusDegraded means at least one child is open but at least one is not.
	StatusDegraded
	// StatusFaulted means no child can serve I/O.
	StatusFaulted
)

// String returns a human-readable representation of the Status.
func (s Status) String() string {
	switch s {
	case StatusOnline:
		return "Online"
	case StatusDegraded:
		return "Degraded"
	case StatusFaulted:
		return "Faulted"
	default:
		return "UnknownStatus(" + strconv.Itoa(int(s)) + ")"
	}
}

// ReconfigureFunc is installed by the dispatch engine attached to a nexus. It broadcasts the event
// to every worker, awaits their acknowledgement, and returns once all channel views reflect the
// new topology. A nil hook (no engine attached yet) makes reconfiguration a no-op.
type ReconfigureFunc func(ctx context.Context, ev channel.Event) error

// Nexus is one logical block device aggregating N replica children with mirrored semantics.
// It exclusively owns its children; per-core channels reference child handles without owning them.
type Nexus struct {
	name   string
	logger logr.Logger

	// mu protects the children slice and the reconfigure hook. The data path never takes it:
	// workers operate on their private channel views.
	mu          sync.RWMutex
	children    []*child.Child
	reconfigure ReconfigureFunc

	// pauseCount gates new admission. It is a reference count so retirements of distinct children
	// may overlap; admission resumes only when it returns to zero.
	pauseCount atomic.Int32
}

// NewNexus creates an empty nexus.
func NewNexus(name string, logger logr.Logger) *Nexus {
	return &Nexus{
		name:   name,
		logger: logger.WithName("nexus").WithValues("nexus", name),
	}
}

// Name returns the nexus name.
func (n *Nexus) Name() string { return n.name }

// SetReconfigureHook installs the engine broadcast hook. It is called once, when a dispatch engine
// attaches to this nexus.
func (n *Nexus) SetReconfigureHook(f ReconfigureFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reconfigure = f
}

// Children returns a snapshot of the ordered child set.
func (n *Nexus) Children() []*child.Child {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*child.Child, len(n.children))
	copy(out, n.children)
	return out
}

// ChildLookup returns the child with the given name, or nil when it is not (or no longer) part of
// this nexus.
func (n *Nexus) ChildLookup(name string) *child.Child {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, c := range n.children {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// Status derives the nexus health from its children's states.
func (n *Nexus) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	open := 0
	for _, c := range n.children {
		if c.State().Kind == child.StateOpen {
			open++
		}
	}
	switch {
	case open == 0:
		return StatusFaulted
	case open < len(n.children):
		return StatusDegraded
	default:
		return StatusOnline
	}
}

// IsPaused reports whether new admission is currently gated.
func (n *Nexus) IsPaused() bool {
	return n.pauseCount.Load() > 0
}

// Pause gates new admission to the nexus. Already in-flight child operations are unaffected.
// The call returns once every worker has acknowledged the gate, guaranteeing no dispatch is still
// executing concurrently. Pauses nest.
func (n *Nexus) Pause(ctx context.Context) error {
	if n.pauseCount.Add(1) == 1 {
		return n.fire(ctx, channel.EventPause)
	}
	return nil
}

// Resume re-enables admission once all nested pauses have been released. Workers then re-dispatch
// any requests deferred while the gate was closed.
func (n *Nexus) Resume(ctx context.Context) error {
	v := n.pauseCount.Add(-1)
	if v < 0 {
		panic(fmt.Sprintf("nexus %q: Resume without matching Pause", n.name))
	}
	if v == 0 {
		return n.fire(ctx, channel.EventResume)
	}
	return nil
}

// Reconfigure broadcasts a topology event so every worker rebuilds its channel view. It returns
// once all workers have rebuilt.
func (n *Nexus) Reconfigure(ctx context.Context, ev channel.Event) error {
	return n.fire(ctx, ev)
}

func (n *Nexus) fire(ctx context.Context, ev channel.Event) error {
	n.mu.RLock()
	hook := n.reconfigure
	n.mu.RUnlock()
	if hook == nil {
		n.logger.V(logutil.TRACE).Info("No engine attached, reconfigure is a no-op", "event", ev)
		return nil
	}
	return hook(ctx, ev)
}

// AddChild attaches a child to the nexus and rebuilds all channel views. The child keeps the state
// it was created or opened with: Init children receive writes until promoted Open.
func (n *Nexus) AddChild(ctx context.Context, c *child.Child) error {
	n.mu.Lock()
	for _, existing := range n.children {
		if existing.Name() == c.Name() {
			n.mu.Unlock()
			return fmt.Errorf("nexus %q already has child %q", n.name, c.Name())
		}
	}
	n.children = append(n.children, c)
	n.mu.Unlock()

	if err := n.Pause(ctx); err != nil {
		return fmt.Errorf("pausing nexus %q: %w", n.name, err)
	}
	err := n.Reconfigure(ctx, channel.EventChildAdd)
	if resumeErr := n.Resume(ctx); err == nil {
		err = resumeErr
	}
	if err != nil {
		return fmt.Errorf("reconfiguring nexus %q after adding child %q: %w", n.name, c.Name(), err)
	}
	n.logger.V(logutil.DEFAULT).Info("Child added", "child", c.Name(), "state", c.State())
	return nil
}

// RemoveChild detaches a child by control operation, rebuilds all channel views, and destroys the
// child's device. This can race a concurrent retirement of the same child; both paths tolerate the
// other having run first, and a destroy failure is logged only.
func (n *Nexus) RemoveChild(ctx context.Context, name string) error {
	if err := n.Pause(ctx); err != nil {
		return fmt.Errorf("pausing nexus %q: %w", n.name, err)
	}
	defer func() {
		if err := n.Resume(ctx); err != nil {
			n.logger.Error(err, "Failed to resume admission after child removal", "child", name)
		}
	}()

	n.mu.Lock()
	var removed *child.Child
	for i, c := range n.children {
		if c.Name() == name {
			removed = c
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	n.mu.Unlock()
	if removed == nil {
		return fmt.Errorf("nexus %q has no child %q", n.name, name)
	}

	// Open or Init children transition to Closed; a child already faulted stays faulted.
	if removed.CompareAndSwap(child.Open, child.Closed) != child.Open {
		removed.CompareAndSwap(child.Init, child.Closed)
	}

	if err := n.Reconfigure(ctx, channel.EventChildRemove); err != nil {
		n.logger.Error(err, "Failed to reconfigure after child removal", "child", name)
	}
	if err := removed.Destroy(ctx); err != nil {
		n.logger.Error(err, "Destroying removed child failed", "child", name)
	}
	n.logger.V(logutil.DEFAULT).Info("Child removed", "child", name, "status", n.Status())
	return nil
}
