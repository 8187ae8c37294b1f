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

	logutil "github.com/CoCreate-app/CoCreate-openebs/pkg/common/logging"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/child"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/metrics"
)

// ScheduleRetire launches the asynchronous retirement protocol for one replica. It is safe to
// call from a completion path: it never blocks, and redundant invocations for the same child are
// resolved by the child's atomic state transition.
//
// Only identifiers are captured; the nexus and the child are re-resolved by the retirement task,
// which abandons quietly when either has been concurrently removed.
func (r *Registry) ScheduleRetire(nexusName, childName string) {
	r.retireWG.Add(1)
	go func() {
		defer r.retireWG.Done()
		r.retireChild(context.Background(), nexusName, childName)
	}()
}

// WaitRetirements blocks until every scheduled retirement has run to completion. Intended for
// orderly shutdown and tests.
func (r *Registry) WaitRetirements() {
	r.retireWG.Wait()
}

// retireChild faults, excludes, and destroys one misbehaving replica.
//
// Protocol, each step a suspension point:
//  1. Re-resolve the nexus by name; absent → abandon.
//  2. Re-resolve the child within it; absent → abandon.
//  3. CAS the child Open → Faulted(IoError); prior state not Open → another retirement won, abandon.
//  4. Pause new admission (in-flight child operations are unaffected).
//  5. Broadcast the fault so every worker rebuilds its channel view without the child.
//  6. Destroy the child's device; failure is logged only, the child stays excluded regardless.
//  7. Resume admission.
//  8. Report when the nexus has no viable children left.
func (r *Registry) retireChild(ctx context.Context, nexusName, childName string) {
	logger := r.logger.WithName("child-retire").WithValues("nexus", nexusName, "child", childName)

	nx, ok := r.Lookup(nexusName)
	if !ok {
		logger.V(logutil.DEFAULT).Info("Nexus no longer exists, abandoning retirement")
		return
	}
	c := nx.ChildLookup(childName)
	if c == nil {
		logger.V(logutil.DEFAULT).Info("Child no longer belongs to the nexus, abandoning retirement")
		return
	}

	prior := c.CompareAndSwap(child.Open, child.Faulted(child.ReasonIOError))
	if prior != child.Open {
		logger.V(logutil.VERBOSE).Info("Child is not Open, retirement already in progress or complete",
			"state", prior)
		return
	}
	logger.Info("Faulting child")

	if err := nx.Pause(ctx); err != nil {
		logger.Error(err, "Failed to pause admission, continuing retirement")
	}
	if err := nx.Reconfigure(ctx, channel.EventChildFault); err != nil {
		logger.Error(err, "Failed to reconfigure channel views, continuing retirement")
	}
	// A concurrent control-plane removal of the same child can race this destroy. The child stays
	// excluded from channel views whatever the outcome.
	if err := c.Destroy(ctx); err != nil {
		logger.Error(err, "Destroying child failed")
	}
	if err := nx.Resume(ctx); err != nil {
		logger.Error(err, "Failed to resume admission")
	}

	metrics.RecordRetirement(nexusName)
	if nx.Status() == StatusFaulted {
		logger.Error(nil, "Nexus has no children left")
	}
}
