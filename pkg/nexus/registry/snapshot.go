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

	logutil "github.com/CoCreate-app/CoCreate-openebs/pkg/common/logging"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/child"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"
)

// FormatSnapshotName derives the snapshot name for a device from the creation timestamp the
// device reported.
func FormatSnapshotName(name string, t int64) string {
	return fmt.Sprintf("%s-snap-%d", name, t)
}

// CreateSnapshot takes a point-in-time snapshot on every open child and returns the snapshot
// name. The name carries the creation timestamp reported by the first child so that all replica
// snapshots of one nexus are identifiable as siblings.
//
// Admission is paused for the duration, so no write can land between two children's snapshots.
func (n *Nexus) CreateSnapshot(ctx context.Context) (string, error) {
	if err := n.Pause(ctx); err != nil {
		return "", fmt.Errorf("pausing nexus %q: %w", n.name, err)
	}
	defer func() {
		if err := n.Resume(ctx); err != nil {
			n.logger.Error(err, "Failed to resume admission after snapshot")
		}
	}()

	var (
		name  string
		taken int
	)
	for _, c := range n.Children() {
		if c.State().Kind != child.StateOpen {
			continue
		}
		t, err := c.Handle().CreateSnapshot(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: snapshot on child %q of nexus %q: %w",
				types.ErrDeviceFailed, c.Name(), n.name, err)
		}
		if taken == 0 {
			name = FormatSnapshotName(n.name, t)
		}
		taken++
	}
	if taken == 0 {
		return "", fmt.Errorf("%w: nexus %q has no open children to snapshot", types.ErrNoHandle, n.name)
	}
	n.logger.V(logutil.DEFAULT).Info("Snapshot created", "snapshot", name, "children", taken)
	return name, nil
}
