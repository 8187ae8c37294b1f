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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logutil "github.com/CoCreate-app/CoCreate-openebs/pkg/common/logging"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/child"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts/mocks"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"
)

func TestFormatSnapshotName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "nexus-0-snap-1756339200", FormatSnapshotName("nexus-0", 1756339200))
}

func TestCreateSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	nx, rec := newTestNexus(t, "replica-0", "replica-1")

	var snapshotted []string
	for _, name := range []string{"replica-0", "replica-1"} {
		name := name
		nx.ChildLookup(name).Handle().(*mocks.MockDeviceHandle).CreateSnapshotFunc =
			func(context.Context) (int64, error) {
				snapshotted = append(snapshotted, name)
				return 1756339200, nil
			}
	}

	got, err := nx.CreateSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, "nexus-0-snap-1756339200", got)
	assert.Equal(t, []string{"replica-0", "replica-1"}, snapshotted,
		"every open child must be snapshotted")
	assert.Equal(t, []channel.Event{channel.EventPause, channel.EventResume}, rec.recorded(),
		"no write may land between two children's snapshots")
	assert.False(t, nx.IsPaused())
}

func TestCreateSnapshot_SkipsNonOpenChildren(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	nx, _ := newTestNexus(t, "replica-0")

	syncing := child.New("replica-1", &mocks.MockDeviceHandle{
		NameV: "replica-1",
		CreateSnapshotFunc: func(context.Context) (int64, error) {
			t.Error("a syncing child must not be snapshotted")
			return 0, nil
		},
	})
	require.NoError(t, nx.AddChild(ctx, syncing))

	_, err := nx.CreateSnapshot(ctx)
	require.NoError(t, err)
}

func TestCreateSnapshot_NoOpenChildren(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	nx := NewNexus("nexus-0", logutil.NewTestLogger())
	require.NoError(t, nx.AddChild(ctx, child.New("replica-0", &mocks.MockDeviceHandle{NameV: "replica-0"})))

	_, err := nx.CreateSnapshot(ctx)
	require.ErrorIs(t, err, types.ErrNoHandle)
	assert.False(t, nx.IsPaused())
}

func TestCreateSnapshot_DeviceError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	nx, _ := newTestNexus(t, "replica-0")
	nx.ChildLookup("replica-0").Handle().(*mocks.MockDeviceHandle).CreateSnapshotFunc =
		func(context.Context) (int64, error) {
			return 0, errors.New("replica offline")
		}

	_, err := nx.CreateSnapshot(ctx)
	require.ErrorIs(t, err, types.ErrDeviceFailed)
	assert.False(t, nx.IsPaused(), "the admission gate must be released on the error path")
}
