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

package picker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
)

func readers(n int) []channel.Target {
	out := make([]channel.Target, n)
	for i := range out {
		out[i] = channel.Target{Child: string(rune('a' + i))}
	}
	return out
}

func TestRoundRobin_Cycles(t *testing.T) {
	t.Parallel()
	p := NewRoundRobin()
	rs := readers(3)

	var picks []int
	for i := 0; i < 6; i++ {
		idx, ok := p.Pick(rs)
		require.True(t, ok)
		picks = append(picks, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1, 2}, picks)
}

// A retirement shrinking the read set mid-rotation must not derail the picker.
func TestRoundRobin_SurvivesShrinkingReadSet(t *testing.T) {
	t.Parallel()
	p := NewRoundRobin()

	idx, ok := p.Pick(readers(3))
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = p.Pick(readers(2))
	require.True(t, ok)
	assert.Less(t, idx, 2)

	_, ok = p.Pick(nil)
	assert.False(t, ok, "an empty read set must yield no pick")
}

func TestRandom_PicksWithinBounds(t *testing.T) {
	t.Parallel()
	p := NewRandom()
	rs := readers(4)

	for i := 0; i < 100; i++ {
		idx, ok := p.Pick(rs)
		require.True(t, ok)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, len(rs))
	}

	_, ok := p.Pick(nil)
	assert.False(t, ok)
}

func TestNewFromName(t *testing.T) {
	t.Parallel()

	rr, err := NewFromName(RoundRobinPickerName)
	require.NoError(t, err)
	assert.Equal(t, RoundRobinPickerName, rr.Name())

	rnd, err := NewFromName(RandomPickerName)
	require.NoError(t, err)
	assert.Equal(t, RandomPickerName, rnd.Name())

	_, err = NewFromName("most-loaded")
	require.Error(t, err)

	first, err := NewFromName(RoundRobinPickerName)
	require.NoError(t, err)
	second, err := NewFromName(RoundRobinPickerName)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "pickers are stateful and must be fresh per worker")
}
