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

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nexusd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
nexuses:
  - name: nexus-0
    picker: random
    workers: 2
    children:
      - uri: mem:///replica-0?blocks=1024&blk_size=512
      - uri: mem:///replica-1?blocks=1024&blk_size=512
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Nexuses, 1)
	assert.Equal(t, "nexus-0", cfg.Nexuses[0].Name)
	assert.Equal(t, "random", cfg.Nexuses[0].Picker)
	assert.Equal(t, 2, cfg.Nexuses[0].Workers)
	assert.Len(t, cfg.Nexuses[0].Children, 2)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "missing name", content: "nexuses:\n  - children:\n      - uri: mem:///a\n"},
		{name: "duplicate names", content: "nexuses:\n  - name: n\n    children:\n      - uri: mem:///a\n  - name: n\n    children:\n      - uri: mem:///b\n"},
		{name: "no children", content: "nexuses:\n  - name: n\n"},
		{name: "blank child uri", content: "nexuses:\n  - name: n\n    children:\n      - uri: \"\"\n"},
		{name: "negative workers", content: "nexuses:\n  - name: n\n    workers: -1\n    children:\n      - uri: mem:///a\n"},
		{name: "not yaml", content: "{nexuses: ["},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadConfig(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
