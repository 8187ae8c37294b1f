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
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

// Registry is the lookup-by-name authority for live nexuses. Retirement re-resolves through it
// after every suspension point.
type Registry struct {
	logger logr.Logger

	mu      sync.RWMutex
	nexuses map[string]*Nexus

	// retireWG tracks in-flight retirement tasks for WaitRetirements.
	retireWG sync.WaitGroup
}

// New creates an empty registry.
func New(logger logr.Logger) *Registry {
	return &Registry{
		logger:  logger.WithName("nexus-registry"),
		nexuses: make(map[string]*Nexus),
	}
}

// Register adds a nexus to the registry. Registering a name twice is an error.
func (r *Registry) Register(n *Nexus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nexuses[n.Name()]; ok {
		return fmt.Errorf("nexus %q is already registered", n.Name())
	}
	r.nexuses[n.Name()] = n
	return nil
}

// Unregister removes a nexus by name. Unknown names are ignored.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nexuses, name)
}

// Lookup returns the nexus with the given name.
func (r *Registry) Lookup(name string) (*Nexus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nexuses[name]
	return n, ok
}

// List returns the names of all registered nexuses.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.nexuses))
	for name := range r.nexuses {
		out = append(out, name)
	}
	return out
}
