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

// Package picker provides the built-in reader selection policies.
package picker

import (
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
)

const (
	// RoundRobinPickerName is the registered name of the round-robin picker.
	RoundRobinPickerName = "round-robin"
)

// compile-time type validation
var _ channel.ReaderPicker = &RoundRobin{}

// RoundRobin cycles through the read set in order. State is a bare counter: pickers are
// worker-local by contract, so no synchronization is needed.
type RoundRobin struct {
	next uint64
}

// NewRoundRobin initializes a new RoundRobin picker and returns its pointer.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

// Name returns the picker's registered name.
func (p *RoundRobin) Name() string { return RoundRobinPickerName }

// Pick returns the next reader in rotation.
func (p *RoundRobin) Pick(readers []channel.Target) (int, bool) {
	if len(readers) == 0 {
		return 0, false
	}
	idx := int(p.next % uint64(len(readers)))
	p.next++
	return idx, true
}
