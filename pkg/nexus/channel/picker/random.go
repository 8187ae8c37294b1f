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
	"math/rand/v2"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
)

const (
	// RandomPickerName is the registered name of the random picker.
	RandomPickerName = "random"
)

// compile-time type validation
var _ channel.ReaderPicker = &Random{}

// Random picks a uniformly random reader for each request.
type Random struct{}

// NewRandom initializes a new Random picker and returns its pointer.
func NewRandom() *Random {
	return &Random{}
}

// Name returns the picker's registered name.
func (p *Random) Name() string { return RandomPickerName }

// Pick returns a uniformly random reader index.
func (p *Random) Pick(readers []channel.Target) (int, bool) {
	if len(readers) == 0 {
		return 0, false
	}
	return rand.IntN(len(readers)), true
}
