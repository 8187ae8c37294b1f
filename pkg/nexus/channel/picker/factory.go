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
	"fmt"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel"
)

// NewFromName instantiates a registered picker by name. Each call returns a fresh instance, since
// pickers are stateful and worker-local.
func NewFromName(name string) (channel.ReaderPicker, error) {
	switch name {
	case RoundRobinPickerName:
		return NewRoundRobin(), nil
	case RandomPickerName:
		return NewRandom(), nil
	default:
		return nil, fmt.Errorf("unknown reader picker %q", name)
	}
}
