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

// Package contracts defines the service interfaces the nexus data plane consumes from the
// underlying block-device layer.
//
// The nexus engine is deliberately decoupled from any concrete device implementation: it submits
// asynchronous operations through DeviceHandle and receives exactly one completion callback per
// accepted submission. Only an opaque token crosses the callback boundary; the owned request state
// stays inside the engine.
package contracts
