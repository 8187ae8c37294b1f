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

// Package registry owns the control-plane state of the data plane: the set of live nexuses, each
// nexus's ordered children, the admission pause gate, and the asynchronous child retirement
// protocol.
//
// # Retirement and re-resolution
//
// Retirement is always triggered with identifiers (nexus name, child name) captured at failure
// time, never with live references: by the time the retirement task runs, a concurrent control
// operation may have removed the nexus or the child. Every step after a suspension point
// re-resolves through the registry and abandons quietly when the target has vanished. The single
// serialization point is the child's atomic Open → Faulted transition; everything else is
// idempotent or merely redundant under concurrent invocation.
package registry
