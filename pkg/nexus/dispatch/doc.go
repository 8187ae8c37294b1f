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

// Package dispatch implements the nexus I/O engine: admission, routing, fan-out submission,
// completion disposition, and the trigger side of child retirement.
//
// # Execution model
//
// The engine runs a fixed set of workers. Each worker is a single-goroutine, run-to-completion
// task loop that exclusively owns everything it touches: its channel view of the replicas, its
// reader picker, and the contexts of every request it admitted. There is no locking on the data
// path; cross-goroutine interaction happens by posting tasks onto a worker's queue. Device
// completions arrive on arbitrary goroutines and are trampolined onto the admitting worker's
// queue carrying only the request token, so all counter updates and the disposition decision
// execute on the owning worker.
//
// A request is bound to the worker that admits it and is finalized exactly once, when the
// disposition engine reaches a terminal action. Callers block on the request's done channel, not
// on the worker.
//
// # Failure handling
//
// A failed child completion marks the request Failed and, unless the device classified the
// failure as a refusal (unsupported or invalid operation), schedules the asynchronous retirement
// of the failing replica through the registry. Retirement never delays finalizing the parent
// request: a request with at least one successful replica still succeeds.
package dispatch
