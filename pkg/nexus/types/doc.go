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

// Package types defines the request model, the outcome and status enums, and the sentinel error
// taxonomy shared by every layer of the nexus data plane.
//
// The types here are deliberately small and free of behavior: they form the vocabulary that the
// dispatch engine, the replica registry, and device implementations use to talk to each other.
package types
