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

// Package mocks provides mocks for the interfaces defined in the `contracts` package.
//
// The dispatch engine is a concurrent orchestrator with partial-failure semantics; testing it
// reliably requires mocks that let tests capture submissions and fire completions deterministically
// rather than simple stubs. MockDeviceHandle therefore records every accepted submission (callback
// and token included) so a test can complete child operations in any order and at any moment,
// making race windows reproducible.
package mocks

import (
	"context"
	"sync"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts"
)

// Submission records one accepted submission against a MockDeviceHandle, including everything a
// test needs to later complete it.
type Submission struct {
	Op        string // "read", "write", "write_zeroes", "unmap", "reset"
	Offset    uint64
	NumBlocks uint64
	Buffers   [][]byte
	Callback  contracts.CompletionCallback
	Token     uint64
}

// Complete delivers the completion for this submission with the given result.
func (s Submission) Complete(c contracts.Completion) {
	c.Token = s.Token
	s.Callback(c)
}

// MockDeviceHandle is a stateful, thread-safe mock of contracts.DeviceHandle.
//
// By default every submission is accepted and recorded; nothing completes until the test fires the
// recorded callback. Function fields (e.g. SubmitWriteFunc) override individual methods to inject
// submission errors. When Submissions is non-nil, each accepted submission is also sent there,
// which lets tests block until the engine has actually submitted.
type MockDeviceHandle struct {
	NameV string

	// Submissions, when non-nil, receives every accepted submission.
	Submissions chan Submission

	SubmitReadFunc        func(offset, numBlocks uint64, buffers [][]byte, cb contracts.CompletionCallback, token uint64) error
	SubmitWriteFunc       func(offset, numBlocks uint64, buffers [][]byte, cb contracts.CompletionCallback, token uint64) error
	SubmitWriteZeroesFunc func(offset, numBlocks uint64, cb contracts.CompletionCallback, token uint64) error
	SubmitUnmapFunc       func(offset, numBlocks uint64, cb contracts.CompletionCallback, token uint64) error
	SubmitResetFunc       func(cb contracts.CompletionCallback, token uint64) error
	CreateSnapshotFunc    func(ctx context.Context) (int64, error)
	CloseFunc             func(ctx context.Context) error

	mu       sync.Mutex
	accepted []Submission
	closed   bool
}

var _ contracts.DeviceHandle = &MockDeviceHandle{}

func (m *MockDeviceHandle) Name() string { return m.NameV }

// Accepted returns a snapshot of every submission accepted so far.
func (m *MockDeviceHandle) Accepted() []Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Submission, len(m.accepted))
	copy(out, m.accepted)
	return out
}

// Closed reports whether Close has been called.
func (m *MockDeviceHandle) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockDeviceHandle) record(s Submission) {
	m.mu.Lock()
	m.accepted = append(m.accepted, s)
	m.mu.Unlock()
	if m.Submissions != nil {
		m.Submissions <- s
	}
}

func (m *MockDeviceHandle) SubmitRead(
	offset, numBlocks uint64, buffers [][]byte, cb contracts.CompletionCallback, token uint64,
) error {
	if m.SubmitReadFunc != nil {
		if err := m.SubmitReadFunc(offset, numBlocks, buffers, cb, token); err != nil {
			return err
		}
	}
	m.record(Submission{Op: "read", Offset: offset, NumBlocks: numBlocks, Buffers: buffers, Callback: cb, Token: token})
	return nil
}

func (m *MockDeviceHandle) SubmitWrite(
	offset, numBlocks uint64, buffers [][]byte, cb contracts.CompletionCallback, token uint64,
) error {
	if m.SubmitWriteFunc != nil {
		if err := m.SubmitWriteFunc(offset, numBlocks, buffers, cb, token); err != nil {
			return err
		}
	}
	m.record(Submission{Op: "write", Offset: offset, NumBlocks: numBlocks, Buffers: buffers, Callback: cb, Token: token})
	return nil
}

func (m *MockDeviceHandle) SubmitWriteZeroes(
	offset, numBlocks uint64, cb contracts.CompletionCallback, token uint64,
) error {
	if m.SubmitWriteZeroesFunc != nil {
		if err := m.SubmitWriteZeroesFunc(offset, numBlocks, cb, token); err != nil {
			return err
		}
	}
	m.record(Submission{Op: "write_zeroes", Offset: offset, NumBlocks: numBlocks, Callback: cb, Token: token})
	return nil
}

func (m *MockDeviceHandle) SubmitUnmap(
	offset, numBlocks uint64, cb contracts.CompletionCallback, token uint64,
) error {
	if m.SubmitUnmapFunc != nil {
		if err := m.SubmitUnmapFunc(offset, numBlocks, cb, token); err != nil {
			return err
		}
	}
	m.record(Submission{Op: "unmap", Offset: offset, NumBlocks: numBlocks, Callback: cb, Token: token})
	return nil
}

func (m *MockDeviceHandle) SubmitReset(cb contracts.CompletionCallback, token uint64) error {
	if m.SubmitResetFunc != nil {
		if err := m.SubmitResetFunc(cb, token); err != nil {
			return err
		}
	}
	m.record(Submission{Op: "reset", Callback: cb, Token: token})
	return nil
}

func (m *MockDeviceHandle) CreateSnapshot(ctx context.Context) (int64, error) {
	if m.CreateSnapshotFunc != nil {
		return m.CreateSnapshotFunc(ctx)
	}
	return 0, nil
}

func (m *MockDeviceHandle) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc(ctx)
	}
	return nil
}

// MockDeviceOpener is a stub-style mock for contracts.DeviceOpener.
type MockDeviceOpener struct {
	OpenFunc func(ctx context.Context, uri string) (contracts.DeviceHandle, error)
}

var _ contracts.DeviceOpener = &MockDeviceOpener{}

func (m *MockDeviceOpener) Open(ctx context.Context, uri string) (contracts.DeviceHandle, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(ctx, uri)
	}
	return &MockDeviceHandle{NameV: uri}, nil
}
