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

// Package memdisk provides an in-memory replica device. It backs the standalone daemon and
// integration-style tests, and supports error injection to drive the failure paths.
//
// Completions are delivered asynchronously from a fresh goroutine, matching the fire-and-forget
// submission contract of real devices.
package memdisk

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"k8s.io/utils/clock"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/contracts"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/types"
)

const (
	// Scheme is the URI scheme the Opener serves.
	Scheme = "mem"

	defaultBlocks    = 1024
	defaultBlockSize = 512
)

// compile-time type validation
var (
	_ contracts.DeviceHandle = &Disk{}
	_ contracts.DeviceOpener = &Opener{}
)

// Disk is one in-memory replica device.
type Disk struct {
	name      string
	blocks    uint64
	blockSize uint64
	clock     clock.PassiveClock

	mu     sync.Mutex
	data   []byte
	closed bool

	// Injected faults, test hooks. submitErr rejects submissions outright; completionErr accepts
	// them and delivers failed completions.
	submitErr     error
	completionErr error
}

// DiskOption is a functional option for configuring a Disk.
type DiskOption func(*Disk)

// WithClock sets the disk's time source, used for snapshot timestamps.
func WithClock(clk clock.PassiveClock) DiskOption {
	return func(d *Disk) {
		d.clock = clk
	}
}

// New creates a zero-filled in-memory disk of blocks * blockSize bytes.
func New(name string, blocks, blockSize uint64, opts ...DiskOption) *Disk {
	d := &Disk{
		name:      name,
		blocks:    blocks,
		blockSize: blockSize,
		clock:     clock.RealClock{},
		data:      make([]byte, blocks*blockSize),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the replica device name.
func (d *Disk) Name() string { return d.name }

// Blocks returns the device capacity in blocks.
func (d *Disk) Blocks() uint64 { return d.blocks }

// BlockSize returns the device block size in bytes.
func (d *Disk) BlockSize() uint64 { return d.blockSize }

// InjectSubmitError makes every subsequent submission be rejected with err. Pass nil to heal.
func (d *Disk) InjectSubmitError(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.submitErr = err
}

// InjectCompletionFailure makes every subsequent accepted operation complete unsuccessfully with
// err. Pass nil to heal.
func (d *Disk) InjectCompletionFailure(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.completionErr = err
}

// accept validates a submission under the lock and returns the completion failure to deliver, if
// one is injected.
func (d *Disk) accept(offset, numBlocks uint64, buffers [][]byte, needBuffers bool) (error, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: device %q is closed", types.ErrDeviceFailed, d.name), nil
	}
	if d.submitErr != nil {
		return d.submitErr, nil
	}
	// Ordered so that offset+numBlocks is never computed; the sum can wrap.
	if numBlocks > d.blocks || offset > d.blocks-numBlocks {
		return fmt.Errorf("%w: range of %d blocks at offset %d exceeds device %q capacity of %d blocks",
			types.ErrInvalidArgument, numBlocks, offset, d.name, d.blocks), nil
	}
	if needBuffers {
		var total uint64
		for _, b := range buffers {
			total += uint64(len(b))
		}
		if total != numBlocks*d.blockSize {
			return fmt.Errorf("%w: buffers carry %d bytes for %d blocks of %d bytes",
				types.ErrInvalidArgument, total, numBlocks, d.blockSize), nil
		}
	}
	return nil, d.completionErr
}

// complete delivers the completion asynchronously, running op under the lock first when the
// operation is healthy.
func (d *Disk) complete(cb contracts.CompletionCallback, token uint64, failure error, op func()) {
	go func() {
		if failure == nil && op != nil {
			d.mu.Lock()
			op()
			d.mu.Unlock()
		}
		cb(contracts.Completion{
			Child:   d.name,
			Token:   token,
			Success: failure == nil,
			Err:     failure,
		})
	}()
}

// SubmitRead reads numBlocks starting at offset into the scatter/gather buffers.
func (d *Disk) SubmitRead(offset, numBlocks uint64, buffers [][]byte, cb contracts.CompletionCallback, token uint64) error {
	reject, failure := d.accept(offset, numBlocks, buffers, true)
	if reject != nil {
		return reject
	}
	d.complete(cb, token, failure, func() {
		src := d.data[offset*d.blockSize:]
		for _, b := range buffers {
			copy(b, src[:len(b)])
			src = src[len(b):]
		}
	})
	return nil
}

// SubmitWrite writes the scatter/gather buffers over numBlocks starting at offset.
func (d *Disk) SubmitWrite(offset, numBlocks uint64, buffers [][]byte, cb contracts.CompletionCallback, token uint64) error {
	reject, failure := d.accept(offset, numBlocks, buffers, true)
	if reject != nil {
		return reject
	}
	d.complete(cb, token, failure, func() {
		dst := d.data[offset*d.blockSize:]
		for _, b := range buffers {
			copy(dst[:len(b)], b)
			dst = dst[len(b):]
		}
	})
	return nil
}

// SubmitWriteZeroes zeroes numBlocks starting at offset.
func (d *Disk) SubmitWriteZeroes(offset, numBlocks uint64, cb contracts.CompletionCallback, token uint64) error {
	reject, failure := d.accept(offset, numBlocks, nil, false)
	if reject != nil {
		return reject
	}
	d.complete(cb, token, failure, func() { d.zero(offset, numBlocks) })
	return nil
}

// SubmitUnmap deallocates numBlocks starting at offset. For an in-memory device that is the same
// as zeroing the range.
func (d *Disk) SubmitUnmap(offset, numBlocks uint64, cb contracts.CompletionCallback, token uint64) error {
	reject, failure := d.accept(offset, numBlocks, nil, false)
	if reject != nil {
		return reject
	}
	d.complete(cb, token, failure, func() { d.zero(offset, numBlocks) })
	return nil
}

// SubmitReset resets the device. Nothing is pending for an in-memory device.
func (d *Disk) SubmitReset(cb contracts.CompletionCallback, token uint64) error {
	reject, failure := d.accept(0, 0, nil, false)
	if reject != nil {
		return reject
	}
	d.complete(cb, token, failure, nil)
	return nil
}

func (d *Disk) zero(offset, numBlocks uint64) {
	region := d.data[offset*d.blockSize : (offset+numBlocks)*d.blockSize]
	for i := range region {
		region[i] = 0
	}
}

// CreateSnapshot records a point-in-time snapshot and returns its creation timestamp. The
// in-memory device keeps no snapshot content; the timestamp is what names the snapshot upstream.
func (d *Disk) CreateSnapshot(context.Context) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, fmt.Errorf("%w: device %q is closed", types.ErrDeviceFailed, d.name)
	}
	if d.submitErr != nil {
		return 0, d.submitErr
	}
	return d.clock.Now().Unix(), nil
}

// Close releases the device. Subsequent submissions are rejected.
func (d *Disk) Close(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: device %q already closed", types.ErrDeviceFailed, d.name)
	}
	d.closed = true
	return nil
}

// Opener creates in-memory disks from URIs of the form
// mem:///name?blocks=1024&blk_size=512. Missing parameters fall back to the opener's defaults.
type Opener struct {
	clock clock.PassiveClock
}

// NewOpener creates an Opener using the real clock for snapshot timestamps.
func NewOpener() *Opener {
	return &Opener{clock: clock.RealClock{}}
}

// Open creates the in-memory disk described by uri.
func (o *Opener) Open(_ context.Context, uri string) (contracts.DeviceHandle, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing device URI %q: %w", types.ErrInvalidArgument, uri, err)
	}
	if u.Scheme != Scheme {
		return nil, fmt.Errorf("%w: unsupported device URI scheme %q", types.ErrInvalidArgument, u.Scheme)
	}
	name := u.Host
	if name == "" {
		name = u.Path
	}
	name = trimSlashes(name)
	if name == "" {
		return nil, fmt.Errorf("%w: device URI %q carries no name", types.ErrInvalidArgument, uri)
	}

	blocks, err := queryUint(u, "blocks", defaultBlocks)
	if err != nil {
		return nil, err
	}
	blockSize, err := queryUint(u, "blk_size", defaultBlockSize)
	if err != nil {
		return nil, err
	}
	return New(name, blocks, blockSize, WithClock(o.clock)), nil
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	return s
}

func queryUint(u *url.URL, key string, def uint64) (uint64, error) {
	raw := u.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("%w: device URI parameter %s=%q", types.ErrInvalidArgument, key, raw)
	}
	return v, nil
}
