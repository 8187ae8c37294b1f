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

package dispatch

import (
	"fmt"
	"runtime"

	"k8s.io/utils/clock"

	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/channel/picker"
)

const (
	// defaultTaskQueueCapacity is the default size of a worker's task buffer. The buffer acts as a
	// shock absorber for completion bursts; senders fall back to an asynchronous post when it is
	// momentarily full, so callbacks never block on it.
	defaultTaskQueueCapacity = 256
)

// Config holds the configuration for an `Engine`.
type Config struct {
	// Workers is the number of single-goroutine dispatch workers. Each worker owns a private
	// channel view and picker instance, and processes only requests it admitted.
	// Optional: Defaults to `runtime.GOMAXPROCS(0)`.
	Workers int

	// TaskQueueCapacity is the size of each worker's buffered task queue.
	// Optional: Defaults to `defaultTaskQueueCapacity` (256).
	TaskQueueCapacity int

	// Picker is the registered name of the reader selection policy. Each worker gets its own
	// instance.
	// Optional: Defaults to `picker.RoundRobinPickerName`.
	Picker string

	// Clock is the time source used for request duration accounting.
	// Optional: Defaults to the real clock. Tests inject a fake.
	Clock clock.PassiveClock
}

// ConfigOption is a functional option for configuring the Engine.
type ConfigOption func(*Config)

// NewConfig creates a new Config with the given options, applying defaults and validation.
func NewConfig(opts ...ConfigOption) (*Config, error) {
	c := &Config{
		Workers:           runtime.GOMAXPROCS(0),
		TaskQueueCapacity: defaultTaskQueueCapacity,
		Picker:            picker.RoundRobinPickerName,
		Clock:             clock.RealClock{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// WithWorkers sets the number of dispatch workers.
func WithWorkers(n int) ConfigOption {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithTaskQueueCapacity sets the size of each worker's task queue.
func WithTaskQueueCapacity(size int) ConfigOption {
	return func(c *Config) {
		c.TaskQueueCapacity = size
	}
}

// WithPicker sets the reader selection policy by registered name.
func WithPicker(name string) ConfigOption {
	return func(c *Config) {
		c.Picker = name
	}
}

// WithClock sets the engine's time source.
func WithClock(clk clock.PassiveClock) ConfigOption {
	return func(c *Config) {
		c.Clock = clk
	}
}

// validate checks the configuration for validity.
func (c *Config) validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("Workers must be positive, got %d", c.Workers)
	}
	if c.TaskQueueCapacity <= 0 {
		return fmt.Errorf("TaskQueueCapacity must be positive, got %d", c.TaskQueueCapacity)
	}
	if c.Clock == nil {
		return fmt.Errorf("Clock must not be nil")
	}
	// Fail fast on unknown picker names rather than at first worker construction.
	if _, err := picker.NewFromName(c.Picker); err != nil {
		return err
	}
	return nil
}
