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

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config describes the nexuses the daemon serves.
type Config struct {
	Nexuses []NexusSpec `yaml:"nexuses"`
}

// NexusSpec describes one logical block device and its replica children.
type NexusSpec struct {
	// Name is the logical device name. Required, unique.
	Name string `yaml:"name"`

	// Picker is the registered name of the reader selection policy.
	// Optional: Defaults to round-robin.
	Picker string `yaml:"picker,omitempty"`

	// Workers is the number of dispatch workers for this nexus.
	// Optional: Defaults to GOMAXPROCS.
	Workers int `yaml:"workers,omitempty"`

	// Children lists the replica device URIs, e.g. mem:///replica-0?blocks=1024&blk_size=512.
	// Required, at least one.
	Children []ChildSpec `yaml:"children"`
}

// ChildSpec describes one replica device.
type ChildSpec struct {
	// URI locates the replica device. Required.
	URI string `yaml:"uri"`
}

// LoadConfig reads and validates the daemon configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Nexuses) == 0 {
		return fmt.Errorf("no nexuses configured")
	}
	seen := make(map[string]struct{}, len(c.Nexuses))
	for i, n := range c.Nexuses {
		if n.Name == "" {
			return fmt.Errorf("nexuses[%d]: name is required", i)
		}
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("nexuses[%d]: duplicate name %q", i, n.Name)
		}
		seen[n.Name] = struct{}{}
		if n.Workers < 0 {
			return fmt.Errorf("nexus %q: workers must not be negative", n.Name)
		}
		if len(n.Children) == 0 {
			return fmt.Errorf("nexus %q: at least one child is required", n.Name)
		}
		for j, ch := range n.Children {
			if ch.URI == "" {
				return fmt.Errorf("nexus %q: children[%d]: uri is required", n.Name, j)
			}
		}
	}
	return nil
}
