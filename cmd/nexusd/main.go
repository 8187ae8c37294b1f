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

// nexusd serves one or more replicated logical block devices over in-memory replica children,
// exposing Prometheus metrics and shutting down gracefully on SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	logutil "github.com/CoCreate-app/CoCreate-openebs/pkg/common/logging"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/child"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/device/memdisk"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/dispatch"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/metrics"
	"github.com/CoCreate-app/CoCreate-openebs/pkg/nexus/registry"
	"github.com/CoCreate-app/CoCreate-openebs/version"
)

func main() {
	var (
		configPath  = pflag.String("config", "", "Path to the daemon configuration file.")
		metricsAddr = pflag.String("metrics-addr", ":9600", "Address to serve Prometheus metrics on.")
		verbosity   = pflag.Int("v", logutil.DEFAULT, "Log verbosity.")
		devLogging  = pflag.Bool("dev-logging", false, "Use console log encoding instead of JSON.")
	)
	pflag.Parse()

	logger := logutil.NewLogger(*verbosity, *devLogging)
	logger.Info("Starting nexusd", "commit", version.CommitSHA, "buildRef", version.BuildRef)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logutil.Fatal(logger, err, "Failed to load configuration", "path", *configPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(logger)
	opener := memdisk.NewOpener()

	var engines sync.WaitGroup
	for _, spec := range cfg.Nexuses {
		nx := registry.NewNexus(spec.Name, logger)
		for _, cs := range spec.Children {
			handle, err := opener.Open(ctx, cs.URI)
			if err != nil {
				logutil.Fatal(logger, err, "Failed to open child device", "nexus", spec.Name, "uri", cs.URI)
			}
			c := child.New(handle.Name(), handle)
			// Freshly created devices hold no data to sync.
			c.SetOpen()
			if err := nx.AddChild(ctx, c); err != nil {
				logutil.Fatal(logger, err, "Failed to attach child", "nexus", spec.Name, "child", handle.Name())
			}
		}
		if err := reg.Register(nx); err != nil {
			logutil.Fatal(logger, err, "Failed to register nexus", "nexus", spec.Name)
		}

		var opts []dispatch.ConfigOption
		if spec.Workers > 0 {
			opts = append(opts, dispatch.WithWorkers(spec.Workers))
		}
		if spec.Picker != "" {
			opts = append(opts, dispatch.WithPicker(spec.Picker))
		}
		engineCfg, err := dispatch.NewConfig(opts...)
		if err != nil {
			logutil.Fatal(logger, err, "Invalid engine configuration", "nexus", spec.Name)
		}
		engine, err := dispatch.NewEngine(nx, reg, engineCfg, logger)
		if err != nil {
			logutil.Fatal(logger, err, "Failed to construct engine", "nexus", spec.Name)
		}
		engines.Add(1)
		go func() {
			defer engines.Done()
			engine.Run(ctx)
		}()
		logger.Info("Nexus serving", "nexus", spec.Name, "children", len(spec.Children), "status", nx.Status())
	}

	promRegistry := prometheus.NewRegistry()
	metrics.Register(promRegistry)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		logger.Info("Serving metrics", "addr", *metricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutil.Fatal(logger, err, "Metrics server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "Metrics server shutdown failed")
	}
	engines.Wait()
	reg.WaitRetirements()
	logger.Info("Shutdown complete")
}
