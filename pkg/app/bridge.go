/*
Copyright 2023 The Nuclio Authors.

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

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nuclio/metricbridge/pkg/bridge"
	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/errgroup"
	"github.com/nuclio/metricbridge/pkg/healthcheck"
	"github.com/nuclio/metricbridge/pkg/management"
	"github.com/nuclio/metricbridge/pkg/management/platform"
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"
	"github.com/nuclio/metricbridge/pkg/webadmin"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"

	// load metric sinks
	_ "github.com/nuclio/metricbridge/pkg/metricsink/appinsights"
	_ "github.com/nuclio/metricbridge/pkg/metricsink/nats"
	_ "github.com/nuclio/metricbridge/pkg/metricsink/prometheus/pull"
	_ "github.com/nuclio/metricbridge/pkg/metricsink/prometheus/push"
	_ "github.com/nuclio/metricbridge/pkg/metricsink/stdout"
)

const stopTimeout = 10 * time.Second

// Option customizes a bridge
type Option func(*Bridge)

// WithManagementServer reads attributes from the given server instead of the platform server
func WithManagementServer(server management.Server) Option {
	return func(b *Bridge) {
		b.server = server
	}
}

// WithMetricsPath overrides the metric configuration path of the process configuration
func WithMetricsPath(metricsPath string) Option {
	return func(b *Bridge) {
		if metricsPath != "" {
			b.configuration.Metrics.Path = metricsPath
		}
	}
}

// Bridge wires the scheduler to its sinks, servers and configuration source
type Bridge struct {
	logger        logger.Logger
	configuration *bridgeconfig.Configuration
	server        management.Server
	metricSink    metricsink.MetricSink
	selfMetrics   *bridge.SelfMetrics
	executor      *bridge.CronExecutor
	scheduler     *bridge.Scheduler
	webAdmin      *webadmin.Server
	healthCheck   *healthcheck.Server
}

func NewBridge(parentLogger logger.Logger,
	configuration *bridgeconfig.Configuration,
	options ...Option) (*Bridge, error) {
	var err error

	newBridge := &Bridge{
		logger:        parentLogger.GetChild("bridge"),
		configuration: configuration,
	}

	for _, option := range options {
		option(newBridge)
	}

	if err := configuration.Validate(); err != nil {
		return nil, errors.Wrap(err, "Invalid bridge configuration")
	}

	if newBridge.server == nil {
		newBridge.server, err = platform.Server()
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create management server")
		}
	}

	newBridge.metricSink, err = createMetricSink(newBridge.logger, configuration)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create metric sink")
	}

	newBridge.selfMetrics, err = bridge.NewSelfMetrics()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create self metrics")
	}

	errorHandler, err := newBridge.createErrorHandler()
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create error handler")
	}

	factory, err := bridge.NewJobFactory(newBridge.logger,
		newBridge.metricSink,
		bridge.WithServer(newBridge.server),
		bridge.WithDimensions(newBridge.createDimensions()),
		bridge.WithErrorHandler(errorHandler),
		bridge.WithObserver(newBridge.selfMetrics))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create job factory")
	}

	newBridge.executor, err = bridge.NewCronExecutor(newBridge.logger, configuration.Scheduler.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create executor")
	}

	newBridge.scheduler, err = bridge.NewScheduler(newBridge.logger,
		factory,
		newBridge.executor,
		bridge.WithActiveJobsObserver(newBridge.selfMetrics.ObserveActiveJobs))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create scheduler")
	}

	newBridge.webAdmin, err = webadmin.NewServer(newBridge.logger,
		&configuration.WebAdmin,
		newBridge.scheduler,
		newBridge.LoadConfigurations,
		newBridge.selfMetrics.Handler())
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create web admin server")
	}

	newBridge.healthCheck, err = healthcheck.NewServer(newBridge.logger, newBridge.scheduler, &configuration.HealthCheck)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create health check server")
	}

	return newBridge, nil
}

// LoadConfigurations reads the metric configuration file, or the embedded defaults if none is configured
func (b *Bridge) LoadConfigurations() ([]metricconfig.Configuration, error) {
	if b.configuration.Metrics.Path == "" {
		return metricconfig.Defaults(), nil
	}

	return metricconfig.LoadFile(b.configuration.Metrics.Path)
}

// Reload re-reads the metric configuration source and replaces the running jobs
func (b *Bridge) Reload() error {
	if _, err := platform.RefreshExpvars(); err != nil {
		b.logger.WarnWith("Failed to refresh published variables", "err", err.Error())
	}

	configurations, err := b.LoadConfigurations()
	if err != nil {
		return err
	}

	return b.scheduler.Monitor(configurations)
}

// Start starts the sink and servers and schedules the configured metrics
func (b *Bridge) Start() error {
	if err := b.metricSink.Start(); err != nil {
		return errors.Wrap(err, "Failed to start metric sink")
	}

	if err := b.Reload(); err != nil {
		return b.stopAfterFailedStart(errors.Wrap(err, "Failed to monitor metrics"))
	}

	if err := b.webAdmin.Start(); err != nil {
		return b.stopAfterFailedStart(errors.Wrap(err, "Failed to start web admin server"))
	}

	if err := b.healthCheck.Start(); err != nil {
		return b.stopAfterFailedStart(errors.Wrap(err, "Failed to start health check server"))
	}

	b.logger.InfoWith("Bridge started",
		"jobs", b.scheduler.ActiveJobCount(),
		"sink", b.metricSink.GetName())

	return nil
}

// Stop cancels all jobs, waits for runs in progress and stops the servers and the sink
func (b *Bridge) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := b.scheduler.Shutdown(); err != nil {
		b.logger.WarnWith("Failed to shut down scheduler", "err", err.Error())
	}

	if err := b.executor.ShutdownAndWait(ctx); err != nil {
		b.logger.WarnWith("Runs still in progress", "err", err.Error())
	}

	if err := b.webAdmin.Stop(ctx); err != nil {
		b.logger.WarnWith("Failed to stop web admin server", "err", err.Error())
	}

	if err := b.healthCheck.Stop(ctx); err != nil {
		b.logger.WarnWith("Failed to stop health check server", "err", err.Error())
	}

	select {
	case <-b.metricSink.Stop():
	case <-ctx.Done():
		return errors.New("Timed out waiting for metric sink to stop")
	}

	b.logger.Info("Bridge stopped")

	return nil
}

// Run starts the bridge and blocks until the context is done. If configured, SIGHUP reloads the
// metric configuration
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Start(); err != nil {
		return err
	}

	errGroup, errGroupCtx := errgroup.WithContext(ctx, b.logger)

	if b.configuration.Metrics.ShouldReloadOnSignal() {
		errGroup.Go("reload on signal", func() error {
			b.reloadOnSignal(errGroupCtx)
			return nil
		})
	}

	errGroup.Go("wait for stop", func() error {
		<-errGroupCtx.Done()
		return nil
	})

	if err := errGroup.Wait(); err != nil {
		b.logger.WarnWith("Bridge failed", "err", errors.GetErrorStackString(err, 10))
	}

	return b.Stop()
}

// stopAfterFailedStart releases whatever Start already started and returns the start error
func (b *Bridge) stopAfterFailedStart(startErr error) error {
	if err := b.Stop(); err != nil {
		b.logger.WarnWith("Failed to stop after a failed start", "err", err.Error())
	}

	return startErr
}

func (b *Bridge) GetScheduler() *bridge.Scheduler {
	return b.scheduler
}

func (b *Bridge) GetMetricSink() metricsink.MetricSink {
	return b.metricSink
}

func (b *Bridge) reloadOnSignal(ctx context.Context) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP)
	defer signal.Stop(signals)

	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			b.logger.InfoWith("Reloading metric configuration", "path", b.configuration.Metrics.Path)

			if err := b.Reload(); err != nil {
				b.logger.WarnWith("Failed to reload metric configuration, keeping current jobs",
					"err", errors.GetErrorStackString(err, 10))
			}
		}
	}
}

func (b *Bridge) createDimensions() []metricsink.Dimension {
	var base []metricsink.Dimension

	if b.configuration.UseDefaultDimensions() {
		base = metricsink.DefaultDimensions()
	}

	return metricsink.MergeDimensions(base, b.configuration.Dimensions)
}

func (b *Bridge) createErrorHandler() (bridge.ErrorHandler, error) {
	loggingErrorHandler, err := bridge.NewLoggingErrorHandler(b.logger.GetChild("errors"),
		b.configuration.ErrorHandler.Level)
	if err != nil {
		return nil, err
	}

	// sinks that record failures get them too
	if errorTracker, isErrorTracker := b.metricSink.(metricsink.ErrorTracker); isErrorTracker {
		return bridge.NewMultiErrorHandler(loggingErrorHandler, bridge.NewSinkErrorHandler(errorTracker)), nil
	}

	return loggingErrorHandler, nil
}
