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

package bridge

import (
	"github.com/nuclio/metricbridge/pkg/management"
	"github.com/nuclio/metricbridge/pkg/management/platform"
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// JobFactory creates the job polling a configuration
type JobFactory interface {
	Create(configuration metricconfig.Configuration) (Job, error)
}

// JobFactoryOption customizes a MetricJobFactory
type JobFactoryOption func(*MetricJobFactory)

// WithServer reads attributes from the given server instead of the platform server
func WithServer(server management.Server) JobFactoryOption {
	return func(mjf *MetricJobFactory) {
		mjf.server = server
	}
}

// WithDimensions tags every metric with the given dimensions instead of the default ones
func WithDimensions(dimensions []metricsink.Dimension) JobFactoryOption {
	return func(mjf *MetricJobFactory) {
		mjf.dimensions = dimensions
	}
}

func WithErrorHandler(errorHandler ErrorHandler) JobFactoryOption {
	return func(mjf *MetricJobFactory) {
		mjf.errorHandler = errorHandler
	}
}

func WithObserver(observer RunObserver) JobFactoryOption {
	return func(mjf *MetricJobFactory) {
		mjf.observer = observer
	}
}

// MetricJobFactory creates metric jobs sharing a server, tracker, dimensions and error handler
type MetricJobFactory struct {
	logger       logger.Logger
	server       management.Server
	tracker      metricsink.Tracker
	dimensions   []metricsink.Dimension
	errorHandler ErrorHandler
	observer     RunObserver
}

func NewJobFactory(parentLogger logger.Logger,
	tracker metricsink.Tracker,
	options ...JobFactoryOption) (*MetricJobFactory, error) {

	if tracker == nil {
		return nil, errors.New("Job factory requires a tracker")
	}

	newFactory := &MetricJobFactory{
		logger:  parentLogger.GetChild("factory"),
		tracker: tracker,
	}

	for _, option := range options {
		option(newFactory)
	}

	if newFactory.server == nil {
		platformServer, err := platform.Server()
		if err != nil {
			return nil, errors.Wrap(err, "Failed to get platform management server")
		}

		newFactory.server = platformServer
	}

	if newFactory.dimensions == nil {
		newFactory.dimensions = metricsink.DefaultDimensions()
	}

	if newFactory.errorHandler == nil {
		loggingErrorHandler, err := NewLoggingErrorHandler(parentLogger.GetChild("errors"), "warn")
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create default error handler")
		}

		newFactory.errorHandler = loggingErrorHandler
	}

	return newFactory, nil
}

// Create returns a job for the configuration, or a ConfigurationError if it cannot be polled
func (mjf *MetricJobFactory) Create(configuration metricconfig.Configuration) (Job, error) {
	job, err := NewMetricJob(configuration,
		mjf.server,
		mjf.tracker,
		mjf.dimensions,
		mjf.errorHandler,
		mjf.observer)
	if err != nil {
		return nil, err
	}

	mjf.logger.DebugWith("Created job",
		"id", job.GetID(),
		"metricName", configuration.MetricName,
		"frequency", configuration.Frequency)

	return job, nil
}

// GetDimensions returns the dimensions attached to every metric
func (mjf *MetricJobFactory) GetDimensions() []metricsink.Dimension {
	return mjf.dimensions
}
