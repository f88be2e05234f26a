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
	"time"

	"github.com/nuclio/metricbridge/pkg/attribute"
	"github.com/nuclio/metricbridge/pkg/management"
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nuclio/errors"
	"github.com/rs/xid"
)

// Job is a unit of recurring work scheduled by the scheduler
type Job interface {
	Task

	// GetID returns a unique identifier of the job
	GetID() string

	// GetConfiguration returns the configuration the job was created from
	GetConfiguration() metricconfig.Configuration

	// GetStatistics returns a snapshot of the job's run statistics
	GetStatistics() Statistics
}

// RunObserver is notified after every job run with the failure of that run, or nil
type RunObserver interface {
	ObserveRun(configuration metricconfig.Configuration, err error)
}

// MetricJob reads a single attribute and forwards it as a metric. Run never panics and
// never returns a failure; failures are handed to the error handler, exactly one per run
type MetricJob struct {
	id            string
	configuration metricconfig.Configuration
	objectName    management.ObjectName
	server        management.Server
	tracker       metricsink.Tracker
	dimensions    []metricsink.Dimension
	errorHandler  ErrorHandler
	observer      RunObserver
	statistics    Statistics
}

func NewMetricJob(configuration metricconfig.Configuration,
	server management.Server,
	tracker metricsink.Tracker,
	dimensions []metricsink.Dimension,
	errorHandler ErrorHandler,
	observer RunObserver) (*MetricJob, error) {

	objectName, err := management.ParseObjectName(configuration.ObjectName)
	if err != nil {
		return nil, metricconfig.NewConfigurationError(err, "Invalid object name for metric %s", configuration.MetricName)
	}

	if server == nil {
		return nil, errors.New("Metric job requires a management server")
	}

	if tracker == nil {
		return nil, errors.New("Metric job requires a tracker")
	}

	if errorHandler == nil {
		return nil, errors.New("Metric job requires an error handler")
	}

	return &MetricJob{
		id:            xid.New().String(),
		configuration: configuration,
		objectName:    objectName,
		server:        server,
		tracker:       tracker,
		dimensions:    dimensions,
		errorHandler:  errorHandler,
		observer:      observer,
	}, nil
}

func (mj *MetricJob) GetID() string {
	return mj.id
}

func (mj *MetricJob) GetConfiguration() metricconfig.Configuration {
	return mj.configuration
}

func (mj *MetricJob) GetStatistics() Statistics {
	return mj.statistics.Snapshot()
}

// Run performs a single poll-and-forward cycle
func (mj *MetricJob) Run() {
	now := time.Now()
	mj.statistics.recordRun(now)

	var runErr error

	if metricErr := mj.run(); metricErr != nil {
		mj.statistics.recordFailure(metricErr.Kind(), now)
		mj.errorHandler.HandleError(metricErr.Message(), metricErr)

		runErr = metricErr
	} else {
		mj.statistics.recordForwarded()
	}

	if mj.observer != nil {
		mj.observer.ObserveRun(mj.configuration, runErr)
	}
}

func (mj *MetricJob) run() *MetricError {
	metricName := mj.configuration.MetricName

	value, err := mj.read()
	if err != nil {
		return newMetricError(ReadFailure,
			metricName,
			err,
			"Failed to read attribute %s of %s for metric %s",
			mj.configuration.Attribute,
			mj.objectName.String(),
			metricName)
	}

	number, metricErr := mj.extract(value)
	if metricErr != nil {
		return metricErr
	}

	if err := mj.forward(number); err != nil {
		return newMetricError(ForwardFailure, metricName, err, "Failed to forward metric %s", metricName)
	}

	return nil
}

func (mj *MetricJob) read() (value attribute.Value, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Errorf("Panic while reading attribute: %v", recovered)
		}
	}()

	return mj.server.GetAttribute(mj.objectName, mj.configuration.Attribute)
}

func (mj *MetricJob) extract(value attribute.Value) (number float64, metricErr *MetricError) {
	metricName := mj.configuration.MetricName

	// composite values are supplied by the container, which may misbehave when queried
	defer func() {
		if recovered := recover(); recovered != nil {
			metricErr = newMetricError(ReadFailure,
				metricName,
				errors.Errorf("Panic while extracting value: %v", recovered),
				"Failed to read attribute %s of %s for metric %s",
				mj.configuration.Attribute,
				mj.objectName.String(),
				metricName)
		}
	}()

	if mj.configuration.HasCompositeKey() {
		if value.Kind() != attribute.KindRecord {
			return 0, newMetricError(ShapeMismatch,
				metricName,
				nil,
				"Metric %s is not a composite value, got %s",
				metricName,
				value.TypeName())
		}

		fieldValue, found := value.Field(mj.configuration.CompositeKey)
		if !found {
			return 0, newMetricError(ShapeMismatch,
				metricName,
				nil,
				"Metric %s has no field %s",
				metricName,
				mj.configuration.CompositeKey)
		}

		value = fieldValue
	}

	number, isNumber := value.Number()
	if !isNumber {
		return 0, newMetricError(ShapeMismatch,
			metricName,
			nil,
			"Metric %s is not a number, got %s",
			metricName,
			value.TypeName())
	}

	return number, nil
}

func (mj *MetricJob) forward(number float64) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = errors.Errorf("Panic while tracking metric: %v", recovered)
		}
	}()

	return mj.tracker.Track(mj.configuration.MetricName, number, mj.configuration.Unit, mj.dimensions)
}
