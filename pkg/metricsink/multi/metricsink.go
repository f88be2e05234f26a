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

// Package multi fans readings out to several sinks
package multi

import (
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/hashicorp/go-multierror"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

const Kind = "multi"

// MetricSink tracks every reading on all of its sinks. A failing sink does not prevent the others
// from receiving the reading
type MetricSink struct {
	*metricsink.AbstractMetricSink
	metricSinks []metricsink.MetricSink
}

func NewMetricSink(parentLogger logger.Logger, name string, metricSinks []metricsink.MetricSink) (*MetricSink, error) {
	if len(metricSinks) == 0 {
		return nil, errors.New("Multi metric sink requires at least one metric sink")
	}

	newAbstractMetricSink, err := metricsink.NewAbstractMetricSink(parentLogger.GetChild(name), Kind, name)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create abstract metric sink")
	}

	return &MetricSink{
		AbstractMetricSink: newAbstractMetricSink,
		metricSinks:        metricSinks,
	}, nil
}

func (ms *MetricSink) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	var trackErrors *multierror.Error

	for _, metricSink := range ms.metricSinks {
		if err := metricSink.Track(metricName, value, unit, dimensions); err != nil {
			trackErrors = multierror.Append(trackErrors,
				errors.Wrapf(err, "Metric sink %s failed to track: %s", metricSink.GetName(), err.Error()))
		}
	}

	return trackErrors.ErrorOrNil()
}

// TrackError forwards a failure to the sinks that record failures
func (ms *MetricSink) TrackError(message string, cause error) {
	for _, metricSink := range ms.metricSinks {
		if errorTracker, isErrorTracker := metricSink.(metricsink.ErrorTracker); isErrorTracker {
			errorTracker.TrackError(message, cause)
		}
	}
}

func (ms *MetricSink) Start() error {
	for startedIndex, metricSink := range ms.metricSinks {
		if err := metricSink.Start(); err != nil {

			// don't leave the sinks that did start running
			for _, startedMetricSink := range ms.metricSinks[:startedIndex] {
				<-startedMetricSink.Stop()
			}

			return errors.Wrapf(err, "Failed to start metric sink %s", metricSink.GetName())
		}
	}

	return nil
}

// Stop stops all sinks, the returned channel is closed once all of them stopped
func (ms *MetricSink) Stop() chan struct{} {
	ms.AbstractMetricSink.Stop()

	stoppedChannels := make([]chan struct{}, 0, len(ms.metricSinks))
	for _, metricSink := range ms.metricSinks {
		stoppedChannels = append(stoppedChannels, metricSink.Stop())
	}

	go func() {
		for _, stoppedChannel := range stoppedChannels {
			<-stoppedChannel
		}

		ms.MarkStopped()
	}()

	return ms.StoppedChannel
}

// GetMetricSinks returns the sinks readings are fanned out to
func (ms *MetricSink) GetMetricSinks() []metricsink.MetricSink {
	return ms.metricSinks
}
