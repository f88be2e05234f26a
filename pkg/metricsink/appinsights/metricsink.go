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

package appinsights

import (
	"sync"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/Microsoft/ApplicationInsights-Go/appinsights"
	"github.com/Microsoft/ApplicationInsights-Go/appinsights/contracts"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

const unitPropertyName = "unit"

type telemetryTracker interface {
	Track(telemetry appinsights.Telemetry)
}

// MetricSink sends every reading as metric telemetry. Telemetry is batched and sent by the client
// in the background; Stop flushes what is pending
type MetricSink struct {
	*metricsink.AbstractMetricSink
	configuration *Configuration
	tracker       telemetryTracker
	closeChannel  func() <-chan struct{}
	closeOnce     sync.Once
}

func NewMetricSink(parentLogger logger.Logger, configuration *Configuration) (*MetricSink, error) {

	// create application insights client
	telemetryConfig := appinsights.NewTelemetryConfiguration(configuration.InstrumentationKey)
	telemetryConfig.MaxBatchSize = configuration.MaxBatchSize
	telemetryConfig.MaxBatchInterval = configuration.parsedMaxBatchInterval
	client := appinsights.NewTelemetryClientFromConfig(telemetryConfig)

	return newMetricSink(parentLogger, configuration, client, func() <-chan struct{} {
		return client.Channel().Close(configuration.parsedCloseTimeout)
	})
}

func newMetricSink(parentLogger logger.Logger,
	configuration *Configuration,
	tracker telemetryTracker,
	closeChannel func() <-chan struct{}) (*MetricSink, error) {
	newAbstractMetricSink, err := metricsink.NewAbstractMetricSink(parentLogger.GetChild(configuration.Name),
		Kind,
		configuration.Name)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create abstract metric sink")
	}

	newMetricSink := &MetricSink{
		AbstractMetricSink: newAbstractMetricSink,
		configuration:      configuration,
		tracker:            tracker,
		closeChannel:       closeChannel,
	}

	newMetricSink.Logger.InfoWith("Created",
		"maxBatchSize", configuration.MaxBatchSize,
		"maxBatchInterval", configuration.MaxBatchInterval)

	return newMetricSink, nil
}

func (ms *MetricSink) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	metricTelemetry := appinsights.NewMetricTelemetry(metricName, value)
	metricTelemetry.Properties[unitPropertyName] = unit.String()

	for _, dimension := range dimensions {
		metricTelemetry.Properties[dimension.Name] = dimension.Value
	}

	ms.tracker.Track(metricTelemetry)

	return nil
}

// TrackError sends a failure as warning trace telemetry
func (ms *MetricSink) TrackError(message string, cause error) {
	traceTelemetry := appinsights.NewTraceTelemetry(message, contracts.Warning)

	if cause != nil {
		traceTelemetry.Properties["cause"] = errors.GetErrorStackString(cause, 10)
	}

	ms.tracker.Track(traceTelemetry)
}

func (ms *MetricSink) Stop() chan struct{} {
	stoppedChannel := ms.AbstractMetricSink.Stop()

	ms.closeOnce.Do(func() {
		go func() {
			defer ms.MarkStopped()

			<-ms.closeChannel()
		}()
	})

	return stoppedChannel
}
