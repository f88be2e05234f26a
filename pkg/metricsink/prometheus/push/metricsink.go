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

package prometheuspush

import (
	"sync/atomic"
	"time"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"
	"github.com/nuclio/metricbridge/pkg/metricsink/prometheus"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	prometheusclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// MetricSink holds the latest reading of every metric as a gauge and pushes all of them to a
// push gateway periodically
type MetricSink struct {
	*metricsink.AbstractMetricSink
	configuration  *Configuration
	metricRegistry *prometheusclient.Registry
	gauges         *prometheus.GaugeSet
	pusher         *push.Pusher
	started        atomic.Bool
}

func NewMetricSink(parentLogger logger.Logger, configuration *Configuration) (*MetricSink, error) {
	loggerInstance := parentLogger.GetChild(configuration.Name)

	newAbstractMetricSink, err := metricsink.NewAbstractMetricSink(loggerInstance,
		Kind,
		configuration.Name)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create abstract metric sink")
	}

	metricRegistry := prometheusclient.NewRegistry()

	newMetricPusher := &MetricSink{
		AbstractMetricSink: newAbstractMetricSink,
		configuration:      configuration,
		metricRegistry:     metricRegistry,
		gauges:             prometheus.NewGaugeSet(metricRegistry, ""),
		pusher: push.New(configuration.URL, configuration.JobName).
			Gatherer(metricRegistry).
			Grouping("instance", configuration.InstanceName),
	}

	newMetricPusher.Logger.InfoWith("Created",
		"jobName", configuration.JobName,
		"instanceName", configuration.InstanceName,
		"pushGatewayURL", configuration.URL,
		"pushInterval", configuration.Interval)

	return newMetricPusher, nil
}

func (ms *MetricSink) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	return ms.gauges.Set(metricName, value, unit, dimensions)
}

func (ms *MetricSink) Start() error {
	if !*ms.configuration.Enabled {
		ms.Logger.DebugWith("Disabled, not starting")

		return nil
	}

	if !ms.started.CompareAndSwap(false, true) {
		return errors.New("Metric sink already started")
	}

	// push in the background
	go ms.pushPeriodically()

	return nil
}

func (ms *MetricSink) Stop() chan struct{} {
	stoppedChannel := ms.AbstractMetricSink.Stop()

	// nothing runs in the background
	if !ms.started.Load() {
		ms.MarkStopped()
	}

	return stoppedChannel
}

// Push pushes the current gauges. Add is used rather than Push so that metrics of this job
// pushed by others are kept
func (ms *MetricSink) Push() error {
	if err := ms.pusher.Add(); err != nil {
		return errors.Wrapf(err, "Failed to push metrics to %s", ms.configuration.URL)
	}

	return nil
}

func (ms *MetricSink) pushPeriodically() {

	// set when stop() is called and channel is closed
	done := false
	defer ms.MarkStopped()

	ms.Logger.DebugWith("Pushing periodically",
		"interval", ms.configuration.parsedInterval,
		"target", ms.configuration.URL)

	for !done {

		select {
		case <-time.After(ms.configuration.parsedInterval):
			if err := ms.Push(); err != nil {
				ms.Logger.WarnWith("Failed to push metrics", "err", errors.GetErrorStackString(err, 10))
			}

		case <-ms.StopChannel:
			done = true
		}
	}

	// flush what was tracked since the last push
	if err := ms.Push(); err != nil {
		ms.Logger.WarnWith("Failed to push metrics on stop", "err", errors.GetErrorStackString(err, 10))
	}
}
