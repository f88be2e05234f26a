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

package stdout

import (
	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/mitchellh/mapstructure"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

type Configuration struct {
	metricsink.Configuration

	// Level is the log level readings are written at
	Level string
}

func NewConfiguration(name string, metricSinkConfiguration *bridgeconfig.MetricSink) (*Configuration, error) {
	newConfiguration := Configuration{}

	// create base
	newConfiguration.Configuration = *metricsink.NewConfiguration(name, metricSinkConfiguration)

	// parse attributes
	if err := mapstructure.Decode(newConfiguration.Configuration.Attributes, &newConfiguration); err != nil {
		return nil, errors.Wrap(err, "Failed to decode attributes")
	}

	switch newConfiguration.Level {
	case "":
		newConfiguration.Level = "info"
	case "debug", "info":
	default:
		return nil, errors.Errorf("Stdout metric sink level must be debug or info, got %s", newConfiguration.Level)
	}

	return &newConfiguration, nil
}

// MetricSink writes every reading to the logger
type MetricSink struct {
	*metricsink.AbstractMetricSink
	configuration *Configuration
}

func NewMetricSink(parentLogger logger.Logger, configuration *Configuration) (*MetricSink, error) {
	newAbstractMetricSink, err := metricsink.NewAbstractMetricSink(parentLogger.GetChild(configuration.Name),
		Kind,
		configuration.Name)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create abstract metric sink")
	}

	return &MetricSink{
		AbstractMetricSink: newAbstractMetricSink,
		configuration:      configuration,
	}, nil
}

func (ms *MetricSink) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	vars := []interface{}{
		"metricName", metricName,
		"value", value,
		"unit", unit.String(),
	}

	for _, dimension := range dimensions {
		vars = append(vars, dimension.Name, dimension.Value)
	}

	if ms.configuration.Level == "debug" {
		ms.Logger.DebugWith("Metric", vars...)
	} else {
		ms.Logger.InfoWith("Metric", vars...)
	}

	return nil
}

func (ms *MetricSink) Stop() chan struct{} {
	stoppedChannel := ms.AbstractMetricSink.Stop()
	ms.MarkStopped()

	return stoppedChannel
}
