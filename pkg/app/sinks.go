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
	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"
	"github.com/nuclio/metricbridge/pkg/metricsink/multi"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

const multiSinkName = "all"

// createMetricSink creates the enabled sinks. More than one are fanned out to through a multi sink
func createMetricSink(parentLogger logger.Logger,
	configuration *bridgeconfig.Configuration) (metricsink.MetricSink, error) {

	enabledSinks := configuration.GetEnabledSinks()
	sinkNames := configuration.GetEnabledSinkNames()

	if len(sinkNames) == 0 {
		return nil, errors.New("No metric sink is enabled")
	}

	var metricSinks []metricsink.MetricSink

	for _, sinkName := range sinkNames {
		sinkConfiguration := enabledSinks[sinkName]

		metricSinkInstance, err := metricsink.RegistrySingleton.NewMetricSink(parentLogger,
			sinkConfiguration.Kind,
			sinkName,
			&sinkConfiguration)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to create metric sink %s", sinkName)
		}

		parentLogger.DebugWith("Created metric sink", "name", sinkName, "kind", sinkConfiguration.Kind)

		metricSinks = append(metricSinks, metricSinkInstance)
	}

	if len(metricSinks) == 1 {
		return metricSinks[0], nil
	}

	return multi.NewMetricSink(parentLogger, multiSinkName, metricSinks)
}
