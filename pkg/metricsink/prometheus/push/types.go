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
	"time"

	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/mitchellh/mapstructure"
	"github.com/nuclio/errors"
)

const defaultInterval = "10s"

type Configuration struct {
	metricsink.Configuration
	Interval       string
	JobName        string
	InstanceName   string
	parsedInterval time.Duration
}

func NewConfiguration(name string, metricSinkConfiguration *bridgeconfig.MetricSink) (*Configuration, error) {
	newConfiguration := Configuration{}

	// create base
	newConfiguration.Configuration = *metricsink.NewConfiguration(name, metricSinkConfiguration)

	// parse attributes
	if err := mapstructure.Decode(newConfiguration.Configuration.Attributes, &newConfiguration); err != nil {
		return nil, errors.Wrap(err, "Failed to decode attributes")
	}

	if newConfiguration.Interval == "" {
		newConfiguration.Interval = defaultInterval
	}

	// try to parse the interval
	var err error
	newConfiguration.parsedInterval, err = time.ParseDuration(newConfiguration.Interval)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse interval")
	}

	if newConfiguration.parsedInterval <= 0 {
		return nil, errors.Errorf("Interval must be positive for metric sink %s", name)
	}

	// verify push gateway passed
	if newConfiguration.URL == "" {
		return nil, errors.Errorf("URL is required for metric sink %s", name)
	}

	// verify job name passed
	if newConfiguration.JobName == "" {
		return nil, errors.Errorf("Job name is required for metric sink %s", name)
	}

	// verify instance name passed
	if newConfiguration.InstanceName == "" {
		return nil, errors.Errorf("Instance name is required for metric sink %s", name)
	}

	return &newConfiguration, nil
}
