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

package prometheuspull

import (
	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/mitchellh/mapstructure"
	"github.com/nuclio/errors"
)

const (
	defaultListenAddress = ":9102"
	defaultPath          = "/metrics"
)

type Configuration struct {
	metricsink.Configuration
	ListenAddress string
	Path          string
	Namespace     string
}

func NewConfiguration(name string, metricSinkConfiguration *bridgeconfig.MetricSink) (*Configuration, error) {
	newConfiguration := Configuration{}

	// create base
	newConfiguration.Configuration = *metricsink.NewConfiguration(name, metricSinkConfiguration)

	// parse attributes
	if err := mapstructure.Decode(newConfiguration.Configuration.Attributes, &newConfiguration); err != nil {
		return nil, errors.Wrap(err, "Failed to decode attributes")
	}

	// the url doubles as the listen address
	if newConfiguration.ListenAddress == "" {
		newConfiguration.ListenAddress = newConfiguration.URL
	}

	if newConfiguration.ListenAddress == "" {
		newConfiguration.ListenAddress = defaultListenAddress
	}

	if newConfiguration.Path == "" {
		newConfiguration.Path = defaultPath
	}

	return &newConfiguration, nil
}
