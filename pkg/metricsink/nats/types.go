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

package nats

import (
	"time"

	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/mitchellh/mapstructure"
	"github.com/nats-io/nats.go"
	"github.com/nuclio/errors"
)

const defaultSubject = "metricbridge.metrics"

type Configuration struct {
	metricsink.Configuration
	Subject            string
	FlushTimeout       string
	parsedFlushTimeout time.Duration
}

func NewConfiguration(name string, metricSinkConfiguration *bridgeconfig.MetricSink) (*Configuration, error) {
	newConfiguration := Configuration{}

	// create base
	newConfiguration.Configuration = *metricsink.NewConfiguration(name, metricSinkConfiguration)

	// parse attributes
	if err := mapstructure.Decode(newConfiguration.Configuration.Attributes, &newConfiguration); err != nil {
		return nil, errors.Wrap(err, "Failed to decode attributes")
	}

	if newConfiguration.URL == "" {
		newConfiguration.URL = nats.DefaultURL
	}

	if newConfiguration.Subject == "" {
		newConfiguration.Subject = defaultSubject
	}

	if newConfiguration.FlushTimeout == "" {
		newConfiguration.FlushTimeout = "5s"
	}

	var err error
	newConfiguration.parsedFlushTimeout, err = time.ParseDuration(newConfiguration.FlushTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to parse flush timeout")
	}

	return &newConfiguration, nil
}
