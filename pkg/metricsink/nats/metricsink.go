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
	"encoding/json"
	"sync"
	"time"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nats-io/nats.go"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// Reading is the message published for every tracked reading
type Reading struct {
	MetricName string            `json:"metricName"`
	Value      float64           `json:"value"`
	Unit       metricconfig.Unit `json:"unit"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// MetricSink publishes one message per reading
type MetricSink struct {
	*metricsink.AbstractMetricSink
	configuration *Configuration
	lock          sync.RWMutex
	connection    *nats.Conn
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

func (ms *MetricSink) Start() error {
	if !*ms.configuration.Enabled {
		ms.Logger.DebugWith("Disabled, not starting")

		return nil
	}

	ms.lock.Lock()
	defer ms.lock.Unlock()

	if ms.connection != nil {
		return errors.New("Metric sink already started")
	}

	connection, err := nats.Connect(ms.configuration.URL,
		nats.Name(ms.configuration.Name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				ms.Logger.WarnWith("Disconnected", "err", err.Error())
			}
		}),
		nats.ReconnectHandler(func(connection *nats.Conn) {
			ms.Logger.InfoWith("Reconnected", "url", connection.ConnectedUrl())
		}))
	if err != nil {
		return errors.Wrapf(err, "Failed to connect to %s", ms.configuration.URL)
	}

	ms.connection = connection

	ms.Logger.InfoWith("Connected", "url", ms.configuration.URL, "subject", ms.configuration.Subject)

	return nil
}

func (ms *MetricSink) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	ms.lock.RLock()
	connection := ms.connection
	ms.lock.RUnlock()

	if connection == nil {
		return errors.New("Metric sink is not connected")
	}

	reading := Reading{
		MetricName: metricName,
		Value:      value,
		Unit:       unit,
		Timestamp:  time.Now().UTC(),
	}

	if len(dimensions) > 0 {
		reading.Dimensions = make(map[string]string, len(dimensions))
		for _, dimension := range dimensions {
			reading.Dimensions[dimension.Name] = dimension.Value
		}
	}

	encodedReading, err := json.Marshal(&reading)
	if err != nil {
		return errors.Wrap(err, "Failed to encode reading")
	}

	if err := connection.Publish(ms.configuration.Subject, encodedReading); err != nil {
		return errors.Wrapf(err, "Failed to publish to %s", ms.configuration.Subject)
	}

	return nil
}

func (ms *MetricSink) Stop() chan struct{} {
	stoppedChannel := ms.AbstractMetricSink.Stop()

	ms.lock.Lock()
	connection := ms.connection
	ms.connection = nil
	ms.lock.Unlock()

	if connection != nil {
		if err := connection.FlushTimeout(ms.configuration.parsedFlushTimeout); err != nil {
			ms.Logger.WarnWith("Failed to flush pending readings", "err", err.Error())
		}

		connection.Close()
	}

	ms.MarkStopped()

	return stoppedChannel
}
