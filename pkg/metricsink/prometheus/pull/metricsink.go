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
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"
	"github.com/nuclio/metricbridge/pkg/metricsink/prometheus"

	"github.com/go-chi/chi/v5"
	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	prometheusclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 5 * time.Second

// MetricSink holds the latest reading of every metric as a gauge, served for scraping
type MetricSink struct {
	*metricsink.AbstractMetricSink
	configuration  *Configuration
	metricRegistry *prometheusclient.Registry
	gauges         *prometheus.GaugeSet
	lock           sync.Mutex
	server         *http.Server
	listener       net.Listener
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

	newMetricPuller := &MetricSink{
		AbstractMetricSink: newAbstractMetricSink,
		configuration:      configuration,
		metricRegistry:     metricRegistry,
		gauges:             prometheus.NewGaugeSet(metricRegistry, configuration.Namespace),
	}

	newMetricPuller.Logger.InfoWith("Created",
		"listenAddress", configuration.ListenAddress,
		"path", configuration.Path)

	return newMetricPuller, nil
}

func (ms *MetricSink) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	return ms.gauges.Set(metricName, value, unit, dimensions)
}

// Handler serves the gauges in the prometheus exposition format
func (ms *MetricSink) Handler() http.Handler {
	router := chi.NewRouter()
	router.Handle(ms.configuration.Path, promhttp.HandlerFor(ms.metricRegistry, promhttp.HandlerOpts{}))

	return router
}

func (ms *MetricSink) Start() error {
	if !*ms.configuration.Enabled {
		ms.Logger.DebugWith("Disabled, not starting")

		return nil
	}

	ms.lock.Lock()
	defer ms.lock.Unlock()

	if ms.server != nil {
		return errors.New("Metric sink already started")
	}

	ms.Logger.DebugWith("Starting")

	// listen synchronously so that address errors surface here
	listener, err := net.Listen("tcp", ms.configuration.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "Failed to listen on %s", ms.configuration.ListenAddress)
	}

	ms.listener = listener
	ms.server = &http.Server{
		Handler:           ms.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := ms.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			ms.Logger.WarnWith("Metric server stopped serving", "err", err.Error())
		}
	}()

	return nil
}

func (ms *MetricSink) Stop() chan struct{} {
	stoppedChannel := ms.AbstractMetricSink.Stop()

	ms.lock.Lock()
	server := ms.server
	ms.lock.Unlock()

	if server == nil {
		ms.MarkStopped()

		return stoppedChannel
	}

	go func() {
		defer ms.MarkStopped()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			ms.Logger.WarnWith("Failed to shut down metric server", "err", err.Error())
		}
	}()

	return stoppedChannel
}

// Address returns the address the sink listens on, once started
func (ms *MetricSink) Address() string {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	if ms.listener == nil {
		return ""
	}

	return ms.listener.Addr().String()
}
