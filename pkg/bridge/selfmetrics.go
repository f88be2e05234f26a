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

package bridge

import (
	"net/http"

	"github.com/nuclio/metricbridge/pkg/metricconfig"

	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const successResult = "success"

// SelfMetrics counts job runs by metric and result, and the number of scheduled jobs
type SelfMetrics struct {
	registry   *prometheus.Registry
	jobRuns    *prometheus.CounterVec
	activeJobs prometheus.Gauge
}

func NewSelfMetrics() (*SelfMetrics, error) {
	newSelfMetrics := &SelfMetrics{
		registry: prometheus.NewRegistry(),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metricbridge",
			Name:      "job_runs_total",
			Help:      "Number of job runs, by metric and result",
		}, []string{"metric", "result"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "metricbridge",
			Name:      "active_jobs",
			Help:      "Number of scheduled jobs",
		}),
	}

	for _, collector := range []prometheus.Collector{
		newSelfMetrics.jobRuns,
		newSelfMetrics.activeJobs,
	} {
		if err := newSelfMetrics.registry.Register(collector); err != nil {
			return nil, errors.Wrap(err, "Failed to register self metric")
		}
	}

	return newSelfMetrics, nil
}

func (sm *SelfMetrics) ObserveRun(configuration metricconfig.Configuration, err error) {
	result := successResult

	if err != nil {
		if errorKind, found := GetErrorKind(err); found {
			result = errorKind.String()
		} else {
			result = "failure"
		}
	}

	sm.jobRuns.WithLabelValues(configuration.MetricName, result).Inc()
}

// ObserveActiveJobs sets the number of scheduled jobs
func (sm *SelfMetrics) ObserveActiveJobs(activeJobs int) {
	sm.activeJobs.Set(float64(activeJobs))
}

// Handler serves the self metrics in the Prometheus exposition format
func (sm *SelfMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(sm.registry, promhttp.HandlerOpts{})
}

func (sm *SelfMetrics) GetRegistry() *prometheus.Registry {
	return sm.registry
}
