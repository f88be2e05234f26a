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

package bridgeconfig

import (
	"sort"

	"github.com/nuclio/errors"
	"github.com/samber/lo"
)

const (
	DefaultWebAdminListenAddress    = ":8090"
	DefaultHealthCheckListenAddress = ":8091"
	DefaultLoggerLevel              = "info"
	DefaultErrorHandlerLevel        = "warn"
	DefaultSchedulerWorkers         = 1
	DefaultSinkName                 = "stdout"
	DefaultSinkKind                 = "stdout"
)

var validLevels = []string{"debug", "info", "warn", "error"}

type Logger struct {
	Level string `json:"level,omitempty"`
}

type WebServer struct {
	Enabled       *bool  `json:"enabled,omitempty"`
	ListenAddress string `json:"listenAddress,omitempty"`
}

func (ws *WebServer) IsEnabled() bool {
	return ws.Enabled != nil && *ws.Enabled
}

type Metrics struct {

	// Path is a JSON metric configuration file. When empty, the embedded defaults are used
	Path           string `json:"path,omitempty"`
	ReloadOnSignal *bool  `json:"reloadOnSignal,omitempty"`
}

func (m *Metrics) ShouldReloadOnSignal() bool {
	return m.ReloadOnSignal != nil && *m.ReloadOnSignal
}

type Scheduler struct {
	Workers int `json:"workers,omitempty"`
}

type MetricSink struct {
	Enabled    *bool                  `json:"enabled,omitempty"`
	Kind       string                 `json:"kind,omitempty"`
	URL        string                 `json:"url,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// IsEnabled returns true unless the sink was explicitly disabled
func (ms *MetricSink) IsEnabled() bool {
	return ms.Enabled == nil || *ms.Enabled
}

type ErrorHandler struct {
	Level string `json:"level,omitempty"`
}

// Configuration is the process configuration of the bridge
type Configuration struct {
	Logger            Logger                `json:"logger,omitempty"`
	WebAdmin          WebServer             `json:"webAdmin,omitempty"`
	HealthCheck       WebServer             `json:"healthCheck,omitempty"`
	Metrics           Metrics               `json:"metrics,omitempty"`
	Scheduler         Scheduler             `json:"scheduler,omitempty"`
	Dimensions        map[string]string     `json:"dimensions,omitempty"`
	DefaultDimensions *bool                 `json:"defaultDimensions,omitempty"`
	Sinks             map[string]MetricSink `json:"sinks,omitempty"`
	ErrorHandler      ErrorHandler          `json:"errorHandler,omitempty"`
}

// UseDefaultDimensions returns true unless default dimensions were explicitly disabled
func (c *Configuration) UseDefaultDimensions() bool {
	return c.DefaultDimensions == nil || *c.DefaultDimensions
}

// GetEnabledSinks returns the sinks that were not disabled
func (c *Configuration) GetEnabledSinks() map[string]MetricSink {
	return lo.PickBy(c.Sinks, func(name string, metricSink MetricSink) bool {
		return metricSink.IsEnabled()
	})
}

// GetEnabledSinkNames returns the names of enabled sinks, sorted
func (c *Configuration) GetEnabledSinkNames() []string {
	sinkNames := lo.Keys(c.GetEnabledSinks())
	sort.Strings(sinkNames)

	return sinkNames
}

// Validate verifies a configuration with defaults applied
func (c *Configuration) Validate() error {
	if !lo.Contains(validLevels, c.Logger.Level) {
		return errors.Errorf("Invalid logger level %q", c.Logger.Level)
	}

	if !lo.Contains(validLevels, c.ErrorHandler.Level) {
		return errors.Errorf("Invalid error handler level %q", c.ErrorHandler.Level)
	}

	if c.Scheduler.Workers < 1 {
		return errors.Errorf("Scheduler workers must be positive, got %d", c.Scheduler.Workers)
	}

	for sinkName, metricSink := range c.Sinks {
		if metricSink.Kind == "" {
			return errors.Errorf("Metric sink %s has no kind", sinkName)
		}
	}

	if c.WebAdmin.IsEnabled() && c.HealthCheck.IsEnabled() &&
		c.WebAdmin.ListenAddress == c.HealthCheck.ListenAddress {
		return errors.Errorf("Web admin and health check cannot share listen address %s", c.WebAdmin.ListenAddress)
	}

	return nil
}
