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

package metricsink

import (
	"os"
	"runtime"
	"sort"
	"strconv"

	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricconfig"
)

// Dimension is a static name/value tag attached to every reading
type Dimension struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Tracker receives metric readings
type Tracker interface {

	// Track records a single reading. Implementations must be safe for concurrent use
	Track(metricName string, value float64, unit metricconfig.Unit, dimensions []Dimension) error
}

// TrackerFunc adapts a function to a tracker
type TrackerFunc func(metricName string, value float64, unit metricconfig.Unit, dimensions []Dimension) error

func (tf TrackerFunc) Track(metricName string, value float64, unit metricconfig.Unit, dimensions []Dimension) error {
	return tf(metricName, value, unit, dimensions)
}

type MetricSink interface {
	Tracker

	// Start starts processing metrics
	Start() error

	// Stop stops processing metrics, returns a channel that is closed when the sink actually stops
	Stop() chan struct{}

	// GetKind returns the kind of metric sink
	GetKind() string

	// GetName returns the name of metric sink
	GetName() string
}

// ErrorTracker is implemented by sinks that can also record job failures
type ErrorTracker interface {
	TrackError(message string, cause error)
}

// Configuration is the part of a sink configuration common to all kinds
type Configuration struct {
	bridgeconfig.MetricSink
	Name string
}

func NewConfiguration(name string, metricSinkConfiguration *bridgeconfig.MetricSink) *Configuration {
	newConfiguration := &Configuration{
		MetricSink: *metricSinkConfiguration,
		Name:       name,
	}

	// enabled by default
	if newConfiguration.Enabled == nil {
		trueValue := true
		newConfiguration.Enabled = &trueValue
	}

	return newConfiguration
}

// DefaultDimensions describes the host the bridge runs on
func DefaultDimensions() []Dimension {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return []Dimension{
		{Name: "hostname", Value: hostname},
		{Name: "pid", Value: strconv.Itoa(os.Getpid())},
		{Name: "goVersion", Value: runtime.Version()},
	}
}

// MergeDimensions returns base with overrides applied, sorted by name. Overrides replace base
// dimensions of the same name
func MergeDimensions(base []Dimension, overrides map[string]string) []Dimension {
	merged := map[string]string{}

	for _, dimension := range base {
		merged[dimension.Name] = dimension.Value
	}

	for name, value := range overrides {
		merged[name] = value
	}

	dimensions := make([]Dimension, 0, len(merged))
	for name, value := range merged {
		dimensions = append(dimensions, Dimension{Name: name, Value: value})
	}

	sort.Slice(dimensions, func(i, j int) bool {
		return dimensions[i].Name < dimensions[j].Name
	})

	return dimensions
}
