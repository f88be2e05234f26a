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
	"sync"

	"github.com/nuclio/logger"
)

// AbstractMetricSink is the base struct for all metric sinks
type AbstractMetricSink struct {
	Logger         logger.Logger
	Name           string
	Kind           string
	StopChannel    chan struct{}
	StoppedChannel chan struct{}
	stopOnce       sync.Once
	stoppedOnce    sync.Once
}

// NewAbstractMetricSink creates a new abstract metric sink
func NewAbstractMetricSink(logger logger.Logger, kind string, name string) (*AbstractMetricSink, error) {
	return &AbstractMetricSink{
		Logger:         logger,
		Kind:           kind,
		Name:           name,
		StopChannel:    make(chan struct{}),
		StoppedChannel: make(chan struct{}),
	}, nil
}

// GetKind returns the kind of metric sink
func (ams *AbstractMetricSink) GetKind() string {
	return ams.Kind
}

// GetName returns the name of metric sink
func (ams *AbstractMetricSink) GetName() string {
	return ams.Name
}

// Start starts processing metrics
func (ams *AbstractMetricSink) Start() error {
	return nil
}

// Stop stops processing metrics. Sinks without a background loop are stopped immediately
func (ams *AbstractMetricSink) Stop() chan struct{} {
	ams.stopOnce.Do(func() {

		// closing the channel will break the loop
		close(ams.StopChannel)
	})

	// return the channel that indicates when we stopped
	return ams.StoppedChannel
}

// MarkStopped closes the stopped channel. Sinks without a background loop call it from Stop
func (ams *AbstractMetricSink) MarkStopped() {
	ams.stoppedOnce.Do(func() {
		close(ams.StoppedChannel)
	})
}
