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
	"sync"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"
)

type trackedMetric struct {
	metricName string
	value      float64
	unit       metricconfig.Unit
	dimensions []metricsink.Dimension
}

type recordingTracker struct {
	lock    sync.Mutex
	tracked []trackedMetric
	err     error
	panics  bool
}

func (rt *recordingTracker) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	if rt.panics {
		panic("sink exploded")
	}

	rt.lock.Lock()
	defer rt.lock.Unlock()

	if rt.err != nil {
		return rt.err
	}

	rt.tracked = append(rt.tracked, trackedMetric{
		metricName: metricName,
		value:      value,
		unit:       unit,
		dimensions: dimensions,
	})

	return nil
}

func (rt *recordingTracker) getTracked() []trackedMetric {
	rt.lock.Lock()
	defer rt.lock.Unlock()

	return append([]trackedMetric{}, rt.tracked...)
}

type handledError struct {
	message string
	cause   error
}

type recordingErrorHandler struct {
	lock    sync.Mutex
	handled []handledError
}

func (reh *recordingErrorHandler) HandleError(message string, cause error) {
	reh.lock.Lock()
	defer reh.lock.Unlock()

	reh.handled = append(reh.handled, handledError{message: message, cause: cause})
}

func (reh *recordingErrorHandler) getHandled() []handledError {
	reh.lock.Lock()
	defer reh.lock.Unlock()

	return append([]handledError{}, reh.handled...)
}
