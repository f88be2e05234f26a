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
	"errors"
	"fmt"
)

// ErrorKind classifies the failures contained within a job run
type ErrorKind int

const (

	// ReadFailure means the management server failed to read the attribute
	ReadFailure ErrorKind = iota

	// ShapeMismatch means the value read, or the field extracted from it, is not a number
	ShapeMismatch

	// ForwardFailure means the sink failed to track the reading
	ForwardFailure
)

func (ek ErrorKind) String() string {
	switch ek {
	case ReadFailure:
		return "readFailure"
	case ShapeMismatch:
		return "shapeMismatch"
	case ForwardFailure:
		return "forwardFailure"
	default:
		return fmt.Sprintf("unknown(%d)", int(ek))
	}
}

// MetricError is the cause handed to an ErrorHandler when a job run fails
type MetricError struct {
	kind       ErrorKind
	metricName string
	message    string
	cause      error
}

func newMetricError(kind ErrorKind, metricName string, cause error, format string, args ...interface{}) *MetricError {
	return &MetricError{
		kind:       kind,
		metricName: metricName,
		message:    fmt.Sprintf(format, args...),
		cause:      cause,
	}
}

func (me *MetricError) Error() string {
	if me.cause == nil {
		return me.message
	}

	return fmt.Sprintf("%s: %s", me.message, me.cause.Error())
}

// Message returns the error message without the cause
func (me *MetricError) Message() string {
	return me.message
}

func (me *MetricError) Kind() ErrorKind {
	return me.kind
}

// MetricName returns the name of the metric whose run failed
func (me *MetricError) MetricName() string {
	return me.metricName
}

func (me *MetricError) Unwrap() error {
	return me.cause
}

// GetErrorKind returns the kind of a MetricError in err's chain, and whether there is one
func GetErrorKind(err error) (ErrorKind, bool) {
	var metricError *MetricError
	if !errors.As(err, &metricError) {
		return 0, false
	}

	return metricError.kind, true
}
