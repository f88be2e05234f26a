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
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// ErrorHandler is notified of every failed job run. Implementations must not panic and must be
// safe for concurrent use
type ErrorHandler interface {

	// HandleError receives a description of the failure and/or its cause; at least one is set
	HandleError(message string, cause error)
}

// ErrorHandlerFunc adapts a function to an error handler
type ErrorHandlerFunc func(message string, cause error)

func (ehf ErrorHandlerFunc) HandleError(message string, cause error) {
	ehf(message, cause)
}

// LoggingErrorHandler logs failures at a fixed level
type LoggingErrorHandler struct {
	logger logger.Logger
	level  string
}

// NewLoggingErrorHandler creates an error handler logging at one of debug, info, warn or error
func NewLoggingErrorHandler(parentLogger logger.Logger, level string) (*LoggingErrorHandler, error) {
	switch level {
	case "":
		level = "warn"
	case "debug", "info", "warn", "error":
	default:
		return nil, errors.Errorf("Invalid error handler level %s", level)
	}

	return &LoggingErrorHandler{
		logger: parentLogger,
		level:  level,
	}, nil
}

func (leh *LoggingErrorHandler) HandleError(message string, cause error) {
	if message == "" && cause != nil {
		message = cause.Error()
	}

	var vars []interface{}

	if cause != nil {
		vars = append(vars, "err", errors.GetErrorStackString(cause, 10))

		if errorKind, found := GetErrorKind(cause); found {
			vars = append(vars, "kind", errorKind.String())
		}
	}

	switch leh.level {
	case "debug":
		leh.logger.DebugWith(message, vars...)
	case "info":
		leh.logger.InfoWith(message, vars...)
	case "error":
		leh.logger.ErrorWith(message, vars...)
	default:
		leh.logger.WarnWith(message, vars...)
	}
}

// NewSinkErrorHandler forwards failures to a sink that records them
func NewSinkErrorHandler(errorTracker metricsink.ErrorTracker) ErrorHandler {
	return ErrorHandlerFunc(func(message string, cause error) {
		errorTracker.TrackError(message, cause)
	})
}

// NewMultiErrorHandler notifies all handlers, in order
func NewMultiErrorHandler(errorHandlers ...ErrorHandler) ErrorHandler {
	return ErrorHandlerFunc(func(message string, cause error) {
		for _, errorHandler := range errorHandlers {
			errorHandler.HandleError(message, cause)
		}
	})
}
