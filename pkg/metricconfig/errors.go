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

package metricconfig

import (
	"errors"
	"fmt"
)

// ConfigurationError is returned when metric configuration input is malformed or incomplete.
// It is never recovered from locally; the parse or reconfiguration that raised it is aborted
type ConfigurationError struct {
	message string
	cause   error
}

// NewConfigurationError creates a configuration error, optionally carrying the error that caused it
func NewConfigurationError(cause error, format string, args ...interface{}) *ConfigurationError {
	return newConfigurationError(cause, format, args...)
}

func newConfigurationError(cause error, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{
		message: fmt.Sprintf(format, args...),
		cause:   cause,
	}
}

func (ce *ConfigurationError) Error() string {
	if ce.cause == nil {
		return ce.message
	}

	return fmt.Sprintf("%s: %s", ce.message, ce.cause.Error())
}

// Message returns the error message without the cause
func (ce *ConfigurationError) Message() string {
	return ce.message
}

func (ce *ConfigurationError) Unwrap() error {
	return ce.cause
}

// IsConfigurationError returns true if err is, or wraps, a ConfigurationError
func IsConfigurationError(err error) bool {
	var configurationError *ConfigurationError
	return errors.As(err, &configurationError)
}
