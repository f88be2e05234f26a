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
	"io"
	"os"
	"reflect"

	"github.com/imdario/mergo"
	"github.com/nuclio/errors"
	"sigs.k8s.io/yaml"
)

type Reader struct{}

func NewReader() (*Reader, error) {
	return &Reader{}, nil
}

// Read decodes a YAML configuration and fills anything left unset with defaults
func (r *Reader) Read(reader io.Reader, configuration *Configuration) error {
	configurationBytes, err := io.ReadAll(reader)
	if err != nil {
		return errors.Wrap(err, "Failed to read bridge configuration")
	}

	if err := yaml.UnmarshalStrict(configurationBytes, configuration); err != nil {
		return errors.Wrap(err, "Failed to unmarshal bridge configuration")
	}

	return r.applyDefaults(configuration)
}

// ReadFileOrDefault reads a configuration file, returning the default configuration if the path is
// empty or does not exist
func (r *Reader) ReadFileOrDefault(configurationPath string) (*Configuration, error) {
	if configurationPath == "" {
		return r.GetDefaultConfiguration(), nil
	}

	configurationFile, err := os.Open(configurationPath)
	if err != nil {
		if os.IsNotExist(err) {
			return r.GetDefaultConfiguration(), nil
		}

		return nil, errors.Wrapf(err, "Failed to open configuration file %s", configurationPath)
	}

	// close after
	defer configurationFile.Close() // nolint: errcheck

	var configuration Configuration
	if err := r.Read(configurationFile, &configuration); err != nil {
		return nil, errors.Wrapf(err, "Failed to read configuration file %s", configurationPath)
	}

	return &configuration, nil
}

func (r *Reader) GetDefaultConfiguration() *Configuration {
	configuration := Configuration{}

	// defaults can always be applied to an empty configuration
	_ = r.applyDefaults(&configuration)

	return &configuration
}

func (r *Reader) applyDefaults(configuration *Configuration) error {
	trueValue := true

	defaults := Configuration{
		Logger: Logger{
			Level: DefaultLoggerLevel,
		},
		WebAdmin: WebServer{
			Enabled:       &trueValue,
			ListenAddress: DefaultWebAdminListenAddress,
		},
		HealthCheck: WebServer{
			Enabled:       &trueValue,
			ListenAddress: DefaultHealthCheckListenAddress,
		},
		Metrics: Metrics{
			ReloadOnSignal: &trueValue,
		},
		Scheduler: Scheduler{
			Workers: DefaultSchedulerWorkers,
		},
		DefaultDimensions: &trueValue,
		ErrorHandler: ErrorHandler{
			Level: DefaultErrorHandlerLevel,
		},
	}

	if err := mergo.Merge(configuration, defaults, mergo.WithTransformers(explicitFlags{})); err != nil {
		return errors.Wrap(err, "Failed to merge default configuration")
	}

	// sinks are not merged key by key; any configured sink replaces the default one
	if len(configuration.Sinks) == 0 {
		configuration.Sinks = map[string]MetricSink{
			DefaultSinkName: {Kind: DefaultSinkKind},
		}
	}

	return nil
}

// explicitFlags keeps flags that were set, even to false. mergo only calls a transformer for a
// non-nil destination, nil flags still receive the default
type explicitFlags struct{}

func (ef explicitFlags) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ != reflect.TypeOf((*bool)(nil)) {
		return nil
	}

	return func(dst, src reflect.Value) error {
		return nil
	}
}
