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
	"embed"
	"io/fs"
	"os"

	"github.com/nuclio/errors"
)

const defaultsPath = "defaults/runtime.json"

//go:embed defaults/runtime.json
var defaultsFS embed.FS

// Supplier holds a configuration list loaded once, handing out copies
type Supplier struct {
	configurations []Configuration
}

// NewSupplier creates a supplier around an already parsed list
func NewSupplier(configurations []Configuration) *Supplier {
	return &Supplier{
		configurations: Copy(configurations),
	}
}

// NewFileSupplier loads and parses a JSON configuration file
func NewFileSupplier(path string) (*Supplier, error) {
	configurations, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	return &Supplier{configurations: configurations}, nil
}

// NewFSSupplier loads and parses a JSON configuration from a filesystem, typically an embedded one
func NewFSSupplier(fsys fs.FS, path string) (*Supplier, error) {
	configurations, err := LoadFS(fsys, path)
	if err != nil {
		return nil, err
	}

	return &Supplier{configurations: configurations}, nil
}

// Get returns a copy of the supplied configurations
func (s *Supplier) Get() []Configuration {
	return Copy(s.configurations)
}

// LoadFile reads and parses a JSON configuration file
func LoadFile(path string) ([]Configuration, error) {
	configurationFile, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open metric configuration file %s", path)
	}

	defer configurationFile.Close() // nolint: errcheck

	return NewParser().ParseReader(configurationFile)
}

// LoadFS reads and parses a JSON configuration from a filesystem
func LoadFS(fsys fs.FS, path string) ([]Configuration, error) {
	contents, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.Wrapf(err, "Could not find resource %s", path)
	}

	return NewParser().ParseBytes(contents)
}

// Defaults returns the configuration shipped with the binary, covering Go runtime metrics
func Defaults() []Configuration {
	configurations, err := LoadFS(defaultsFS, defaultsPath)
	if err != nil {

		// the embedded file is part of the build; failing to parse it is a programming error
		panic(errors.Wrap(err, "Failed to load embedded default metric configuration"))
	}

	return configurations
}
