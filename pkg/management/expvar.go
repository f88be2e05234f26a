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

package management

import (
	"encoding/json"
	"expvar"
	"fmt"
	"strings"

	"github.com/nuclio/errors"
)

const (
	ExpvarDomain = "expvar"

	// ExpvarValueAttribute is the attribute under which scalar variables are exposed
	ExpvarValueAttribute = "Value"
)

// ExpvarContainer exposes a published expvar variable. Object variables expose their keys
// as attributes, anything else is exposed under ExpvarValueAttribute
type ExpvarContainer struct {
	variableName string
}

func NewExpvarContainer(variableName string) *ExpvarContainer {
	return &ExpvarContainer{
		variableName: variableName,
	}
}

// ExpvarObjectName returns the container name of a published variable
func ExpvarObjectName(variableName string) (ObjectName, error) {
	return ParseObjectName(fmt.Sprintf("%s:name=%s", ExpvarDomain, variableName))
}

func (ec *ExpvarContainer) GetAttribute(attributeName string) (interface{}, error) {
	variable := expvar.Get(ec.variableName)
	if variable == nil {
		return nil, errors.Wrapf(ErrContainerNotFound, "Variable %s is not published", ec.variableName)
	}

	var decodedValue interface{}

	decoder := json.NewDecoder(strings.NewReader(variable.String()))
	decoder.UseNumber()

	if err := decoder.Decode(&decodedValue); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode variable %s", ec.variableName)
	}

	if fields, isObject := decodedValue.(map[string]interface{}); isObject {
		fieldValue, found := fields[attributeName]
		if !found {
			return nil, errors.Wrapf(ErrAttributeNotFound, "Variable %s has no key %s", ec.variableName, attributeName)
		}

		return fieldValue, nil
	}

	if attributeName != ExpvarValueAttribute {
		return nil, errors.Wrapf(ErrAttributeNotFound,
			"Variable %s is a scalar, only %s can be read",
			ec.variableName,
			ExpvarValueAttribute)
	}

	return decodedValue, nil
}

// RegisterExpvars registers a container for every published variable whose name can be
// part of an object name. Variables already registered are skipped
func RegisterExpvars(server *LocalServer) int {
	registered := 0

	expvar.Do(func(keyValue expvar.KeyValue) {
		objectName, err := ExpvarObjectName(keyValue.Key)
		if err != nil {
			return
		}

		if server.IsRegistered(objectName) {
			return
		}

		if err := server.Register(objectName, NewExpvarContainer(keyValue.Key)); err == nil {
			registered++
		}
	})

	return registered
}
