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
	"sort"
	"strings"

	"github.com/nuclio/errors"
)

const (
	illegalKeyCharacters   = ":=,*?\""
	illegalValueCharacters = ":=*?\""
	quote                  = '"'
	escape                 = '\\'
)

type property struct {
	key   string
	value string
}

// ObjectName is the hierarchical identifier of a container, in the form domain:key=value[,key=value]*
type ObjectName struct {
	domain     string
	properties []property
	canonical  string
}

// ParseObjectName parses and validates a container name
func ParseObjectName(name string) (ObjectName, error) {
	separatorIndex := strings.Index(name, ":")
	if separatorIndex == -1 {
		return ObjectName{}, errors.Errorf("Object name %q is missing the domain separator", name)
	}

	domain := name[:separatorIndex]
	if domain == "" {
		return ObjectName{}, errors.Errorf("Object name %q has an empty domain", name)
	}

	if strings.ContainsAny(domain, "*?") {
		return ObjectName{}, errors.Errorf("Object name %q is a pattern", name)
	}

	propertyList := name[separatorIndex+1:]
	if propertyList == "" {
		return ObjectName{}, errors.Errorf("Object name %q has no key properties", name)
	}

	var properties []property
	seenKeys := map[string]struct{}{}

	keyValues, err := splitKeyProperties(propertyList)
	if err != nil {
		return ObjectName{}, errors.Wrapf(err, "Object name %q has malformed key properties", name)
	}

	for _, keyValue := range keyValues {
		equalsIndex := strings.Index(keyValue, "=")
		if equalsIndex == -1 {
			return ObjectName{}, errors.Errorf("Object name %q has a key property without a value: %q", name, keyValue)
		}

		key := keyValue[:equalsIndex]
		value := keyValue[equalsIndex+1:]

		if key == "" || strings.ContainsAny(key, illegalKeyCharacters) {
			return ObjectName{}, errors.Errorf("Object name %q has an invalid key: %q", name, key)
		}

		if err := validateValue(value); err != nil {
			return ObjectName{}, errors.Wrapf(err, "Object name %q has an invalid value for key %s: %q", name, key, value)
		}

		if _, found := seenKeys[key]; found {
			return ObjectName{}, errors.Errorf("Object name %q has a duplicate key: %s", name, key)
		}

		seenKeys[key] = struct{}{}
		properties = append(properties, property{key: key, value: value})
	}

	objectName := ObjectName{
		domain:     domain,
		properties: properties,
	}

	objectName.canonical = objectName.buildCanonical()

	return objectName, nil
}

// MustParseObjectName parses a name that is known to be valid, panicking otherwise
func MustParseObjectName(name string) ObjectName {
	objectName, err := ParseObjectName(name)
	if err != nil {
		panic(err)
	}

	return objectName
}

// Domain returns the part before the colon
func (on ObjectName) Domain() string {
	return on.domain
}

// KeyProperty returns the value of a key property and whether it exists
func (on ObjectName) KeyProperty(key string) (string, bool) {
	for _, keyProperty := range on.properties {
		if keyProperty.key == key {
			return keyProperty.value, true
		}
	}

	return "", false
}

// Canonical returns the name with key properties sorted, so that equal names compare equal
func (on ObjectName) Canonical() string {
	return on.canonical
}

// String returns the name with key properties in their original order
func (on ObjectName) String() string {
	var builder strings.Builder

	builder.WriteString(on.domain)
	builder.WriteString(":")

	for propertyIndex, keyProperty := range on.properties {
		if propertyIndex > 0 {
			builder.WriteString(",")
		}

		builder.WriteString(keyProperty.key)
		builder.WriteString("=")
		builder.WriteString(keyProperty.value)
	}

	return builder.String()
}

func (on ObjectName) buildCanonical() string {
	sortedProperties := make([]property, len(on.properties))
	copy(sortedProperties, on.properties)

	sort.Slice(sortedProperties, func(i, j int) bool {
		return sortedProperties[i].key < sortedProperties[j].key
	})

	sorted := ObjectName{
		domain:     on.domain,
		properties: sortedProperties,
	}

	return sorted.String()
}

// splitKeyProperties splits a property list at commas that are not inside a quoted value
func splitKeyProperties(propertyList string) ([]string, error) {
	var keyValues []string

	start := 0
	quoted := false

	for index := 0; index < len(propertyList); index++ {
		switch character := propertyList[index]; {
		case quoted && character == escape:

			// skip the escaped character
			index++
		case character == quote:
			quoted = !quoted
		case !quoted && character == ',':
			keyValues = append(keyValues, propertyList[start:index])
			start = index + 1
		}
	}

	if quoted {
		return nil, errors.New("Unterminated quoted value")
	}

	return append(keyValues, propertyList[start:]), nil
}

// validateValue accepts a plain value, or a quoted one whose quotes and escapes are kept as written
func validateValue(value string) error {
	if value == "" {
		return errors.New("Empty value")
	}

	if value[0] != quote {
		if strings.ContainsAny(value, illegalValueCharacters) {
			return errors.New("Plain values may not contain any of :=*?\"")
		}

		return nil
	}

	if len(value) < 2 || value[len(value)-1] != quote {
		return errors.New("Quoted value must end with a quote")
	}

	for index := 1; index < len(value)-1; index++ {
		switch value[index] {
		case quote:
			return errors.New("Quoted value has an unescaped quote")
		case escape:
			index++
			if index >= len(value)-1 || !strings.ContainsRune("\\\"*?n", rune(value[index])) {
				return errors.New("Quoted value has an invalid escape")
			}
		case '*', '?':
			return errors.New("Quoted value has an unescaped wildcard")
		}
	}

	return nil
}
