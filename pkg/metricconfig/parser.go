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
	"bytes"
	"encoding/json"
	"io"
	"math"
	"reflect"

	"github.com/nuclio/metricbridge/pkg/management"

	"github.com/mitchellh/mapstructure"
)

const (
	frequencyKey        = "frequency"
	compositeDataKeyKey = "compositeDataKey"
	commentKey          = "comment"
)

// record mirrors a single configuration object. pointers distinguish absent fields from empty ones
type record struct {
	ObjectName       *string `mapstructure:"objectName"`
	Attribute        *string `mapstructure:"attribute"`
	CompositeDataKey *string `mapstructure:"compositeDataKey"`
	MetricName       *string `mapstructure:"metricName"`
	Unit             *string `mapstructure:"unit"`
	Comment          *string `mapstructure:"comment"`
}

// Parser turns decoded structured data into an ordered list of configurations
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseBytes decodes JSON and parses the result
func (p *Parser) ParseBytes(contents []byte) ([]Configuration, error) {
	return p.ParseReader(bytes.NewReader(contents))
}

// ParseReader decodes JSON from a reader and parses the result
func (p *Parser) ParseReader(reader io.Reader) ([]Configuration, error) {
	var root interface{}

	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	if err := decoder.Decode(&root); err != nil {
		return nil, newConfigurationError(err, "Failed to decode metric configuration")
	}

	// anything after the root value is malformed input
	if decoder.More() {
		return nil, newConfigurationError(nil, "Metric configuration has trailing data after the root value")
	}

	return p.Parse(root)
}

// Parse parses a decoded root value. The root must be a sequence of records; either all
// records parse or nil and a ConfigurationError are returned
func (p *Parser) Parse(root interface{}) ([]Configuration, error) {
	items, isSequence := root.([]interface{})
	if !isSequence {
		return nil, newConfigurationError(nil, "Root object of a metric configuration must be an array")
	}

	configurations := make([]Configuration, 0, len(items))

	for itemIndex, item := range items {
		fields, isRecord := item.(map[string]interface{})
		if !isRecord {
			return nil, newConfigurationError(nil, "Item %d in the root array must be an object", itemIndex)
		}

		configuration, err := p.parseRecord(fields)
		if err != nil {
			return nil, err
		}

		configurations = append(configurations, configuration)
	}

	return configurations, nil
}

func (p *Parser) parseRecord(fields map[string]interface{}) (Configuration, error) {
	var decodedRecord record

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decodedRecord,
		WeaklyTypedInput: false,
		DecodeHook:       rejectNumbersAsStrings,
	})
	if err != nil {
		return Configuration{}, newConfigurationError(err, "Failed to create record decoder")
	}

	if err := decoder.Decode(fields); err != nil {
		return Configuration{}, newConfigurationError(err, "Failed to decode metric configuration record")
	}

	objectName, err := requiredString(decodedRecord.ObjectName, "objectName")
	if err != nil {
		return Configuration{}, err
	}

	if _, err := management.ParseObjectName(objectName); err != nil {
		return Configuration{}, newConfigurationError(err, "Invalid objectName")
	}

	attribute, err := requiredString(decodedRecord.Attribute, "attribute")
	if err != nil {
		return Configuration{}, err
	}

	metricName, err := requiredString(decodedRecord.MetricName, "metricName")
	if err != nil {
		return Configuration{}, err
	}

	unitName, err := requiredString(decodedRecord.Unit, "unit")
	if err != nil {
		return Configuration{}, err
	}

	unit, err := ParseUnit(unitName)
	if err != nil {
		return Configuration{}, err
	}

	frequency := DefaultFrequency
	if frequencyValue, found := fields[frequencyKey]; found {
		frequency, err = parseFrequency(frequencyValue)
		if err != nil {
			return Configuration{}, err
		}
	}

	configuration := Configuration{
		ObjectName: objectName,
		Attribute:  attribute,
		MetricName: metricName,
		Unit:       unit,
		Frequency:  frequency,
	}

	if _, found := fields[compositeDataKeyKey]; found {
		compositeKey, err := requiredString(decodedRecord.CompositeDataKey, compositeDataKeyKey)
		if err != nil {
			return Configuration{}, err
		}

		configuration = configuration.WithCompositeKey(compositeKey)
	}

	// a comment may be omitted, but when present it must be a string
	if _, found := fields[commentKey]; found {
		configuration.Comment, err = requiredString(decodedRecord.Comment, commentKey)
		if err != nil {
			return Configuration{}, err
		}
	}

	return configuration, nil
}

// json.Number has a string kind, which mapstructure would happily assign to string fields
func rejectNumbersAsStrings(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from != reflect.TypeOf(json.Number("")) {
		return data, nil
	}

	for to.Kind() == reflect.Ptr {
		to = to.Elem()
	}

	if to.Kind() == reflect.String {
		return nil, newConfigurationError(nil, "Expected a string, got the number %s", data)
	}

	return data, nil
}

// requiredString fails for absent and null values. Values of other types fail to decode beforehand
func requiredString(value *string, key string) (string, error) {
	if value == nil {
		return "", newConfigurationError(nil, "Configuration had a missing or non-string value for %s", key)
	}

	return *value, nil
}

func parseFrequency(value interface{}) (int, error) {
	var frequency float64

	switch typedValue := value.(type) {
	case json.Number:
		parsedValue, err := typedValue.Float64()
		if err != nil {
			return 0, newConfigurationError(err, "Frequency had a non-numeric value %s", typedValue.String())
		}

		frequency = parsedValue
	case float64:
		frequency = typedValue
	case float32:
		frequency = float64(typedValue)
	case int:
		frequency = float64(typedValue)
	case int32:
		frequency = float64(typedValue)
	case int64:
		frequency = float64(typedValue)
	case uint:
		frequency = float64(typedValue)
	case uint32:
		frequency = float64(typedValue)
	case uint64:
		frequency = float64(typedValue)
	default:
		return 0, newConfigurationError(nil, "Frequency had a non-numeric value %v", value)
	}

	// frequencies are whole seconds; fractions are dropped
	frequency = math.Trunc(frequency)

	if math.IsNaN(frequency) || frequency < 1 || frequency > math.MaxInt32 {
		return 0, newConfigurationError(nil, "Frequency must be a positive number of seconds, got %v", value)
	}

	return int(frequency), nil
}
