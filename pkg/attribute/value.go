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

// Package attribute classifies values read from a management registry into numbers, records and
// everything else, so that consumers can match over a closed set of kinds
package attribute

import (
	"encoding/json"
	"fmt"
	"sort"
)

type Kind int

const (
	KindOther Kind = iota
	KindNumber
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindRecord:
		return "record"
	default:
		return "other"
	}
}

// CompositeData is implemented by structured attribute values that are not plain maps
type CompositeData interface {
	Keys() []string
	Get(key string) (interface{}, bool)
}

// Record is a structured attribute value with named fields
type Record map[string]interface{}

func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for key := range r {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

func (r Record) Get(key string) (interface{}, bool) {
	value, found := r[key]
	return value, found
}

// Value is a classified attribute value
type Value struct {
	kind     Kind
	number   float64
	record   CompositeData
	raw      interface{}
	typeName string
}

// Number creates a numeric value
func Number(number float64) Value {
	return Value{
		kind:     KindNumber,
		number:   number,
		raw:      number,
		typeName: "float64",
	}
}

// Of classifies an arbitrary value
func Of(raw interface{}) Value {
	if raw == nil {
		return Value{kind: KindOther, typeName: "null"}
	}

	if number, isNumber := toNumber(raw); isNumber {
		return Value{
			kind:     KindNumber,
			number:   number,
			raw:      raw,
			typeName: fmt.Sprintf("%T", raw),
		}
	}

	if record, isRecord := toRecord(raw); isRecord {
		return Value{
			kind:     KindRecord,
			record:   record,
			raw:      raw,
			typeName: fmt.Sprintf("%T", raw),
		}
	}

	return Value{
		kind:     KindOther,
		raw:      raw,
		typeName: fmt.Sprintf("%T", raw),
	}
}

func (v Value) Kind() Kind {
	return v.kind
}

// Number returns the numeric value and whether the value is a number
func (v Value) Number() (float64, bool) {
	return v.number, v.kind == KindNumber
}

// Field returns the classified value of a record field, and whether the value is a record holding that field
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindRecord {
		return Value{}, false
	}

	fieldValue, found := v.record.Get(key)
	if !found {
		return Value{}, false
	}

	return Of(fieldValue), true
}

// Keys returns the field names of a record value, or nil for any other kind
func (v Value) Keys() []string {
	if v.kind != KindRecord {
		return nil
	}

	return v.record.Keys()
}

// Raw returns the value as it was read
func (v Value) Raw() interface{} {
	return v.raw
}

// TypeName describes the observed type of the value, "null" for nil
func (v Value) TypeName() string {
	return v.typeName
}

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("%v", v.number)
	case KindRecord:
		return fmt.Sprintf("record%v", v.record.Keys())
	default:
		return fmt.Sprintf("%v (%s)", v.raw, v.typeName)
	}
}

func toNumber(raw interface{}) (float64, bool) {
	switch typedValue := raw.(type) {
	case float64:
		return typedValue, true
	case float32:
		return float64(typedValue), true
	case int:
		return float64(typedValue), true
	case int8:
		return float64(typedValue), true
	case int16:
		return float64(typedValue), true
	case int32:
		return float64(typedValue), true
	case int64:
		return float64(typedValue), true
	case uint:
		return float64(typedValue), true
	case uint8:
		return float64(typedValue), true
	case uint16:
		return float64(typedValue), true
	case uint32:
		return float64(typedValue), true
	case uint64:
		return float64(typedValue), true
	case uintptr:
		return float64(typedValue), true
	case json.Number:
		number, err := typedValue.Float64()
		if err != nil {
			return 0, false
		}

		return number, true
	default:
		return 0, false
	}
}

func toRecord(raw interface{}) (CompositeData, bool) {
	switch typedValue := raw.(type) {
	case CompositeData:
		return typedValue, true
	case map[string]interface{}:
		return Record(typedValue), true
	case map[string]float64:
		record := make(Record, len(typedValue))
		for key, fieldValue := range typedValue {
			record[key] = fieldValue
		}

		return record, true
	case map[string]int64:
		record := make(Record, len(typedValue))
		for key, fieldValue := range typedValue {
			record[key] = fieldValue
		}

		return record, true
	case map[string]uint64:
		record := make(Record, len(typedValue))
		for key, fieldValue := range typedValue {
			record[key] = fieldValue
		}

		return record, true
	default:
		return nil, false
	}
}
