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
	"encoding/json"
	"fmt"
	"time"
)

// DefaultFrequency is the polling interval, in seconds, used when a record omits "frequency"
const DefaultFrequency = 60

// Configuration describes a single attribute to poll and the metric it is reported as.
// Configurations are values; copying one yields an independent, equal configuration
type Configuration struct {
	ObjectName   string `json:"objectName"`
	Attribute    string `json:"attribute"`
	CompositeKey string `json:"compositeDataKey,omitempty"`
	MetricName   string `json:"metricName"`
	Unit         Unit   `json:"unit"`
	Frequency    int    `json:"frequency"`
	Comment      string `json:"comment,omitempty"`

	// set when the composite key is present but empty
	emptyCompositeKey bool
}

// WithCompositeKey returns a copy of the configuration reading the given field of a record
// attribute. The key may be empty, an empty key still names a field
func (c Configuration) WithCompositeKey(compositeKey string) Configuration {
	c.CompositeKey = compositeKey
	c.emptyCompositeKey = compositeKey == ""

	return c
}

// HasCompositeKey returns true if the attribute value is a record and the metric lives in one of its fields
func (c Configuration) HasCompositeKey() bool {
	return c.CompositeKey != "" || c.emptyCompositeKey
}

// Period returns the polling frequency as a duration
func (c Configuration) Period() time.Duration {
	return time.Duration(c.Frequency) * time.Second
}

// Equal returns true iff all fields are equal
func (c Configuration) Equal(other Configuration) bool {
	return c.ObjectName == other.ObjectName &&
		c.Attribute == other.Attribute &&
		c.HasCompositeKey() == other.HasCompositeKey() &&
		c.CompositeKey == other.CompositeKey &&
		c.MetricName == other.MetricName &&
		c.Unit == other.Unit &&
		c.Frequency == other.Frequency &&
		c.Comment == other.Comment
}

// MarshalJSON encodes the configuration in the format it is parsed from, keeping an empty composite key
func (c Configuration) MarshalJSON() ([]byte, error) {
	type encodedConfiguration struct {
		ObjectName   string  `json:"objectName"`
		Attribute    string  `json:"attribute"`
		CompositeKey *string `json:"compositeDataKey,omitempty"`
		MetricName   string  `json:"metricName"`
		Unit         Unit    `json:"unit"`
		Frequency    int     `json:"frequency"`
		Comment      string  `json:"comment,omitempty"`
	}

	encoded := encodedConfiguration{
		ObjectName: c.ObjectName,
		Attribute:  c.Attribute,
		MetricName: c.MetricName,
		Unit:       c.Unit,
		Frequency:  c.Frequency,
		Comment:    c.Comment,
	}

	if c.HasCompositeKey() {
		compositeKey := c.CompositeKey
		encoded.CompositeKey = &compositeKey
	}

	return json.Marshal(encoded)
}

func (c Configuration) String() string {
	if c.HasCompositeKey() {
		return fmt.Sprintf("%s(%s/%s.%s @%ds)", c.MetricName, c.ObjectName, c.Attribute, c.CompositeKey, c.Frequency)
	}

	return fmt.Sprintf("%s(%s/%s @%ds)", c.MetricName, c.ObjectName, c.Attribute, c.Frequency)
}

// Copy returns an independent copy of a configuration list
func Copy(configurations []Configuration) []Configuration {
	if configurations == nil {
		return nil
	}

	copied := make([]Configuration, len(configurations))
	copy(copied, configurations)

	return copied
}

// Equal returns true if both lists hold equal configurations in the same order
func Equal(first []Configuration, second []Configuration) bool {
	if len(first) != len(second) {
		return false
	}

	for configurationIndex := range first {
		if !first[configurationIndex].Equal(second[configurationIndex]) {
			return false
		}
	}

	return true
}
