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

// Unit describes the measurement semantics of a metric value
type Unit string

const (
	UnitSeconds            Unit = "Seconds"
	UnitMicroseconds       Unit = "Microseconds"
	UnitMilliseconds       Unit = "Milliseconds"
	UnitBytes              Unit = "Bytes"
	UnitKilobytes          Unit = "Kilobytes"
	UnitMegabytes          Unit = "Megabytes"
	UnitGigabytes          Unit = "Gigabytes"
	UnitTerabytes          Unit = "Terabytes"
	UnitBits               Unit = "Bits"
	UnitKilobits           Unit = "Kilobits"
	UnitMegabits           Unit = "Megabits"
	UnitGigabits           Unit = "Gigabits"
	UnitTerabits           Unit = "Terabits"
	UnitPercent            Unit = "Percent"
	UnitCount              Unit = "Count"
	UnitBytesPerSecond     Unit = "BytesPerSecond"
	UnitKilobytesPerSecond Unit = "KilobytesPerSecond"
	UnitMegabytesPerSecond Unit = "MegabytesPerSecond"
	UnitGigabytesPerSecond Unit = "GigabytesPerSecond"
	UnitTerabytesPerSecond Unit = "TerabytesPerSecond"
	UnitBitsPerSecond      Unit = "BitsPerSecond"
	UnitKilobitsPerSecond  Unit = "KilobitsPerSecond"
	UnitMegabitsPerSecond  Unit = "MegabitsPerSecond"
	UnitGigabitsPerSecond  Unit = "GigabitsPerSecond"
	UnitTerabitsPerSecond  Unit = "TerabitsPerSecond"
	UnitCountPerSecond     Unit = "CountPerSecond"
	UnitNone               Unit = "None"
)

var units = []Unit{
	UnitSeconds,
	UnitMicroseconds,
	UnitMilliseconds,
	UnitBytes,
	UnitKilobytes,
	UnitMegabytes,
	UnitGigabytes,
	UnitTerabytes,
	UnitBits,
	UnitKilobits,
	UnitMegabits,
	UnitGigabits,
	UnitTerabits,
	UnitPercent,
	UnitCount,
	UnitBytesPerSecond,
	UnitKilobytesPerSecond,
	UnitMegabytesPerSecond,
	UnitGigabytesPerSecond,
	UnitTerabytesPerSecond,
	UnitBitsPerSecond,
	UnitKilobitsPerSecond,
	UnitMegabitsPerSecond,
	UnitGigabitsPerSecond,
	UnitTerabitsPerSecond,
	UnitCountPerSecond,
	UnitNone,
}

var knownUnits map[Unit]struct{}

func init() {
	knownUnits = make(map[Unit]struct{}, len(units))
	for _, unit := range units {
		knownUnits[unit] = struct{}{}
	}
}

// Units returns all known units
func Units() []Unit {
	allUnits := make([]Unit, len(units))
	copy(allUnits, units)

	return allUnits
}

// ParseUnit returns the unit whose name matches exactly
func ParseUnit(name string) (Unit, error) {
	unit := Unit(name)
	if !unit.IsValid() {
		return "", newConfigurationError(nil, "Invalid unit %s", name)
	}

	return unit, nil
}

// IsValid returns true if the unit is one of the known units
func (u Unit) IsValid() bool {
	_, found := knownUnits[u]
	return found
}

func (u Unit) String() string {
	return string(u)
}

func (u Unit) MarshalText() ([]byte, error) {
	if !u.IsValid() {
		return nil, newConfigurationError(nil, "Invalid unit %s", string(u))
	}

	return []byte(u), nil
}

func (u *Unit) UnmarshalText(text []byte) error {
	unit, err := ParseUnit(string(text))
	if err != nil {
		return err
	}

	*u = unit

	return nil
}
