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

// Package goruntime exposes Go runtime statistics as management containers
package goruntime

import (
	"math"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"time"

	"github.com/nuclio/metricbridge/pkg/attribute"
	"github.com/nuclio/metricbridge/pkg/management"

	"github.com/nuclio/errors"
)

const (
	MemoryObjectName           = "go.runtime:type=Memory"
	ThreadingObjectName        = "go.runtime:type=Threading"
	GarbageCollectorObjectName = "go.runtime:type=GarbageCollector"
	RuntimeObjectName          = "go.runtime:type=Runtime"
)

var startTime = time.Now()

// Containers returns the runtime containers keyed by object name
func Containers() map[string]management.Container {
	return map[string]management.Container{
		MemoryObjectName: management.Getters{
			"HeapMemoryUsage": func() (interface{}, error) {
				memStats := readMemStats()

				return memoryUsage(memStats.HeapAlloc, memStats.HeapSys), nil
			},
			"StackMemoryUsage": func() (interface{}, error) {
				memStats := readMemStats()

				return memoryUsage(memStats.StackInuse, memStats.StackSys), nil
			},
			"HeapObjects": func() (interface{}, error) {
				return readMemStats().HeapObjects, nil
			},
		},
		ThreadingObjectName: management.Getters{
			"GoroutineCount": func() (interface{}, error) {
				return runtime.NumGoroutine(), nil
			},
			"ThreadCount": func() (interface{}, error) {
				return pprof.Lookup("threadcreate").Count(), nil
			},
		},
		GarbageCollectorObjectName: management.Getters{
			"CollectionCount": func() (interface{}, error) {
				return readMemStats().NumGC, nil
			},
			"PauseTotalMillis": func() (interface{}, error) {
				return nanosToMillis(readMemStats().PauseTotalNs), nil
			},
			"LastPauseMillis": func() (interface{}, error) {
				memStats := readMemStats()
				if memStats.NumGC == 0 {
					return 0.0, nil
				}

				return nanosToMillis(memStats.PauseNs[(memStats.NumGC+255)%256]), nil
			},
		},
		RuntimeObjectName: management.Getters{
			"Uptime": func() (interface{}, error) {
				return time.Since(startTime).Milliseconds(), nil
			},
			"NumCPU": func() (interface{}, error) {
				return runtime.NumCPU(), nil
			},
		},
	}
}

// Register registers all runtime containers on a server
func Register(server *management.LocalServer) error {
	for name, container := range Containers() {
		objectName, err := management.ParseObjectName(name)
		if err != nil {
			return errors.Wrapf(err, "Failed to parse runtime container name %s", name)
		}

		if err := server.Register(objectName, container); err != nil {
			return errors.Wrapf(err, "Failed to register runtime container %s", name)
		}
	}

	return nil
}

func readMemStats() *runtime.MemStats {
	memStats := runtime.MemStats{}
	runtime.ReadMemStats(&memStats)

	return &memStats
}

// memoryUsage has the fields of a memory usage record. max is the soft memory limit, or -1 if none is set
func memoryUsage(used uint64, committed uint64) attribute.Record {
	maxMemory := debug.SetMemoryLimit(-1)
	if maxMemory == math.MaxInt64 {
		maxMemory = -1
	}

	return attribute.Record{
		"init":      uint64(0),
		"used":      used,
		"committed": committed,
		"max":       maxMemory,
	}
}

func nanosToMillis(nanos uint64) float64 {
	return float64(nanos) / float64(time.Millisecond)
}
