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

// Package host exposes operating system and process statistics as management containers
package host

import (
	"os"

	"github.com/nuclio/metricbridge/pkg/attribute"
	"github.com/nuclio/metricbridge/pkg/management"

	"github.com/nuclio/errors"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
	"github.com/shirou/gopsutil/process"
)

const (
	OperatingSystemObjectName = "os:type=OperatingSystem"
	ProcessObjectName         = "os:type=Process"
)

// replaced in tests
var (
	virtualMemory = mem.VirtualMemory
	loadAverage   = load.Avg
	cpuPercent    = cpu.Percent
	newProcess    = process.NewProcess
)

// Containers returns the host containers keyed by object name
func Containers() map[string]management.Container {
	return map[string]management.Container{
		OperatingSystemObjectName: management.Getters{
			"SystemLoadAverage": func() (interface{}, error) {
				averages, err := loadAverage()
				if err != nil {
					return nil, errors.Wrap(err, "Failed to read load average")
				}

				return averages.Load1, nil
			},
			"PhysicalMemory": func() (interface{}, error) {
				memoryStat, err := virtualMemory()
				if err != nil {
					return nil, errors.Wrap(err, "Failed to read virtual memory")
				}

				return attribute.Record{
					"total":       memoryStat.Total,
					"available":   memoryStat.Available,
					"used":        memoryStat.Used,
					"usedPercent": memoryStat.UsedPercent,
				}, nil
			},
			"CpuPercent": func() (interface{}, error) {

				// zero interval compares against the previous call
				percentages, err := cpuPercent(0, false)
				if err != nil {
					return nil, errors.Wrap(err, "Failed to read cpu percent")
				}

				if len(percentages) == 0 {
					return nil, errors.New("No cpu information available")
				}

				return percentages[0], nil
			},
		},
		ProcessObjectName: management.Getters{
			"ResidentSetSize": func() (interface{}, error) {
				currentProcess, err := getCurrentProcess()
				if err != nil {
					return nil, err
				}

				memoryInfo, err := currentProcess.MemoryInfo()
				if err != nil {
					return nil, errors.Wrap(err, "Failed to read process memory")
				}

				return memoryInfo.RSS, nil
			},
			"VirtualMemorySize": func() (interface{}, error) {
				currentProcess, err := getCurrentProcess()
				if err != nil {
					return nil, err
				}

				memoryInfo, err := currentProcess.MemoryInfo()
				if err != nil {
					return nil, errors.Wrap(err, "Failed to read process memory")
				}

				return memoryInfo.VMS, nil
			},
			"OpenFileDescriptorCount": func() (interface{}, error) {
				currentProcess, err := getCurrentProcess()
				if err != nil {
					return nil, err
				}

				fileDescriptorCount, err := currentProcess.NumFDs()
				if err != nil {
					return nil, errors.Wrap(err, "Failed to read open file descriptors")
				}

				return fileDescriptorCount, nil
			},
			"ThreadCount": func() (interface{}, error) {
				currentProcess, err := getCurrentProcess()
				if err != nil {
					return nil, err
				}

				threadCount, err := currentProcess.NumThreads()
				if err != nil {
					return nil, errors.Wrap(err, "Failed to read thread count")
				}

				return threadCount, nil
			},
		},
	}
}

// Register registers all host containers on a server
func Register(server *management.LocalServer) error {
	for name, container := range Containers() {
		objectName, err := management.ParseObjectName(name)
		if err != nil {
			return errors.Wrapf(err, "Failed to parse host container name %s", name)
		}

		if err := server.Register(objectName, container); err != nil {
			return errors.Wrapf(err, "Failed to register host container %s", name)
		}
	}

	return nil
}

func getCurrentProcess() (*process.Process, error) {
	currentProcess, err := newProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "Failed to get current process")
	}

	return currentProcess, nil
}
