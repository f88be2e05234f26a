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

package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/nuclio/metricbridge/pkg/metricconfig"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
)

// JobStatus describes a scheduled job
type JobStatus struct {
	ID            string                     `json:"id"`
	Configuration metricconfig.Configuration `json:"configuration"`
	Statistics    Statistics                 `json:"statistics"`
}

// activeSet is an immutable snapshot of the jobs currently scheduled
type activeSet struct {
	configurations []metricconfig.Configuration
	jobs           []Job
	handles        []Handle
}

var emptyActiveSet = &activeSet{}

func (as *activeSet) cancel() {
	for _, handle := range as.handles {
		handle.Cancel()
	}
}

// SchedulerOption customizes a scheduler
type SchedulerOption func(*Scheduler)

// WithActiveJobsObserver is notified of the number of scheduled jobs after every rotation
func WithActiveJobsObserver(observer func(activeJobs int)) SchedulerOption {
	return func(s *Scheduler) {
		s.activeJobsObserver = observer
	}
}

// Scheduler runs one job per metric configuration, replacing the whole set on every call to Monitor
type Scheduler struct {
	logger             logger.Logger
	factory            JobFactory
	executor           Executor
	ownsExecutor       bool
	active             atomic.Pointer[activeSet]
	monitored          atomic.Bool
	shutdown           atomic.Bool
	shutdownOnce       sync.Once
	activeJobsObserver func(activeJobs int)
}

// NewScheduler creates a scheduler. If executor is nil, the scheduler creates a single lane executor
// and shuts it down along with itself
func NewScheduler(parentLogger logger.Logger,
	factory JobFactory,
	executor Executor,
	options ...SchedulerOption) (*Scheduler, error) {

	if factory == nil {
		return nil, errors.New("Scheduler requires a job factory")
	}

	newScheduler := &Scheduler{
		logger:   parentLogger.GetChild("scheduler"),
		factory:  factory,
		executor: executor,
	}

	if newScheduler.executor == nil {
		cronExecutor, err := NewCronExecutor(newScheduler.logger, 1)
		if err != nil {
			return nil, errors.Wrap(err, "Failed to create executor")
		}

		newScheduler.executor = cronExecutor
		newScheduler.ownsExecutor = true
	}

	for _, option := range options {
		option(newScheduler)
	}

	newScheduler.active.Store(emptyActiveSet)

	return newScheduler, nil
}

// Monitor schedules a job for every configuration, in order, each running at its own frequency, then
// cancels the jobs of the previous call. An empty list stops all jobs. If a job cannot be created or
// scheduled, the error is returned and the previous jobs keep running
func (s *Scheduler) Monitor(configurations []metricconfig.Configuration) error {
	if configurations == nil {
		return errors.New("Configurations must not be nil")
	}

	newSet := &activeSet{
		configurations: metricconfig.Copy(configurations),
		jobs:           make([]Job, 0, len(configurations)),
		handles:        make([]Handle, 0, len(configurations)),
	}

	for _, configuration := range newSet.configurations {
		job, err := s.factory.Create(configuration)
		if err != nil {
			newSet.cancel()

			// returned as is so that configuration errors are recognizable by the caller
			return err
		}

		handle, err := s.executor.ScheduleAtFixedRate(job, configuration.Period(), configuration.Period())
		if err != nil {
			newSet.cancel()

			return errors.Wrapf(err, "Failed to schedule metric %s", configuration.MetricName)
		}

		newSet.jobs = append(newSet.jobs, job)
		newSet.handles = append(newSet.handles, handle)
	}

	previousSet := s.active.Swap(newSet)
	previousSet.cancel()

	s.monitored.Store(true)

	// an unchanged list is still rotated, all jobs are re-created
	s.logger.InfoWith("Monitoring metrics",
		"jobs", len(newSet.jobs),
		"cancelled", len(previousSet.handles),
		"unchanged", metricconfig.Equal(previousSet.configurations, newSet.configurations))

	if s.activeJobsObserver != nil {
		s.activeJobsObserver(len(s.active.Load().jobs))
	}

	return nil
}

// SetConfigurations is an alias of Monitor
func (s *Scheduler) SetConfigurations(configurations []metricconfig.Configuration) error {
	return s.Monitor(configurations)
}

// Shutdown cancels all jobs and, if the scheduler created its executor, shuts the executor down
func (s *Scheduler) Shutdown() error {
	var err error

	s.shutdownOnce.Do(func() {
		err = s.Monitor([]metricconfig.Configuration{})

		if s.ownsExecutor {
			s.executor.Shutdown()
		}

		s.shutdown.Store(true)

		s.logger.InfoWith("Scheduler shut down", "ownsExecutor", s.ownsExecutor)
	})

	return err
}

// Configurations returns a copy of the configurations currently scheduled
func (s *Scheduler) Configurations() []metricconfig.Configuration {
	configurations := metricconfig.Copy(s.active.Load().configurations)
	if configurations == nil {
		return []metricconfig.Configuration{}
	}

	return configurations
}

// Jobs returns the status of the jobs currently scheduled
func (s *Scheduler) Jobs() []JobStatus {
	jobs := s.active.Load().jobs

	jobStatuses := make([]JobStatus, 0, len(jobs))
	for _, job := range jobs {
		jobStatuses = append(jobStatuses, JobStatus{
			ID:            job.GetID(),
			Configuration: job.GetConfiguration(),
			Statistics:    job.GetStatistics(),
		})
	}

	return jobStatuses
}

func (s *Scheduler) ActiveJobCount() int {
	return len(s.active.Load().jobs)
}

// IsMonitoring returns true once Monitor succeeded at least once
func (s *Scheduler) IsMonitoring() bool {
	return s.monitored.Load()
}

func (s *Scheduler) IsShutdown() bool {
	return s.shutdown.Load()
}

func (s *Scheduler) OwnsExecutor() bool {
	return s.ownsExecutor
}
