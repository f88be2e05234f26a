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
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nuclio/metricbridge/pkg/attribute"
	"github.com/nuclio/metricbridge/pkg/management"
	"github.com/nuclio/metricbridge/pkg/metricconfig"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	nucliozap "github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type recordedSchedule struct {
	task         Task
	initialDelay time.Duration
	period       time.Duration
	handle       *recordingHandle
}

type recordingHandle struct {
	lock      sync.Mutex
	cancelled bool
}

func (rh *recordingHandle) Cancel() {
	rh.lock.Lock()
	defer rh.lock.Unlock()

	rh.cancelled = true
}

func (rh *recordingHandle) IsCancelled() bool {
	rh.lock.Lock()
	defer rh.lock.Unlock()

	return rh.cancelled
}

type recordingExecutor struct {
	lock      sync.Mutex
	schedules []recordedSchedule
	failAfter int
	shutdown  bool
}

func (re *recordingExecutor) ScheduleAtFixedRate(task Task, initialDelay time.Duration, period time.Duration) (Handle, error) {
	re.lock.Lock()
	defer re.lock.Unlock()

	if re.shutdown {
		return nil, ErrExecutorShutdown
	}

	if re.failAfter > 0 && len(re.schedules) >= re.failAfter {
		return nil, errors.New("Executor is full")
	}

	schedule := recordedSchedule{
		task:         task,
		initialDelay: initialDelay,
		period:       period,
		handle:       &recordingHandle{},
	}

	re.schedules = append(re.schedules, schedule)

	return schedule.handle, nil
}

func (re *recordingExecutor) Shutdown() {
	re.lock.Lock()
	defer re.lock.Unlock()

	re.shutdown = true
}

func (re *recordingExecutor) getSchedules() []recordedSchedule {
	re.lock.Lock()
	defer re.lock.Unlock()

	return append([]recordedSchedule{}, re.schedules...)
}

func (re *recordingExecutor) activeCount() int {
	active := 0

	for _, schedule := range re.getSchedules() {
		if !schedule.handle.IsCancelled() {
			active++
		}
	}

	return active
}

type SchedulerTestSuite struct {
	suite.Suite
	logger       logger.Logger
	server       *management.LocalServer
	tracker      *recordingTracker
	errorHandler *recordingErrorHandler
	factory      *MetricJobFactory
	executor     *recordingExecutor
	scheduler    *Scheduler
}

func (suite *SchedulerTestSuite) SetupTest() {
	var err error

	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.server = management.NewLocalServer()
	suite.tracker = &recordingTracker{}
	suite.errorHandler = &recordingErrorHandler{}
	suite.executor = &recordingExecutor{}

	err = suite.server.Register(management.MustParseObjectName("java.lang:type=Memory"), management.Attributes{
		"HeapMemoryUsage": attribute.Record{"used": 12345, "max": 99999},
	})
	suite.Require().NoError(err)

	suite.factory, err = NewJobFactory(suite.logger,
		suite.tracker,
		WithServer(suite.server),
		WithErrorHandler(suite.errorHandler))
	suite.Require().NoError(err)

	suite.scheduler, err = NewScheduler(suite.logger, suite.factory, suite.executor)
	suite.Require().NoError(err)
}

func (suite *SchedulerTestSuite) TestMonitorSchedulesInOrder() {
	configurations := []metricconfig.Configuration{
		suite.configuration("first", 10),
		suite.configuration("second", 30),
	}

	suite.Require().NoError(suite.scheduler.Monitor(configurations))

	schedules := suite.executor.getSchedules()
	suite.Require().Len(schedules, 2)

	for scheduleIndex, schedule := range schedules {
		job := schedule.task.(Job)
		expectedPeriod := configurations[scheduleIndex].Period()

		suite.Require().Equal(configurations[scheduleIndex], job.GetConfiguration())
		suite.Require().Equal(expectedPeriod, schedule.initialDelay)
		suite.Require().Equal(expectedPeriod, schedule.period)
	}

	suite.Require().Equal(configurations, suite.scheduler.Configurations())
	suite.Require().Equal(2, suite.scheduler.ActiveJobCount())
	suite.Require().True(suite.scheduler.IsMonitoring())
}

func (suite *SchedulerTestSuite) TestRotationCancelsPrevious() {
	suite.Require().NoError(suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c1", 60),
		suite.configuration("c2", 60),
	}))

	suite.Require().NoError(suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c3", 60),
		suite.configuration("c4", 60),
	}))

	schedules := suite.executor.getSchedules()
	suite.Require().Len(schedules, 4)

	for _, schedule := range schedules[:2] {
		suite.Require().True(schedule.handle.IsCancelled())
	}

	for _, schedule := range schedules[2:] {
		suite.Require().False(schedule.handle.IsCancelled())
	}

	suite.Require().Equal([]string{"c3", "c4"}, suite.activeMetricNames())
}

func (suite *SchedulerTestSuite) TestRotationWithIdenticalConfigurations() {
	configurations := []metricconfig.Configuration{suite.configuration("same", 60)}

	suite.Require().NoError(suite.scheduler.Monitor(configurations))
	firstID := suite.scheduler.Jobs()[0].ID

	suite.Require().NoError(suite.scheduler.Monitor(configurations))

	suite.Require().NotEqual(firstID, suite.scheduler.Jobs()[0].ID)
	suite.Require().Equal(1, suite.executor.activeCount())
}

func (suite *SchedulerTestSuite) TestMonitorEmpty() {
	suite.Require().NoError(suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c1", 60),
	}))

	suite.Require().NoError(suite.scheduler.Monitor([]metricconfig.Configuration{}))

	suite.Require().Zero(suite.scheduler.ActiveJobCount())
	suite.Require().Zero(suite.executor.activeCount())
	suite.Require().Empty(suite.scheduler.Configurations())
}

func (suite *SchedulerTestSuite) TestMonitorNil() {
	suite.Require().Error(suite.scheduler.Monitor(nil))
	suite.Require().False(suite.scheduler.IsMonitoring())
}

func (suite *SchedulerTestSuite) TestFactoryFailureKeepsPreviousSet() {
	suite.Require().NoError(suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c1", 60),
	}))

	invalid := suite.configuration("invalid", 60)
	invalid.ObjectName = "no-domain"

	err := suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c2", 60),
		invalid,
	})
	suite.Require().Error(err)
	suite.Require().True(metricconfig.IsConfigurationError(err))

	// c1 still runs, c2 was scheduled in the failed attempt and is cancelled
	schedules := suite.executor.getSchedules()
	suite.Require().Len(schedules, 2)
	suite.Require().False(schedules[0].handle.IsCancelled())
	suite.Require().True(schedules[1].handle.IsCancelled())
	suite.Require().Equal([]string{"c1"}, suite.activeMetricNames())
}

func (suite *SchedulerTestSuite) TestScheduleFailureKeepsPreviousSet() {
	suite.executor.failAfter = 2

	suite.Require().NoError(suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c1", 60),
	}))

	err := suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c2", 60),
		suite.configuration("c3", 60),
	})
	suite.Require().Error(err)
	suite.Require().False(metricconfig.IsConfigurationError(err))

	suite.Require().Equal([]string{"c1"}, suite.activeMetricNames())
	suite.Require().Equal(1, suite.executor.activeCount())
}

func (suite *SchedulerTestSuite) TestConcurrentMonitor() {
	waitGroup := sync.WaitGroup{}

	for monitorIndex := 0; monitorIndex < 20; monitorIndex++ {
		waitGroup.Add(1)

		go func(monitorIndex int) {
			defer waitGroup.Done()

			suite.NoError(suite.scheduler.Monitor([]metricconfig.Configuration{
				suite.configuration(fmt.Sprintf("a%d", monitorIndex), 60),
				suite.configuration(fmt.Sprintf("b%d", monitorIndex), 60),
			}))
		}(monitorIndex)
	}

	waitGroup.Wait()

	// exactly one set survives, nothing leaks
	suite.Require().Equal(2, suite.scheduler.ActiveJobCount())
	suite.Require().Equal(2, suite.executor.activeCount())
}

func (suite *SchedulerTestSuite) TestShutdownWithExternalExecutor() {
	suite.Require().NoError(suite.scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c1", 60),
	}))

	suite.Require().NoError(suite.scheduler.Shutdown())

	suite.Require().True(suite.scheduler.IsShutdown())
	suite.Require().Zero(suite.executor.activeCount())

	suite.executor.lock.Lock()
	suite.Require().False(suite.executor.shutdown)
	suite.executor.lock.Unlock()
}

func (suite *SchedulerTestSuite) TestShutdownWithOwnedExecutor() {
	scheduler, err := NewScheduler(suite.logger, suite.factory, nil)
	suite.Require().NoError(err)
	suite.Require().True(scheduler.OwnsExecutor())

	suite.Require().NoError(scheduler.Monitor([]metricconfig.Configuration{}))
	suite.Require().NoError(scheduler.Shutdown())
	suite.Require().NoError(scheduler.Shutdown())

	err = scheduler.Monitor([]metricconfig.Configuration{suite.configuration("c1", 60)})
	suite.Require().Error(err)
	suite.Require().Equal(ErrExecutorShutdown, errors.RootCause(err))
}

func (suite *SchedulerTestSuite) TestActiveJobsObserver() {
	var observed []int

	scheduler, err := NewScheduler(suite.logger, suite.factory, suite.executor, WithActiveJobsObserver(
		func(activeJobs int) {
			observed = append(observed, activeJobs)
		}))
	suite.Require().NoError(err)

	suite.Require().NoError(scheduler.Monitor([]metricconfig.Configuration{
		suite.configuration("c1", 60),
		suite.configuration("c2", 60),
	}))
	suite.Require().NoError(scheduler.Monitor([]metricconfig.Configuration{}))

	suite.Require().Equal([]int{2, 0}, observed)
}

func (suite *SchedulerTestSuite) TestHeapUsedScenario() {
	configurations, err := metricconfig.NewParser().ParseBytes([]byte(`[{
		"objectName": "java.lang:type=Memory",
		"attribute": "HeapMemoryUsage",
		"compositeDataKey": "used",
		"metricName": "HeapUsed",
		"unit": "Count",
		"frequency": 60
	}]`))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.scheduler.Monitor(configurations))

	schedule := suite.executor.getSchedules()[0]
	suite.Require().Equal(60*time.Second, schedule.period)

	// two ticks
	schedule.task.Run()
	schedule.task.Run()

	tracked := suite.tracker.getTracked()
	suite.Require().Len(tracked, 2)

	for _, metric := range tracked {
		suite.Require().Equal("HeapUsed", metric.metricName)
		suite.Require().Equal(12345.0, metric.value)
		suite.Require().Equal(metricconfig.UnitCount, metric.unit)
	}

	suite.Require().Empty(suite.errorHandler.getHandled())
	suite.Require().Equal(uint64(2), suite.scheduler.Jobs()[0].Statistics.ForwardedTotal)
}

func (suite *SchedulerTestSuite) configuration(metricName string, frequency int) metricconfig.Configuration {
	return metricconfig.Configuration{
		ObjectName:   "java.lang:type=Memory",
		Attribute:    "HeapMemoryUsage",
		CompositeKey: "used",
		MetricName:   metricName,
		Unit:         metricconfig.UnitBytes,
		Frequency:    frequency,
	}
}

func (suite *SchedulerTestSuite) activeMetricNames() []string {
	var metricNames []string

	for _, configuration := range suite.scheduler.Configurations() {
		metricNames = append(metricNames, configuration.MetricName)
	}

	return metricNames
}

// runs real jobs on a real executor
type SchedulerIntegrationTestSuite struct {
	suite.Suite
}

func (suite *SchedulerIntegrationTestSuite) TestRotateRunningJobs() {
	loggerInstance, _ := nucliozap.NewNuclioZapTest("test")
	tracker := &recordingTracker{}
	server := management.NewLocalServer()

	err := server.Register(management.MustParseObjectName("test:type=Counter"), management.Attributes{
		"Value": 1,
	})
	suite.Require().NoError(err)

	factory, err := NewJobFactory(loggerInstance, tracker, WithServer(server))
	suite.Require().NoError(err)

	executor, err := NewCronExecutor(loggerInstance, 1)
	suite.Require().NoError(err)

	scheduler, err := NewScheduler(loggerInstance, factory, executor)
	suite.Require().NoError(err)

	// frequencies are whole seconds, one is the shortest
	suite.Require().NoError(scheduler.Monitor([]metricconfig.Configuration{{
		ObjectName: "test:type=Counter",
		Attribute:  "Value",
		MetricName: "old",
		Unit:       metricconfig.UnitCount,
		Frequency:  1,
	}}))

	suite.Require().Eventually(func() bool {
		return len(tracker.getTracked()) >= 1
	}, 3*time.Second, 20*time.Millisecond)

	suite.Require().NoError(scheduler.Monitor([]metricconfig.Configuration{}))
	suite.Require().Zero(executor.EntryCount())

	trackedBeforeIdle := len(tracker.getTracked())
	time.Sleep(1500 * time.Millisecond)
	suite.Require().Equal(trackedBeforeIdle, len(tracker.getTracked()))

	// external executor is left running
	suite.Require().NoError(scheduler.Shutdown())
	suite.Require().False(executor.IsShutdown())

	executor.Shutdown()
}

func TestSchedulerTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerTestSuite))
}

func TestSchedulerIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping timing tests in short mode")
	}

	suite.Run(t, new(SchedulerIntegrationTestSuite))
}
