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
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	"github.com/robfig/cron/v3"
)

var ErrExecutorShutdown = errors.New("Executor is shut down")

// Task is run by an executor on every tick
type Task interface {
	Run()
}

// TaskFunc adapts a function to a task
type TaskFunc func()

func (tf TaskFunc) Run() {
	tf()
}

// Handle represents a scheduled task
type Handle interface {

	// Cancel prevents future runs of the task. It does not interrupt a run in progress
	// and may be called more than once
	Cancel()

	IsCancelled() bool
}

// Executor runs tasks periodically
type Executor interface {

	// ScheduleAtFixedRate runs the task after initialDelay, then every period
	ScheduleAtFixedRate(task Task, initialDelay time.Duration, period time.Duration) (Handle, error)

	// Shutdown stops scheduling. Runs in progress are not waited for
	Shutdown()
}

// CronExecutor schedules tasks on a cron instance, limiting the number of concurrent runs
type CronExecutor struct {
	logger   logger.Logger
	cron     *cron.Cron
	lock     sync.Mutex
	shutdown atomic.Bool
	stopped  context.Context
}

// NewCronExecutor creates and starts an executor running at most workers tasks at a time
func NewCronExecutor(parentLogger logger.Logger, workers int) (*CronExecutor, error) {
	if workers < 1 {
		return nil, errors.Errorf("Executor requires at least one worker, got %d", workers)
	}

	executorLogger := parentLogger.GetChild("executor")
	adaptedLogger := &cronLogger{logger: executorLogger}

	newExecutor := &CronExecutor{
		logger: executorLogger,
		cron: cron.New(
			cron.WithLogger(adaptedLogger),

			// recovery must sit inside the skip wrapper, which only releases a task after a normal return
			cron.WithChain(
				cron.SkipIfStillRunning(adaptedLogger),
				cron.Recover(adaptedLogger),
				laneLimiter(make(chan struct{}, workers)),
			)),
	}

	newExecutor.cron.Start()

	executorLogger.DebugWith("Executor started", "workers", workers)

	return newExecutor, nil
}

func (ce *CronExecutor) ScheduleAtFixedRate(task Task, initialDelay time.Duration, period time.Duration) (Handle, error) {
	if task == nil {
		return nil, errors.New("Task is required")
	}

	if period <= 0 {
		return nil, errors.Errorf("Period must be positive, got %s", period)
	}

	if initialDelay < 0 {
		return nil, errors.Errorf("Initial delay must not be negative, got %s", initialDelay)
	}

	ce.lock.Lock()
	defer ce.lock.Unlock()

	if ce.shutdown.Load() {
		return nil, ErrExecutorShutdown
	}

	handle := &cronHandle{
		executor: ce,
	}

	handle.entryID = ce.cron.Schedule(newFixedRateSchedule(initialDelay, period), cron.FuncJob(func() {
		if handle.IsCancelled() || ce.shutdown.Load() {
			return
		}

		task.Run()
	}))

	return handle, nil
}

func (ce *CronExecutor) Shutdown() {
	ce.stop()
}

// ShutdownAndWait shuts down the executor and waits for runs in progress to complete
func (ce *CronExecutor) ShutdownAndWait(ctx context.Context) error {
	stopped := ce.stop()

	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "Timed out waiting for runs to complete")
	}
}

func (ce *CronExecutor) IsShutdown() bool {
	return ce.shutdown.Load()
}

// EntryCount returns the number of scheduled, uncancelled tasks
func (ce *CronExecutor) EntryCount() int {
	return len(ce.cron.Entries())
}

func (ce *CronExecutor) stop() context.Context {
	ce.lock.Lock()
	defer ce.lock.Unlock()

	if ce.shutdown.Load() {
		return ce.stopped
	}

	ce.shutdown.Store(true)
	ce.stopped = ce.cron.Stop()

	ce.logger.DebugWith("Executor shut down")

	return ce.stopped
}

type cronHandle struct {
	executor  *CronExecutor
	entryID   cron.EntryID
	cancelled atomic.Bool
}

func (ch *cronHandle) Cancel() {
	if !ch.cancelled.CompareAndSwap(false, true) {
		return
	}

	ch.executor.cron.Remove(ch.entryID)
}

func (ch *cronHandle) IsCancelled() bool {
	return ch.cancelled.Load()
}

// fixedRateSchedule fires after an initial delay, then on every period boundary measured from the
// first fire. Boundaries missed while the lane was busy are skipped
type fixedRateSchedule struct {
	lock         sync.Mutex
	initialDelay time.Duration
	period       time.Duration
	next         time.Time
}

func newFixedRateSchedule(initialDelay time.Duration, period time.Duration) *fixedRateSchedule {
	return &fixedRateSchedule{
		initialDelay: initialDelay,
		period:       period,
	}
}

func (frs *fixedRateSchedule) Next(now time.Time) time.Time {
	frs.lock.Lock()
	defer frs.lock.Unlock()

	if frs.next.IsZero() {
		frs.next = now.Add(frs.initialDelay)
		return frs.next
	}

	for !frs.next.After(now) {
		frs.next = frs.next.Add(frs.period)
	}

	return frs.next
}

func laneLimiter(lanes chan struct{}) cron.JobWrapper {
	return func(job cron.Job) cron.Job {
		return cron.FuncJob(func() {
			lanes <- struct{}{}
			defer func() { <-lanes }()

			job.Run()
		})
	}
}

// cronLogger adapts a nuclio logger to the cron logger interface
type cronLogger struct {
	logger logger.Logger
}

func (cl *cronLogger) Info(message string, keysAndValues ...interface{}) {
	cl.logger.DebugWith(message, keysAndValues...)
}

func (cl *cronLogger) Error(err error, message string, keysAndValues ...interface{}) {
	cl.logger.ErrorWith(message, append(keysAndValues, "err", err.Error())...)
}
