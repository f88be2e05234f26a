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
	"sync/atomic"
	"time"
)

// Statistics counts the runs of a job. Fields are updated atomically by the job
type Statistics struct {
	RunsTotal            uint64 `json:"runsTotal"`
	ForwardedTotal       uint64 `json:"forwardedTotal"`
	ReadFailuresTotal    uint64 `json:"readFailuresTotal"`
	ShapeMismatchesTotal uint64 `json:"shapeMismatchesTotal"`
	ForwardFailuresTotal uint64 `json:"forwardFailuresTotal"`
	LastRunUnixNano      int64  `json:"lastRunUnixNano,omitempty"`
	LastFailureUnixNano  int64  `json:"lastFailureUnixNano,omitempty"`
}

// Snapshot returns a consistent-per-field copy, safe to read while the job runs
func (s *Statistics) Snapshot() Statistics {
	return Statistics{
		RunsTotal:            atomic.LoadUint64(&s.RunsTotal),
		ForwardedTotal:       atomic.LoadUint64(&s.ForwardedTotal),
		ReadFailuresTotal:    atomic.LoadUint64(&s.ReadFailuresTotal),
		ShapeMismatchesTotal: atomic.LoadUint64(&s.ShapeMismatchesTotal),
		ForwardFailuresTotal: atomic.LoadUint64(&s.ForwardFailuresTotal),
		LastRunUnixNano:      atomic.LoadInt64(&s.LastRunUnixNano),
		LastFailureUnixNano:  atomic.LoadInt64(&s.LastFailureUnixNano),
	}
}

// FailuresTotal sums the failures of all kinds
func (s *Statistics) FailuresTotal() uint64 {
	return s.ReadFailuresTotal + s.ShapeMismatchesTotal + s.ForwardFailuresTotal
}

func (s *Statistics) recordRun(now time.Time) {
	atomic.AddUint64(&s.RunsTotal, 1)
	atomic.StoreInt64(&s.LastRunUnixNano, now.UnixNano())
}

func (s *Statistics) recordForwarded() {
	atomic.AddUint64(&s.ForwardedTotal, 1)
}

func (s *Statistics) recordFailure(kind ErrorKind, now time.Time) {
	switch kind {
	case ReadFailure:
		atomic.AddUint64(&s.ReadFailuresTotal, 1)
	case ShapeMismatch:
		atomic.AddUint64(&s.ShapeMismatchesTotal, 1)
	case ForwardFailure:
		atomic.AddUint64(&s.ForwardFailuresTotal, 1)
	}

	atomic.StoreInt64(&s.LastFailureUnixNano, now.UnixNano())
}
