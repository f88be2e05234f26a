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
	"testing"

	"github.com/nuclio/metricbridge/pkg/attribute"
	"github.com/nuclio/metricbridge/pkg/management"
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nuclio/errors"
	"github.com/stretchr/testify/suite"
)

type panickingRecord struct{}

func (pr panickingRecord) Keys() []string {
	return []string{"used"}
}

func (pr panickingRecord) Get(key string) (interface{}, bool) {
	panic("record exploded")
}

type MetricJobTestSuite struct {
	suite.Suite
	server       *management.LocalServer
	tracker      *recordingTracker
	errorHandler *recordingErrorHandler
	dimensions   []metricsink.Dimension
}

func (suite *MetricJobTestSuite) SetupTest() {
	suite.server = management.NewLocalServer()
	suite.tracker = &recordingTracker{}
	suite.errorHandler = &recordingErrorHandler{}
	suite.dimensions = []metricsink.Dimension{{Name: "hostname", Value: "test"}}

	err := suite.server.Register(management.MustParseObjectName("java.lang:type=Memory"), management.Attributes{
		"HeapMemoryUsage": attribute.Record{"used": int64(12345), "max": int64(99999), "name": "heap"},
		"ObjectCount":     int32(7),
		"Name":            "heap",
		"Nothing":         nil,
	})
	suite.Require().NoError(err)

	err = suite.server.Register(management.MustParseObjectName("test:type=Broken"), management.AttributeFunc(
		func(attributeName string) (interface{}, error) {
			switch attributeName {
			case "Panics":
				panic("container exploded")
			case "Record":
				return panickingRecord{}, nil
			default:
				return nil, errors.New("connection refused")
			}
		}))
	suite.Require().NoError(err)
}

func (suite *MetricJobTestSuite) TestNumber() {
	job := suite.createJob(metricconfig.Configuration{
		ObjectName: "java.lang:type=Memory",
		Attribute:  "ObjectCount",
		MetricName: "Objects",
		Unit:       metricconfig.UnitCount,
		Frequency:  60,
	})

	job.Run()

	suite.Require().Equal([]trackedMetric{
		{metricName: "Objects", value: 7, unit: metricconfig.UnitCount, dimensions: suite.dimensions},
	}, suite.tracker.getTracked())
	suite.Require().Empty(suite.errorHandler.getHandled())

	statistics := job.GetStatistics()
	suite.Require().Equal(uint64(1), statistics.RunsTotal)
	suite.Require().Equal(uint64(1), statistics.ForwardedTotal)
	suite.Require().Zero(statistics.FailuresTotal())
}

func (suite *MetricJobTestSuite) TestCompositeField() {
	job := suite.createJob(metricconfig.Configuration{
		ObjectName:   "java.lang:type=Memory",
		Attribute:    "HeapMemoryUsage",
		CompositeKey: "used",
		MetricName:   "HeapUsed",
		Unit:         metricconfig.UnitCount,
		Frequency:    60,
	})

	job.Run()
	job.Run()

	tracked := suite.tracker.getTracked()
	suite.Require().Len(tracked, 2)
	suite.Require().Equal("HeapUsed", tracked[0].metricName)
	suite.Require().Equal(12345.0, tracked[0].value)
	suite.Require().Empty(suite.errorHandler.getHandled())
}

func (suite *MetricJobTestSuite) TestFailures() {
	for _, testCase := range []struct {
		name            string
		configuration   metricconfig.Configuration
		expectedKind    ErrorKind
		expectedMessage string
		expectCause     bool
	}{
		{
			name:            "UnknownContainer",
			configuration:   suite.configuration("java.lang:type=Missing", "ObjectCount", ""),
			expectedKind:    ReadFailure,
			expectedMessage: "Failed to read attribute ObjectCount of java.lang:type=Missing for metric M",
			expectCause:     true,
		},
		{
			name:            "UnknownAttribute",
			configuration:   suite.configuration("java.lang:type=Memory", "Missing", ""),
			expectedKind:    ReadFailure,
			expectedMessage: "Failed to read attribute Missing of java.lang:type=Memory for metric M",
			expectCause:     true,
		},
		{
			name:            "ReadError",
			configuration:   suite.configuration("test:type=Broken", "Refused", ""),
			expectedKind:    ReadFailure,
			expectedMessage: "Failed to read attribute Refused of test:type=Broken for metric M",
			expectCause:     true,
		},
		{
			name:            "ReadPanic",
			configuration:   suite.configuration("test:type=Broken", "Panics", ""),
			expectedKind:    ReadFailure,
			expectedMessage: "Failed to read attribute Panics of test:type=Broken for metric M",
			expectCause:     true,
		},
		{
			name:            "RecordPanic",
			configuration:   suite.configuration("test:type=Broken", "Record", "used"),
			expectedKind:    ReadFailure,
			expectedMessage: "Failed to read attribute Record of test:type=Broken for metric M",
			expectCause:     true,
		},
		{
			name:            "NotANumber",
			configuration:   suite.configuration("java.lang:type=Memory", "Name", ""),
			expectedKind:    ShapeMismatch,
			expectedMessage: "Metric M is not a number, got string",
		},
		{
			name:            "Null",
			configuration:   suite.configuration("java.lang:type=Memory", "Nothing", ""),
			expectedKind:    ShapeMismatch,
			expectedMessage: "Metric M is not a number, got null",
		},
		{
			name:            "RecordWithoutCompositeKey",
			configuration:   suite.configuration("java.lang:type=Memory", "HeapMemoryUsage", ""),
			expectedKind:    ShapeMismatch,
			expectedMessage: "Metric M is not a number, got attribute.Record",
		},
		{
			name:            "CompositeKeyOnNumber",
			configuration:   suite.configuration("java.lang:type=Memory", "ObjectCount", "used"),
			expectedKind:    ShapeMismatch,
			expectedMessage: "Metric M is not a composite value, got int32",
		},
		{
			name:            "MissingField",
			configuration:   suite.configuration("java.lang:type=Memory", "HeapMemoryUsage", "committed"),
			expectedKind:    ShapeMismatch,
			expectedMessage: "Metric M has no field committed",
		},
		{
			name:            "FieldNotANumber",
			configuration:   suite.configuration("java.lang:type=Memory", "HeapMemoryUsage", "name"),
			expectedKind:    ShapeMismatch,
			expectedMessage: "Metric M is not a number, got string",
		},
	} {
		suite.Run(testCase.name, func() {
			suite.SetupTest()

			job := suite.createJob(testCase.configuration)
			suite.Require().NotPanics(job.Run)

			suite.Require().Empty(suite.tracker.getTracked())

			handled := suite.errorHandler.getHandled()
			suite.Require().Len(handled, 1)
			suite.Require().Equal(testCase.expectedMessage, handled[0].message)

			errorKind, found := GetErrorKind(handled[0].cause)
			suite.Require().True(found)
			suite.Require().Equal(testCase.expectedKind, errorKind)

			if testCase.expectCause {
				suite.Require().Error(handled[0].cause.(*MetricError).Unwrap())
			} else {
				suite.Require().NoError(handled[0].cause.(*MetricError).Unwrap())
			}

			statistics := job.GetStatistics()
			suite.Require().Equal(uint64(1), statistics.RunsTotal)
			suite.Require().Equal(uint64(1), statistics.FailuresTotal())
			suite.Require().NotZero(statistics.LastFailureUnixNano)
		})
	}
}

func (suite *MetricJobTestSuite) TestForwardFailure() {
	sinkErr := errors.New("sink unavailable")
	suite.tracker.err = sinkErr

	job := suite.createJob(suite.configuration("java.lang:type=Memory", "ObjectCount", ""))
	job.Run()

	handled := suite.errorHandler.getHandled()
	suite.Require().Len(handled, 1)
	suite.Require().Equal("Failed to forward metric M", handled[0].message)
	suite.Require().Equal(sinkErr, handled[0].cause.(*MetricError).Unwrap())

	errorKind, _ := GetErrorKind(handled[0].cause)
	suite.Require().Equal(ForwardFailure, errorKind)
	suite.Require().Equal(uint64(1), job.GetStatistics().ForwardFailuresTotal)
}

func (suite *MetricJobTestSuite) TestForwardPanic() {
	suite.tracker.panics = true

	job := suite.createJob(suite.configuration("java.lang:type=Memory", "ObjectCount", ""))
	suite.Require().NotPanics(job.Run)

	handled := suite.errorHandler.getHandled()
	suite.Require().Len(handled, 1)

	errorKind, _ := GetErrorKind(handled[0].cause)
	suite.Require().Equal(ForwardFailure, errorKind)
}

func (suite *MetricJobTestSuite) TestObserver() {
	var observed []error

	job, err := NewMetricJob(suite.configuration("java.lang:type=Memory", "Name", ""),
		suite.server,
		suite.tracker,
		suite.dimensions,
		suite.errorHandler,
		runObserverFunc(func(configuration metricconfig.Configuration, err error) {
			observed = append(observed, err)
		}))
	suite.Require().NoError(err)

	job.Run()

	suite.Require().Len(observed, 1)
	suite.Require().Error(observed[0])
}

func (suite *MetricJobTestSuite) TestInvalidObjectName() {
	_, err := NewMetricJob(suite.configuration("no-domain", "Name", ""),
		suite.server,
		suite.tracker,
		suite.dimensions,
		suite.errorHandler,
		nil)
	suite.Require().Error(err)
	suite.Require().True(metricconfig.IsConfigurationError(err))
}

func (suite *MetricJobTestSuite) TestUniqueIDs() {
	first := suite.createJob(suite.configuration("java.lang:type=Memory", "Name", ""))
	second := suite.createJob(suite.configuration("java.lang:type=Memory", "Name", ""))

	suite.Require().NotEqual(first.GetID(), second.GetID())
	suite.Require().Equal(first.GetConfiguration(), second.GetConfiguration())
}

func (suite *MetricJobTestSuite) configuration(objectName string,
	attributeName string,
	compositeKey string) metricconfig.Configuration {
	return metricconfig.Configuration{
		ObjectName:   objectName,
		Attribute:    attributeName,
		CompositeKey: compositeKey,
		MetricName:   "M",
		Unit:         metricconfig.UnitCount,
		Frequency:    60,
	}
}

func (suite *MetricJobTestSuite) createJob(configuration metricconfig.Configuration) *MetricJob {
	job, err := NewMetricJob(configuration, suite.server, suite.tracker, suite.dimensions, suite.errorHandler, nil)
	suite.Require().NoError(err)

	return job
}

type runObserverFunc func(configuration metricconfig.Configuration, err error)

func (rof runObserverFunc) ObserveRun(configuration metricconfig.Configuration, err error) {
	rof(configuration, err)
}

func TestMetricJobTestSuite(t *testing.T) {
	suite.Run(t, new(MetricJobTestSuite))
}
