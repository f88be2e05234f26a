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

package multi

import (
	"testing"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	nucliozap "github.com/nuclio/zap"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type mockMetricSink struct {
	mock.Mock
	*metricsink.AbstractMetricSink
}

func newMockMetricSink(loggerInstance logger.Logger, name string) *mockMetricSink {
	abstractMetricSink, _ := metricsink.NewAbstractMetricSink(loggerInstance, "mock", name)

	return &mockMetricSink{
		AbstractMetricSink: abstractMetricSink,
	}
}

func (mms *mockMetricSink) Track(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	args := mms.Called(metricName, value, unit, dimensions)
	return args.Error(0)
}

func (mms *mockMetricSink) Start() error {
	args := mms.Called()
	return args.Error(0)
}

func (mms *mockMetricSink) Stop() chan struct{} {
	mms.Called()

	stoppedChannel := mms.AbstractMetricSink.Stop()
	mms.MarkStopped()

	return stoppedChannel
}

type mockErrorTrackingMetricSink struct {
	*mockMetricSink
}

func (mets *mockErrorTrackingMetricSink) TrackError(message string, cause error) {
	mets.Called(message, cause)
}

type MetricSinkTestSuite struct {
	suite.Suite
	logger logger.Logger
	first  *mockMetricSink
	second *mockMetricSink
	multi  *MetricSink
}

func (suite *MetricSinkTestSuite) SetupTest() {
	var err error

	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
	suite.first = newMockMetricSink(suite.logger, "first")
	suite.second = newMockMetricSink(suite.logger, "second")

	suite.multi, err = NewMetricSink(suite.logger, "all", []metricsink.MetricSink{suite.first, suite.second})
	suite.Require().NoError(err)
}

func (suite *MetricSinkTestSuite) TestTrackFansOut() {
	dimensions := []metricsink.Dimension{{Name: "hostname", Value: "a"}}

	suite.first.On("Track", "HeapUsed", 5.0, metricconfig.UnitBytes, dimensions).Return(nil).Once()
	suite.second.On("Track", "HeapUsed", 5.0, metricconfig.UnitBytes, dimensions).Return(nil).Once()

	suite.Require().NoError(suite.multi.Track("HeapUsed", 5, metricconfig.UnitBytes, dimensions))

	suite.first.AssertExpectations(suite.T())
	suite.second.AssertExpectations(suite.T())
}

func (suite *MetricSinkTestSuite) TestTrackContinuesAfterFailure() {
	suite.first.On("Track", "HeapUsed", 5.0, metricconfig.UnitBytes, mock.Anything).
		Return(errors.New("unreachable")).
		Once()
	suite.second.On("Track", "HeapUsed", 5.0, metricconfig.UnitBytes, mock.Anything).Return(nil).Once()

	err := suite.multi.Track("HeapUsed", 5, metricconfig.UnitBytes, nil)
	suite.Require().Error(err)
	suite.Require().Contains(err.Error(), "first")

	suite.second.AssertExpectations(suite.T())
}

func (suite *MetricSinkTestSuite) TestStartFailureStopsStarted() {
	suite.first.On("Start").Return(nil).Once()
	suite.first.On("Stop").Once()
	suite.second.On("Start").Return(errors.New("cannot listen")).Once()

	suite.Require().Error(suite.multi.Start())

	suite.first.AssertExpectations(suite.T())
	suite.second.AssertExpectations(suite.T())
}

func (suite *MetricSinkTestSuite) TestStopWaitsForAll() {
	suite.first.On("Stop").Once()
	suite.second.On("Stop").Once()

	<-suite.multi.Stop()

	suite.first.AssertExpectations(suite.T())
	suite.second.AssertExpectations(suite.T())
}

func (suite *MetricSinkTestSuite) TestTrackError() {
	errorTracking := &mockErrorTrackingMetricSink{mockMetricSink: newMockMetricSink(suite.logger, "tracking")}
	cause := errors.New("cause")

	errorTracking.On("TrackError", "Failed", cause).Once()

	multi, err := NewMetricSink(suite.logger, "all", []metricsink.MetricSink{suite.first, errorTracking})
	suite.Require().NoError(err)

	multi.TrackError("Failed", cause)

	errorTracking.AssertExpectations(suite.T())
}

func (suite *MetricSinkTestSuite) TestRequiresSinks() {
	_, err := NewMetricSink(suite.logger, "none", nil)
	suite.Require().Error(err)
}

func TestMetricSinkTestSuite(t *testing.T) {
	suite.Run(t, new(MetricSinkTestSuite))
}
