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

package stdout

import (
	"testing"

	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nuclio/logger"
	nucliozap "github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type MetricSinkTestSuite struct {
	suite.Suite
	logger logger.Logger
}

func (suite *MetricSinkTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
}

func (suite *MetricSinkTestSuite) TestCreateFromRegistry() {
	metricSink, err := metricsink.RegistrySingleton.NewMetricSink(suite.logger, Kind, "console", &bridgeconfig.MetricSink{
		Kind: Kind,
		Attributes: map[string]interface{}{
			"level": "debug",
		},
	})
	suite.Require().NoError(err)
	suite.Require().Equal(Kind, metricSink.GetKind())
	suite.Require().Equal("console", metricSink.GetName())

	suite.Require().NoError(metricSink.Start())
	suite.Require().NoError(metricSink.Track("HeapUsed", 1024, metricconfig.UnitBytes, []metricsink.Dimension{
		{Name: "hostname", Value: "test"},
	}))

	<-metricSink.Stop()
}

func (suite *MetricSinkTestSuite) TestInvalidLevel() {
	_, err := NewConfiguration("console", &bridgeconfig.MetricSink{
		Attributes: map[string]interface{}{
			"level": "error",
		},
	})
	suite.Require().Error(err)

	configuration, err := NewConfiguration("console", &bridgeconfig.MetricSink{})
	suite.Require().NoError(err)
	suite.Require().Equal("info", configuration.Level)
}

func TestMetricSinkTestSuite(t *testing.T) {
	suite.Run(t, new(MetricSinkTestSuite))
}
