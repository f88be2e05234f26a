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

package prometheus

import (
	"strings"
	"testing"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	prometheusclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type GaugeSetTestSuite struct {
	suite.Suite
	registry *prometheusclient.Registry
	gauges   *GaugeSet
}

func (suite *GaugeSetTestSuite) SetupTest() {
	suite.registry = prometheusclient.NewRegistry()
	suite.gauges = NewGaugeSet(suite.registry, "bridge")
}

func (suite *GaugeSetTestSuite) TestSet() {
	dimensions := []metricsink.Dimension{{Name: "host-name", Value: "a"}}

	suite.Require().NoError(suite.gauges.Set("Heap.Used", 10, metricconfig.UnitBytes, dimensions))
	suite.Require().NoError(suite.gauges.Set("Heap.Used", 20, metricconfig.UnitBytes, dimensions))

	expected := `
# HELP bridge_Heap_Used Bridged metric Heap_Used
# TYPE bridge_Heap_Used gauge
bridge_Heap_Used{host_name="a",unit="Bytes"} 20
`
	suite.Require().NoError(testutil.GatherAndCompare(suite.registry, strings.NewReader(expected), "bridge_Heap_Used"))
}

func (suite *GaugeSetTestSuite) TestLabelSetIsFixed() {
	suite.Require().NoError(suite.gauges.Set("Metric", 1, metricconfig.UnitCount, []metricsink.Dimension{
		{Name: "a", Value: "1"},
	}))

	suite.Require().Error(suite.gauges.Set("Metric", 1, metricconfig.UnitCount, []metricsink.Dimension{
		{Name: "b", Value: "1"},
	}))

	// a different unit is a different series of the same gauge
	suite.Require().NoError(suite.gauges.Set("Metric", 1, metricconfig.UnitPercent, []metricsink.Dimension{
		{Name: "a", Value: "1"},
	}))

	count, err := testutil.GatherAndCount(suite.registry, "bridge_Metric")
	suite.Require().NoError(err)
	suite.Require().Equal(2, count)
}

func (suite *GaugeSetTestSuite) TestReservedDimension() {
	suite.Require().Error(suite.gauges.Set("Metric", 1, metricconfig.UnitCount, []metricsink.Dimension{
		{Name: "unit", Value: "1"},
	}))
}

func (suite *GaugeSetTestSuite) TestSharedRegistry() {
	otherGauges := NewGaugeSet(suite.registry, "bridge")

	suite.Require().NoError(suite.gauges.Set("Metric", 1, metricconfig.UnitCount, nil))
	suite.Require().NoError(otherGauges.Set("Metric", 2, metricconfig.UnitCount, nil))

	count, err := testutil.GatherAndCount(suite.registry, "bridge_Metric")
	suite.Require().NoError(err)
	suite.Require().Equal(1, count)
}

func (suite *GaugeSetTestSuite) TestSanitizeName() {
	for _, testCase := range []struct {
		name     string
		expected string
	}{
		{name: "HeapUsed", expected: "HeapUsed"},
		{name: "heap.used-bytes", expected: "heap_used_bytes"},
		{name: "9lives", expected: "_9lives"},
		{name: "a b/c", expected: "a_b_c"},
		{name: "", expected: ""},
	} {
		suite.Require().Equal(testCase.expected, SanitizeName(testCase.name))
	}
}

func TestGaugeSetTestSuite(t *testing.T) {
	suite.Run(t, new(GaugeSetTestSuite))
}
