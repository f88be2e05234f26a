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

package host

import (
	"testing"

	"github.com/nuclio/metricbridge/pkg/attribute"
	"github.com/nuclio/metricbridge/pkg/management"

	"github.com/nuclio/errors"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
	"github.com/stretchr/testify/suite"
)

type ContainersTestSuite struct {
	suite.Suite
	server *management.LocalServer
}

func (suite *ContainersTestSuite) SetupTest() {
	suite.server = management.NewLocalServer()
	suite.Require().NoError(Register(suite.server))
}

func (suite *ContainersTestSuite) TearDownTest() {
	virtualMemory = mem.VirtualMemory
	loadAverage = load.Avg
}

func (suite *ContainersTestSuite) TestPhysicalMemory() {
	virtualMemory = func() (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{
			Total:       1000,
			Available:   400,
			Used:        600,
			UsedPercent: 60,
		}, nil
	}

	value, err := suite.server.GetAttribute(management.MustParseObjectName(OperatingSystemObjectName), "PhysicalMemory")
	suite.Require().NoError(err)
	suite.Require().Equal(attribute.KindRecord, value.Kind())

	usedPercent, found := value.Field("usedPercent")
	suite.Require().True(found)

	number, _ := usedPercent.Number()
	suite.Require().Equal(60.0, number)
}

func (suite *ContainersTestSuite) TestLoadAverageFailure() {
	loadAverage = func() (*load.AvgStat, error) {
		return nil, errors.New("unsupported")
	}

	_, err := suite.server.GetAttribute(management.MustParseObjectName(OperatingSystemObjectName), "SystemLoadAverage")
	suite.Require().Error(err)

	loadAverage = func() (*load.AvgStat, error) {
		return &load.AvgStat{Load1: 1.5}, nil
	}

	value, err := suite.server.GetAttribute(management.MustParseObjectName(OperatingSystemObjectName), "SystemLoadAverage")
	suite.Require().NoError(err)

	number, _ := value.Number()
	suite.Require().Equal(1.5, number)
}

func (suite *ContainersTestSuite) TestProcessResidentSetSize() {
	value, err := suite.server.GetAttribute(management.MustParseObjectName(ProcessObjectName), "ResidentSetSize")
	if err != nil {
		suite.T().Skipf("Process statistics unavailable: %s", errors.GetErrorStackString(err, 10))
	}

	number, isNumber := value.Number()
	suite.Require().True(isNumber)
	suite.Require().Greater(number, 0.0)
}

func TestContainersTestSuite(t *testing.T) {
	suite.Run(t, new(ContainersTestSuite))
}
