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

package errgroup

import (
	"context"
	"testing"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	nucliozap "github.com/nuclio/zap"
	"github.com/stretchr/testify/suite"
)

type ErrGroupTestSuite struct {
	suite.Suite
	logger logger.Logger
}

func (suite *ErrGroupTestSuite) SetupTest() {
	suite.logger, _ = nucliozap.NewNuclioZapTest("test")
}

func (suite *ErrGroupTestSuite) TestErrorCancelsContext() {
	errGroup, errGroupCtx := WithContext(context.Background(), suite.logger)
	rootErr := errors.New("listen failed")

	errGroup.Go("serve", func() error {
		return rootErr
	})

	errGroup.Go("wait", func() error {
		<-errGroupCtx.Done()
		return nil
	})

	err := errGroup.Wait()
	suite.Require().Error(err)
	suite.Require().Equal(rootErr, errors.RootCause(err))
}

func (suite *ErrGroupTestSuite) TestPanicBecomesError() {
	errGroup, _ := WithContext(context.Background(), suite.logger)

	errGroup.Go("explode", func() error {
		panic("boom")
	})

	err := errGroup.Wait()
	suite.Require().Error(err)
	suite.Require().Contains(err.Error(), "explode")
}

func (suite *ErrGroupTestSuite) TestSuccess() {
	errGroup, _ := WithContext(context.Background(), suite.logger)

	for goroutineIndex := 0; goroutineIndex < 10; goroutineIndex++ {
		errGroup.Go("noop", func() error {
			return nil
		})
	}

	suite.Require().NoError(errGroup.Wait())
}

func TestErrGroupTestSuite(t *testing.T) {
	suite.Run(t, new(ErrGroupTestSuite))
}
