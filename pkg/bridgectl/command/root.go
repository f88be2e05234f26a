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

package command

import (
	"io"
	"os"

	"github.com/nuclio/errors"
	"github.com/nuclio/logger"
	nucliozap "github.com/nuclio/zap"
	"github.com/spf13/cobra"
)

type RootCommandeer struct {
	loggerInstance logger.Logger
	cmd            *cobra.Command
	verbose        bool
	output         io.Writer
}

func NewRootCommandeer() *RootCommandeer {
	commandeer := &RootCommandeer{
		output: os.Stdout,
	}

	cmd := &cobra.Command{
		Use:           "metricbridge [command]",
		Short:         "Polls management attributes and forwards them as metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&commandeer.verbose, "verbose", "v", false, "Verbose output")

	cmd.AddCommand(
		newRunCommandeer(commandeer).cmd,
		newValidateCommandeer(commandeer).cmd,
		newVersionCommandeer(commandeer).cmd,
	)

	commandeer.cmd = cmd

	return commandeer
}

// Execute uses os.Args to execute the command
func (rc *RootCommandeer) Execute() error {
	return rc.cmd.Execute()
}

// GetCmd returns the underlying cobra command
func (rc *RootCommandeer) GetCmd() *cobra.Command {
	return rc.cmd
}

// SetOutput redirects command output, used primarily for tests
func (rc *RootCommandeer) SetOutput(output io.Writer) {
	rc.output = output
	rc.cmd.SetOut(output)
	rc.cmd.SetErr(output)
}

func (rc *RootCommandeer) initialize(levelName string) error {
	var err error

	rc.loggerInstance, err = rc.createLogger(levelName)
	if err != nil {
		return errors.Wrap(err, "Failed to create logger")
	}

	return nil
}

func (rc *RootCommandeer) createLogger(levelName string) (logger.Logger, error) {
	loggerLevel := nucliozap.GetLevelByName(levelName)

	if rc.verbose {
		loggerLevel = nucliozap.DebugLevel
	}

	loggerInstance, err := nucliozap.NewNuclioZapCmd("metricbridge", loggerLevel, rc.output)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to create logger")
	}

	return loggerInstance, nil
}
