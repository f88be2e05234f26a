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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nuclio/metricbridge/pkg/app"
	"github.com/nuclio/metricbridge/pkg/bridgeconfig"
	"github.com/nuclio/metricbridge/pkg/version"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
)

type runCommandeer struct {
	cmd               *cobra.Command
	rootCommandeer    *RootCommandeer
	configurationPath string
	metricsPath       string
}

func newRunCommandeer(rootCommandeer *RootCommandeer) *runCommandeer {
	commandeer := &runCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bridge until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			configurationReader, err := bridgeconfig.NewReader()
			if err != nil {
				return errors.Wrap(err, "Failed to create configuration reader")
			}

			configuration, err := configurationReader.ReadFileOrDefault(commandeer.configurationPath)
			if err != nil {
				return errors.Wrap(err, "Failed to read configuration")
			}

			if err := rootCommandeer.initialize(configuration.Logger.Level); err != nil {
				return errors.Wrap(err, "Failed to initialize root")
			}

			version.Log(rootCommandeer.loggerInstance)

			bridgeInstance, err := app.NewBridge(rootCommandeer.loggerInstance,
				configuration,
				app.WithMetricsPath(commandeer.metricsPath))
			if err != nil {
				return errors.Wrap(err, "Failed to create bridge")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return bridgeInstance.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&commandeer.configurationPath, "config", "c", "", "Path of the bridge configuration file")
	cmd.Flags().StringVarP(&commandeer.metricsPath, "metrics", "m", "", "Path of a metric configuration file, overrides the one in the bridge configuration")

	commandeer.cmd = cmd

	return commandeer
}
