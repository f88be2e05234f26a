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
	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/renderer"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
)

type validateCommandeer struct {
	cmd            *cobra.Command
	rootCommandeer *RootCommandeer
	output         string
}

func newValidateCommandeer(rootCommandeer *RootCommandeer) *validateCommandeer {
	commandeer := &validateCommandeer{
		rootCommandeer: rootCommandeer,
	}

	cmd := &cobra.Command{
		Use:   "validate [metrics.json]",
		Short: "Parse a metric configuration file and print it, or the embedded defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var configurations []metricconfig.Configuration
			var err error

			if len(args) == 0 {
				configurations = metricconfig.Defaults()
			} else {
				configurations, err = metricconfig.LoadFile(args[0])
				if err != nil {
					return errors.Wrap(err, "Invalid metric configuration")
				}
			}

			return renderer.NewRenderer(rootCommandeer.output).RenderConfigurations(configurations, commandeer.output)
		},
	}

	cmd.Flags().StringVarP(&commandeer.output, "output", "o", renderer.OutputFormatTable, "Output format - \"table\", \"json\" or \"yaml\"")

	commandeer.cmd = cmd

	return commandeer
}
