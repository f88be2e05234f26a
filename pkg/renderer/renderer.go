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

package renderer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/nuclio/metricbridge/pkg/metricconfig"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nuclio/errors"
	"sigs.k8s.io/yaml"
)

const (
	OutputFormatTable = "table"
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
)

var configurationHeader = table.Row{"Metric", "Object name", "Attribute", "Key", "Unit", "Frequency", "Comment"}

type Renderer struct {
	output io.Writer
}

func NewRenderer(output io.Writer) *Renderer {
	return &Renderer{
		output: output,
	}
}

// RenderConfigurations writes metric configurations in one of the output formats
func (r *Renderer) RenderConfigurations(configurations []metricconfig.Configuration, format string) error {
	switch format {
	case OutputFormatTable, "":
		r.renderConfigurationTable(configurations)
		return nil
	case OutputFormatJSON:
		return r.RenderJSON(configurations)
	case OutputFormatYAML:
		return r.RenderYAML(configurations)
	default:
		return errors.Errorf("Unknown output format %s", format)
	}
}

func (r *Renderer) RenderYAML(items interface{}) error {
	body, err := yaml.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "Failed to render YAML")
	}

	fmt.Fprint(r.output, string(body)) // nolint: errcheck

	return nil
}

func (r *Renderer) RenderJSON(items interface{}) error {
	body, err := json.MarshalIndent(items, "", "\t")
	if err != nil {
		return errors.Wrap(err, "Failed to render JSON")
	}

	fmt.Fprintln(r.output, string(body)) // nolint: errcheck

	return nil
}

func (r *Renderer) renderConfigurationTable(configurations []metricconfig.Configuration) {
	tableWriter := table.NewWriter()
	tableWriter.SetOutputMirror(r.output)
	tableWriter.SetStyle(table.Style{
		Name: "Bridge",
		Box: table.BoxStyle{
			MiddleVertical: "|",
			PaddingLeft:    " ",
			PaddingRight:   " ",
		},
		Options: table.Options{
			DoNotColorBordersAndSeparators: true,
			SeparateColumns:                true,
		},
		Color:  table.ColorOptionsDefault,
		Format: table.FormatOptionsDefault,
		HTML:   table.DefaultHTMLOptions,
		Title:  table.TitleOptionsDefault,
	})

	tableWriter.AppendHeader(configurationHeader)

	for _, configuration := range configurations {
		tableWriter.AppendRow(table.Row{
			configuration.MetricName,
			configuration.ObjectName,
			configuration.Attribute,
			configuration.CompositeKey,
			configuration.Unit.String(),
			fmt.Sprintf("%ds", configuration.Frequency),
			configuration.Comment,
		})
	}

	tableWriter.Render()
}
