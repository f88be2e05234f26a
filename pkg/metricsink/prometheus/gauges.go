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

// Package prometheus holds the gauges shared by the prometheus push and pull sinks
package prometheus

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/nuclio/metricbridge/pkg/metricconfig"
	"github.com/nuclio/metricbridge/pkg/metricsink"

	"github.com/nuclio/errors"
	prometheusclient "github.com/prometheus/client_golang/prometheus"
)

const unitLabelName = "unit"

var invalidNameCharacters = regexp.MustCompile(`[^a-zA-Z0-9_]`)

type gauge struct {
	vec        *prometheusclient.GaugeVec
	labelNames []string
}

// GaugeSet keeps one gauge vector per metric name, labeled by dimension names and unit
type GaugeSet struct {
	registerer prometheusclient.Registerer
	namespace  string
	lock       sync.Mutex
	gauges     map[string]*gauge
}

func NewGaugeSet(registerer prometheusclient.Registerer, namespace string) *GaugeSet {
	return &GaugeSet{
		registerer: registerer,
		namespace:  SanitizeName(namespace),
		gauges:     map[string]*gauge{},
	}
}

// Set sets the gauge of a metric. The label set of a metric is fixed by its first reading
func (gs *GaugeSet) Set(metricName string,
	value float64,
	unit metricconfig.Unit,
	dimensions []metricsink.Dimension) error {
	labels := prometheusclient.Labels{
		unitLabelName: unit.String(),
	}

	for _, dimension := range dimensions {
		labelName := SanitizeName(dimension.Name)
		if labelName == unitLabelName {
			return errors.Errorf("Dimension name %s is reserved", dimension.Name)
		}

		labels[labelName] = dimension.Value
	}

	metricGauge, err := gs.getOrCreateGauge(SanitizeName(metricName), labels)
	if err != nil {
		return errors.Wrapf(err, "Failed to get gauge for %s", metricName)
	}

	labeledGauge, err := metricGauge.vec.GetMetricWith(labels)
	if err != nil {
		return errors.Wrapf(err, "Failed to get gauge for %s with labels %v", metricName, labels)
	}

	labeledGauge.Set(value)

	return nil
}

func (gs *GaugeSet) getOrCreateGauge(name string, labels prometheusclient.Labels) (*gauge, error) {
	labelNames := make([]string, 0, len(labels))
	for labelName := range labels {
		labelNames = append(labelNames, labelName)
	}

	sort.Strings(labelNames)

	gs.lock.Lock()
	defer gs.lock.Unlock()

	if existingGauge, found := gs.gauges[name]; found {
		if strings.Join(existingGauge.labelNames, ",") != strings.Join(labelNames, ",") {
			return nil, errors.Errorf("Gauge %s has labels %v, got %v",
				name,
				existingGauge.labelNames,
				labelNames)
		}

		return existingGauge, nil
	}

	gaugeVec := prometheusclient.NewGaugeVec(prometheusclient.GaugeOpts{
		Namespace: gs.namespace,
		Name:      name,
		Help:      fmt.Sprintf("Bridged metric %s", name),
	}, labelNames)

	if err := gs.registerer.Register(gaugeVec); err != nil {
		alreadyRegisteredError, isAlreadyRegistered := err.(prometheusclient.AlreadyRegisteredError)
		if !isAlreadyRegistered {
			return nil, errors.Wrap(err, "Failed to register gauge")
		}

		existingGaugeVec, isGaugeVec := alreadyRegisteredError.ExistingCollector.(*prometheusclient.GaugeVec)
		if !isGaugeVec {
			return nil, errors.Errorf("Collector %s is registered and is not a gauge", name)
		}

		gaugeVec = existingGaugeVec
	}

	newGauge := &gauge{
		vec:        gaugeVec,
		labelNames: labelNames,
	}

	gs.gauges[name] = newGauge

	return newGauge, nil
}

// SanitizeName replaces characters that may not appear in prometheus metric and label names
func SanitizeName(name string) string {
	if name == "" {
		return ""
	}

	sanitized := invalidNameCharacters.ReplaceAllString(name, "_")
	if sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "_" + sanitized
	}

	return sanitized
}
