/*
 Licensed to the Apache Software Foundation (ASF) under one
 or more contributor license agreements.  See the NOTICE file
 distributed with this work for additional information
 regarding copyright ownership.  The ASF licenses this file
 to you under the Apache License, Version 2.0 (the
 "License"); you may not use this file except in compliance
 with the License.  You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Rule load sources
const (
	SourceStack   = "stack"
	SourceDefault = "default"
	SourceCache   = "cache"
)

// RuleMetrics to declare dependency rule metrics
type RuleMetrics struct {
	loads      *prometheus.CounterVec
	failures   prometheus.Counter
	ruleCycles prometheus.Counter
	dependency prometheus.Gauge
}

// InitRuleMetrics to initialize dependency rule metrics
func InitRuleMetrics() *RuleMetrics {
	r := &RuleMetrics{}
	r.loads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RulesSubsystem,
			Name:      "load_total",
			Help:      "Total number of dependency rule loads. Source of the rules includes `stack`, `default` and `cache`.",
		}, []string{"source"})
	r.failures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RulesSubsystem,
			Name:      "load_failure_total",
			Help:      "Total number of dependency rule loads that failed on a malformed artifact or unknown stack.",
		})
	r.ruleCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: RulesSubsystem,
			Name:      "cycle_total",
			Help:      "Total number of dependency cycles found in initialized rule sets.",
		})
	r.dependency = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: RulesSubsystem,
			Name:      "dependency",
			Help:      "Number of blocked role commands in the last initialized role command order.",
		})
	register(r.loads, r.failures, r.ruleCycles, r.dependency)
	return r
}

func (m *RuleMetrics) Reset() {
	m.loads.Reset()
}

func (m *RuleMetrics) IncRuleLoad(source string) {
	m.loads.With(prometheus.Labels{"source": source}).Inc()
}

func (m *RuleMetrics) GetRuleLoads(source string) (int, error) {
	metricDto := &dto.Metric{}
	err := m.loads.With(prometheus.Labels{"source": source}).Write(metricDto)
	if err == nil {
		return int(*metricDto.Counter.Value), nil
	}
	return -1, err
}

func (m *RuleMetrics) IncRuleLoadFailure() {
	m.failures.Inc()
}

func (m *RuleMetrics) AddRuleCycles(value int) {
	m.ruleCycles.Add(float64(value))
}

func (m *RuleMetrics) SetDependencies(value int) {
	m.dependency.Set(float64(value))
}

func (m *RuleMetrics) getDependencies() (int, error) {
	metricDto := &dto.Metric{}
	err := m.dependency.Write(metricDto)
	if err == nil {
		return int(*metricDto.Gauge.Value), nil
	}
	return -1, err
}
