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
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// PlannerMetrics to declare stage planner metrics
type PlannerMetrics struct {
	buildLatency  prometheus.Histogram
	stages        prometheus.Histogram
	cycleFailures prometheus.Counter
}

// InitPlannerMetrics to initialize stage planner metrics
func InitPlannerMetrics() *PlannerMetrics {
	p := &PlannerMetrics{}
	p.buildLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: PlannerSubsystem,
			Name:      "build_latency_milliseconds",
			Help:      "Latency of building a stage plan from a batch of commands, in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 10, 6), // start from 0.1ms
		})
	p.stages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: PlannerSubsystem,
			Name:      "stages",
			Help:      "Number of stages in a built plan.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		})
	p.cycleFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: PlannerSubsystem,
			Name:      "cycle_failure_total",
			Help:      "Total number of plans rejected because the batch contained a dependency cycle.",
		})
	register(p.buildLatency, p.stages, p.cycleFailures)
	return p
}

func (m *PlannerMetrics) ObserveBuildLatency(start time.Time) {
	m.buildLatency.Observe(SinceInSeconds(start))
}

func (m *PlannerMetrics) ObserveStages(value int) {
	m.stages.Observe(float64(value))
}

func (m *PlannerMetrics) IncCycleFailure() {
	m.cycleFailures.Inc()
}

func (m *PlannerMetrics) GetCycleFailures() (int, error) {
	metricDto := &dto.Metric{}
	err := m.cycleFailures.Write(metricDto)
	if err == nil {
		return int(*metricDto.Counter.Value), nil
	}
	return -1, err
}
