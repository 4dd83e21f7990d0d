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

// OrchestratorMetrics to declare stage runner metrics
type OrchestratorMetrics struct {
	tasks        *prometheus.CounterVec
	requests     *prometheus.CounterVec
	stageLatency prometheus.Histogram
	running      prometheus.Gauge
}

// InitOrchestratorMetrics to initialize stage runner metrics
func InitOrchestratorMetrics() *OrchestratorMetrics {
	o := &OrchestratorMetrics{}
	o.tasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: OrchestratorSubsystem,
			Name:      "task_total",
			Help:      "Total number of finished tasks. Status of the task includes `completed`, `failed`, `timedout` and `aborted`.",
		}, []string{"status"})
	o.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: OrchestratorSubsystem,
			Name:      "request_total",
			Help:      "Total number of finished requests. State of the request includes `completed`, `failed` and `aborted`.",
		}, []string{"state"})
	o.stageLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: OrchestratorSubsystem,
			Name:      "stage_latency_milliseconds",
			Help:      "Latency of running one stage to completion, in milliseconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 10, 7),
		})
	o.running = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: OrchestratorSubsystem,
			Name:      "running_request",
			Help:      "Number of requests currently in progress.",
		})
	register(o.tasks, o.requests, o.stageLatency, o.running)
	return o
}

func (m *OrchestratorMetrics) Reset() {
	m.tasks.Reset()
	m.requests.Reset()
}

func (m *OrchestratorMetrics) IncTask(status string) {
	m.tasks.With(prometheus.Labels{"status": status}).Inc()
}

func (m *OrchestratorMetrics) GetTasks(status string) (int, error) {
	metricDto := &dto.Metric{}
	err := m.tasks.With(prometheus.Labels{"status": status}).Write(metricDto)
	if err == nil {
		return int(*metricDto.Counter.Value), nil
	}
	return -1, err
}

func (m *OrchestratorMetrics) IncRequest(state string) {
	m.requests.With(prometheus.Labels{"state": state}).Inc()
}

func (m *OrchestratorMetrics) GetRequests(state string) (int, error) {
	metricDto := &dto.Metric{}
	err := m.requests.With(prometheus.Labels{"state": state}).Write(metricDto)
	if err == nil {
		return int(*metricDto.Counter.Value), nil
	}
	return -1, err
}

func (m *OrchestratorMetrics) ObserveStageLatency(start time.Time) {
	m.stageLatency.Observe(SinceInSeconds(start))
}

func (m *OrchestratorMetrics) IncRunningRequests() {
	m.running.Inc()
}

func (m *OrchestratorMetrics) DecRunningRequests() {
	m.running.Dec()
}
