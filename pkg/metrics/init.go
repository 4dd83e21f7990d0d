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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/log"
)

const (
	// Namespace for all metrics inside the role command order service
	Namespace = "ambari_rco"
	// RulesSubsystem is used by the dependency rule store and the role command order
	RulesSubsystem = "rules"
	// PlannerSubsystem is used by the stage planner
	PlannerSubsystem = "planner"
	// OrchestratorSubsystem is used by the stage runner
	OrchestratorSubsystem = "orchestrator"
)

var once sync.Once
var m *Metrics

type Metrics struct {
	rules        *RuleMetrics
	planner      *PlannerMetrics
	orchestrator *OrchestratorMetrics
}

func init() {
	once.Do(func() {
		m = &Metrics{
			rules:        InitRuleMetrics(),
			planner:      InitPlannerMetrics(),
			orchestrator: InitOrchestratorMetrics(),
		}
	})
}

func GetRuleMetrics() *RuleMetrics {
	return m.rules
}

func GetPlannerMetrics() *PlannerMetrics {
	return m.planner
}

func GetOrchestratorMetrics() *OrchestratorMetrics {
	return m.orchestrator
}

func SinceInSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}

func register(collectors ...prometheus.Collector) {
	for _, metric := range collectors {
		if err := prometheus.Register(metric); err != nil {
			log.Log(log.Metrics).Warn("failed to register metrics collector", zap.Error(err))
		}
	}
}
