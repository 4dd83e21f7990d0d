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

package configs

import (
	"github.com/apache/ambari-rco/pkg/locking"
)

const (
	PlannerConfigPath        = "planner-config-path"
	DefaultPlannerConfigPath = "/etc/ambari-rco/planner.yaml"
)

var ConfigContext *PlannerConfigContext

func init() {
	ConfigContext = &PlannerConfigContext{
		configs: make(map[string]*PlannerConfig),
	}
}

// PlannerConfigContext provides thread-safe access to the loaded planner configurations.
type PlannerConfigContext struct {
	configs map[string]*PlannerConfig
	lock    locking.RWMutex
}

func (ctx *PlannerConfigContext) Set(name string, config *PlannerConfig) {
	ctx.lock.Lock()
	defer ctx.lock.Unlock()
	ctx.configs[name] = config
}

func (ctx *PlannerConfigContext) Get(name string) *PlannerConfig {
	ctx.lock.RLock()
	defer ctx.lock.RUnlock()
	return ctx.configs[name]
}
