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

package entrypoint

import (
	"context"

	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/cluster"
	"github.com/apache/ambari-rco/pkg/common"
	"github.com/apache/ambari-rco/pkg/common/configs"
	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/orchestrator"
	"github.com/apache/ambari-rco/pkg/rco"
	"github.com/apache/ambari-rco/pkg/stack"
	"github.com/apache/ambari-rco/pkg/stageplanner"
	"github.com/apache/ambari-rco/pkg/trace"
)

type ServiceContext struct {
	Config        *configs.PlannerConfig
	Registry      *stack.Registry
	Rules         *rco.RuleStore
	Runner        *orchestrator.Runner
	Tracer        trace.Tracer
	ExecutionType stageplanner.ExecutionType
}

// Plan is a request turned into stages for the cluster it targets.
type Plan struct {
	Cluster *cluster.Cluster
	Order   *rco.RoleCommandOrder
	Graph   *stageplanner.RoleGraph
	Stages  []*stageplanner.Stage
}

// Plan initializes the command order for the request cluster and groups the request commands into stages.
func (s *ServiceContext) Plan(ctx context.Context, req *configs.RequestConfig) (*Plan, error) {
	if req == nil {
		return nil, common.ErrNoRequest
	}
	c, err := cluster.New(req.Cluster)
	if err != nil {
		return nil, err
	}
	order := rco.New(s.Rules)
	if err = order.Initialize(ctx, c); err != nil {
		return nil, err
	}
	commands := make([]stageplanner.Command, 0, len(req.Commands))
	for _, cc := range req.Commands {
		cmd, err := stageplanner.ParseCommand(cc.Host, cc.Role, cc.Command)
		if err != nil {
			return nil, err
		}
		cmd.CustomCommand = cc.CustomCommand
		commands = append(commands, cmd)
	}
	graph := stageplanner.NewRoleGraph(order, s.ExecutionType)
	stages, err := graph.Build(commands)
	if err != nil {
		return nil, err
	}
	log.Log(log.Entrypoint).Info("request planned",
		zap.String("cluster", c.Name()),
		zap.Stringer("topology", order.Topology()),
		zap.Int("commands", len(commands)),
		zap.Int("stages", len(stages)))
	return &Plan{
		Cluster: c,
		Order:   order,
		Graph:   graph,
		Stages:  stages,
	}, nil
}

// Execute runs the stages of the plan through the dispatcher.
func (s *ServiceContext) Execute(ctx context.Context, plan *Plan) (*orchestrator.Request, error) {
	if plan == nil {
		return nil, common.ErrNoPlan
	}
	return s.Runner.Run(ctx, plan.Stages)
}

func (s *ServiceContext) StopAll() {
	log.Log(log.Entrypoint).Info("ServiceContext stop all services")
	if s.Tracer != nil {
		s.Tracer.Close()
	}
}
