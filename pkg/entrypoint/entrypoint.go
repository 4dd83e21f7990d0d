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
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/common/configs"
	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/orchestrator"
	"github.com/apache/ambari-rco/pkg/rco"
	"github.com/apache/ambari-rco/pkg/stack"
	"github.com/apache/ambari-rco/pkg/stageplanner"
	"github.com/apache/ambari-rco/pkg/trace"
)

// options used to control how services are started
type startupOptions struct {
	stacks        fs.FS
	dispatcher    orchestrator.Dispatcher
	tracingFlag   bool
	tracingParams *trace.TracerImplParams
}

// DryRunDispatcher logs every command instead of sending it to an agent.
var DryRunDispatcher = orchestrator.DispatcherFunc(func(ctx context.Context, cmd stageplanner.Command) error {
	log.Log(log.Entrypoint).Info("dispatching command",
		zap.Stringer("command", cmd))
	return ctx.Err()
})

// StartAllServices loads the stack tree under the configured root and wires the planner services.
// A nil dispatcher only logs the commands.
func StartAllServices(conf *configs.PlannerConfig, dispatcher orchestrator.Dispatcher) (*ServiceContext, error) {
	log.Log(log.Entrypoint).Info("ServiceContext start all services")
	return startAllServicesWithParameters(conf,
		startupOptions{
			dispatcher: dispatcher,
		})
}

// StartAllServicesWithTracing is StartAllServices reporting request traces to the tracer set up from the environment.
func StartAllServicesWithTracing(conf *configs.PlannerConfig, dispatcher orchestrator.Dispatcher, params *trace.TracerImplParams) (*ServiceContext, error) {
	log.Log(log.Entrypoint).Info("ServiceContext start all services (tracing)")
	return startAllServicesWithParameters(conf,
		startupOptions{
			dispatcher:    dispatcher,
			tracingFlag:   true,
			tracingParams: params,
		})
}

func StartAllServicesWithLogger(logger *zap.Logger, zapConfigs *zap.Config, conf *configs.PlannerConfig, dispatcher orchestrator.Dispatcher) (*ServiceContext, error) {
	log.InitializeLogger(logger, zapConfigs)
	return StartAllServices(conf, dispatcher)
}

// Visible by tests
func StartAllServicesWithStacks(stacks fs.FS, conf *configs.PlannerConfig, dispatcher orchestrator.Dispatcher) (*ServiceContext, error) {
	log.Log(log.Entrypoint).Info("ServiceContext start all services (provided stacks)")
	return startAllServicesWithParameters(conf,
		startupOptions{
			stacks:     stacks,
			dispatcher: dispatcher,
		})
}

func startAllServicesWithParameters(conf *configs.PlannerConfig, opts startupOptions) (*ServiceContext, error) {
	if conf == nil {
		var err error
		if conf, err = configs.LoadPlannerConfigFromByteArray([]byte(configs.DefaultPlannerConfig)); err != nil {
			return nil, err
		}
	} else if err := configs.Validate(conf); err != nil {
		return nil, err
	}
	if len(conf.LogLevels) != 0 {
		if err := log.SetLevels(conf.LogLevels); err != nil {
			return nil, err
		}
	}
	configs.ConfigContext.Set(configs.PlannerConfigPath, conf)

	executionType, err := stageplanner.ParseExecutionType(conf.ExecutionType)
	if err != nil {
		return nil, err
	}

	stacks := opts.stacks
	if stacks == nil {
		stacks = os.DirFS(conf.StackRoot)
	}
	log.Log(log.Entrypoint).Info("loading stack definitions",
		zap.String("stackRoot", conf.StackRoot))
	registry, err := stack.LoadRegistry(stacks)
	if err != nil {
		return nil, err
	}

	tracer := trace.NewNoopTracer()
	if opts.tracingFlag {
		log.Log(log.Entrypoint).Info("ServiceContext start tracing")
		if tracer, err = trace.NewTracer(opts.tracingParams); err != nil {
			return nil, err
		}
	}

	dispatcher := opts.dispatcher
	if dispatcher == nil {
		dispatcher = DryRunDispatcher
	}
	runner := orchestrator.NewRunner(dispatcher,
		orchestrator.Options{
			MaxParallel: conf.MaxParallel,
			TaskTimeout: conf.TaskTimeout,
		}, tracer)

	return &ServiceContext{
		Config:        conf,
		Registry:      registry,
		Rules:         rco.NewRuleStore(registry),
		Runner:        runner,
		Tracer:        tracer,
		ExecutionType: executionType,
	}, nil
}
