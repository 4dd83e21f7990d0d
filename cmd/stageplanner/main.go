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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/common"
	"github.com/apache/ambari-rco/pkg/common/configs"
	"github.com/apache/ambari-rco/pkg/entrypoint"
	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/trace"
)

const tracingEnv = "RCO_TRACING"

var (
	configFile  = flag.String("config", "", "planner configuration file, the built-in defaults are used when not set")
	requestFile = flag.String("request", "", "request file with the cluster model and the commands to plan")
	execute     = flag.Bool("execute", false, "run the planned stages with a dispatcher that only logs the commands")
	dumpMetrics = flag.Bool("metrics", false, "print the collected metrics in the prometheus text format on exit")
	tracing     = flag.Bool("tracing", common.GetBoolEnvVar(tracingEnv, false), "report request traces to the tracer configured by the JAEGER_* environment")
)

func main() {
	flag.Parse()
	if *requestFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: "+os.Args[0]+" -request <request-file> [-config <planner-config-file>] [-execute]")
		os.Exit(1)
	}
	code := handle()
	if *dumpMetrics {
		if err := writeMetrics(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	os.Exit(code)
}

func handle() int {
	conf, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	content, err := os.ReadFile(*requestFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	req, err := configs.LoadRequestConfigFromByteArray(content)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 3
	}

	var services *entrypoint.ServiceContext
	if *tracing {
		services, err = entrypoint.StartAllServicesWithTracing(conf, nil, trace.DefaultTracerImplParams)
	} else {
		services, err = entrypoint.StartAllServices(conf, nil)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	defer services.StopAll()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	plan, err := services.Plan(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 4
	}
	for _, stage := range plan.Stages {
		fmt.Println(stage.String())
	}
	if !*execute {
		return 0
	}
	result, err := services.Execute(ctx, plan)
	fmt.Println(result.String())
	if err != nil {
		log.Log(log.Entrypoint).Error("request did not complete",
			zap.String("requestID", result.ID),
			zap.Error(err))
		return 5
	}
	return 0
}

func loadConfig(path string) (*configs.PlannerConfig, error) {
	content := []byte(configs.DefaultPlannerConfig)
	if path != "" {
		var err error
		if content, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	return configs.LoadPlannerConfigFromByteArray(content)
}

func writeMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	encoder := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err = encoder.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
