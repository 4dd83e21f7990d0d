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
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/rco"
	"github.com/apache/ambari-rco/pkg/stack"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// ClusterNameRegExp follows the cluster names the server accepts.
var ClusterNameRegExp = regexp.MustCompile("^[a-zA-Z][a-zA-Z0-9_-]{0,99}$")

// ServiceNameRegExp covers service names, they are upper case identifiers.
var ServiceNameRegExp = regexp.MustCompile("^[A-Z][A-Z0-9_]*$")

// HostRegExp is a lenient host name check, dots and dashes allowed.
var HostRegExp = regexp.MustCompile("^[a-zA-Z0-9_][a-zA-Z0-9_.-]*$")

var executionTypes = []string{"STAGE", "DEPENDENCY_ORDERED"}

// Validate checks the planner configuration.
func Validate(conf *PlannerConfig) error {
	if conf == nil {
		return fmt.Errorf("%w: config is not set", ErrInvalidConfig)
	}
	if conf.StackRoot == "" {
		return fmt.Errorf("%w: stackRoot is not set", ErrInvalidConfig)
	}
	if err := checkExecutionType(conf.ExecutionType); err != nil {
		return err
	}
	if conf.MaxParallel < 0 {
		return fmt.Errorf("%w: maxParallel cannot be negative: %d", ErrInvalidConfig, conf.MaxParallel)
	}
	if conf.TaskTimeout < 0 {
		return fmt.Errorf("%w: taskTimeout cannot be negative: %s", ErrInvalidConfig, conf.TaskTimeout)
	}
	for name, value := range conf.LogLevels {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(value))); err != nil {
			return fmt.Errorf("%w: log level %q for %q: %v", ErrInvalidConfig, value, name, err)
		}
	}
	return nil
}

func checkExecutionType(value string) error {
	if value == "" {
		return nil
	}
	for _, et := range executionTypes {
		if strings.EqualFold(value, et) {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown executionType %q, expected one of %s",
		ErrInvalidConfig, value, strings.Join(executionTypes, ", "))
}

// ValidateRequest checks the cluster model and the commands of a request.
// Every command must target a host that runs the role in the cluster model.
func ValidateRequest(req *RequestConfig) error {
	if req == nil {
		return fmt.Errorf("%w: request is not set", ErrInvalidConfig)
	}
	hosts, err := checkCluster(&req.Cluster)
	if err != nil {
		return err
	}
	if len(req.Commands) == 0 {
		return fmt.Errorf("%w: request has no commands", ErrInvalidConfig)
	}
	for i, cmd := range req.Commands {
		if err = checkCommand(cmd, hosts); err != nil {
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

// checkCluster returns the hosts of every component.
func checkCluster(cluster *ClusterConfig) (map[string]map[string]bool, error) {
	if !ClusterNameRegExp.MatchString(cluster.Name) {
		return nil, fmt.Errorf("%w: invalid cluster name %q", ErrInvalidConfig, cluster.Name)
	}
	if _, err := stack.ParseID(cluster.Stack); err != nil {
		return nil, fmt.Errorf("%w: cluster %s: %w", ErrInvalidConfig, cluster.Name, err)
	}
	log.Log(log.Config).Debug("checking cluster model",
		zap.String("cluster", cluster.Name),
		zap.Int("services", len(cluster.Services)))
	services := make(map[string]bool, len(cluster.Services))
	hosts := make(map[string]map[string]bool)
	for _, svc := range cluster.Services {
		if !ServiceNameRegExp.MatchString(svc.Name) {
			return nil, fmt.Errorf("%w: invalid service name %q", ErrInvalidConfig, svc.Name)
		}
		if services[svc.Name] {
			return nil, fmt.Errorf("%w: duplicate service %s", ErrInvalidConfig, svc.Name)
		}
		services[svc.Name] = true
		for _, comp := range svc.Components {
			if _, err := rco.ParseRole(comp.Name); err != nil {
				return nil, fmt.Errorf("%w: service %s: %w", ErrInvalidConfig, svc.Name, err)
			}
			if _, ok := hosts[comp.Name]; ok {
				return nil, fmt.Errorf("%w: component %s defined twice", ErrInvalidConfig, comp.Name)
			}
			set := make(map[string]bool, len(comp.Hosts))
			for _, h := range comp.Hosts {
				if !HostRegExp.MatchString(h) {
					return nil, fmt.Errorf("%w: component %s: invalid host %q", ErrInvalidConfig, comp.Name, h)
				}
				set[h] = true
			}
			hosts[comp.Name] = set
		}
	}
	return hosts, nil
}

// checkCommand validates the names of a command. Roles that are not a component of the cluster
// model, service checks and server actions, only need a valid host.
func checkCommand(cmd CommandConfig, hosts map[string]map[string]bool) error {
	if !HostRegExp.MatchString(cmd.Host) {
		return fmt.Errorf("%w: invalid host %q", ErrInvalidConfig, cmd.Host)
	}
	if _, err := rco.ParseRole(cmd.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	command, err := rco.ParseRoleCommand(cmd.Command)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if cmd.CustomCommand != "" && command != rco.CUSTOM_COMMAND {
		return fmt.Errorf("%w: customCommand %s set on %s-%s", ErrInvalidConfig, cmd.CustomCommand, cmd.Role, cmd.Command)
	}
	if set, ok := hosts[cmd.Role]; ok && !set[cmd.Host] {
		return fmt.Errorf("%w: %s is not installed on host %s", ErrInvalidConfig, cmd.Role, cmd.Host)
	}
	return nil
}
