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
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/apache/ambari-rco/pkg/log"
)

// PlannerConfig is the configuration of the planner process.
// - the root of the stack definitions tree
// - how commands are grouped: STAGE or DEPENDENCY_ORDERED
// - the number of commands of one stage dispatched concurrently, 0 is unlimited
// - the time a single command may take, 0 is unlimited
// - per logger handle levels
type PlannerConfig struct {
	StackRoot     string            `yaml:"stackRoot" json:"stackRoot"`
	ExecutionType string            `yaml:"executionType,omitempty" json:"executionType,omitempty"`
	MaxParallel   int               `yaml:"maxParallel,omitempty" json:"maxParallel,omitempty"`
	TaskTimeout   time.Duration     `yaml:"taskTimeout,omitempty" json:"taskTimeout,omitempty"`
	LogLevels     map[string]string `yaml:"logLevels,omitempty" json:"logLevels,omitempty"`
	Checksum      string            `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

// RequestConfig describes one orchestration request: the cluster it runs on and the commands.
type RequestConfig struct {
	Cluster  ClusterConfig   `yaml:"cluster" json:"cluster"`
	Commands []CommandConfig `yaml:"commands" json:"commands"`
	Checksum string          `yaml:"checksum,omitempty" json:"checksum,omitempty"`
}

// ClusterConfig is the static cluster model: the current stack version and the
// installed services with the hosts of each component.
type ClusterConfig struct {
	Name     string          `yaml:"name" json:"name"`
	Stack    string          `yaml:"stack" json:"stack"`
	Services []ServiceConfig `yaml:"services,omitempty" json:"services,omitempty"`
}

type ServiceConfig struct {
	Name       string            `yaml:"name" json:"name"`
	Components []ComponentConfig `yaml:"components,omitempty" json:"components,omitempty"`
}

type ComponentConfig struct {
	Name  string   `yaml:"name" json:"name"`
	Hosts []string `yaml:"hosts,omitempty" json:"hosts,omitempty"`
}

// CommandConfig is one role command on one host. CustomCommand names the operation of a
// CUSTOM_COMMAND, for example RESTART.
type CommandConfig struct {
	Host          string `yaml:"host" json:"host"`
	Role          string `yaml:"role" json:"role"`
	Command       string `yaml:"command" json:"command"`
	CustomCommand string `yaml:"customCommand,omitempty" json:"customCommand,omitempty"`
}

func LoadPlannerConfigFromByteArray(content []byte) (*PlannerConfig, error) {
	conf, err := ParseAndValidateConfig(content)
	if err != nil {
		return nil, err
	}
	// Create a sha256 checksum for this validated config
	conf.Checksum = checksum(content)
	return conf, nil
}

func ParseAndValidateConfig(content []byte) (*PlannerConfig, error) {
	conf := &PlannerConfig{}
	if err := decodeStrict(content, conf); err != nil {
		log.Log(log.Config).Error("failed to parse planner configuration",
			zap.Error(err))
		return nil, err
	}
	if err := Validate(conf); err != nil {
		log.Log(log.Config).Error("planner configuration validation failed",
			zap.Error(err))
		return nil, err
	}
	return conf, nil
}

func LoadRequestConfigFromByteArray(content []byte) (*RequestConfig, error) {
	req := &RequestConfig{}
	if err := decodeStrict(content, req); err != nil {
		log.Log(log.Config).Error("failed to parse request",
			zap.Error(err))
		return nil, err
	}
	if err := ValidateRequest(req); err != nil {
		log.Log(log.Config).Error("request validation failed",
			zap.Error(err))
		return nil, err
	}
	req.Checksum = checksum(content)
	return req, nil
}

func decodeStrict(content []byte, out interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true) // Enable strict unmarshaling behavior
	err := decoder.Decode(out)
	if err != nil && !errors.Is(err, io.EOF) { // empty content may have EOF error, skip it
		return err
	}
	return nil
}

func checksum(content []byte) string {
	return fmt.Sprintf("%X", sha256.Sum256([]byte(GetConfigurationString(content))))
}

// GetConfigurationString strips a checksum line from the content.
func GetConfigurationString(requestBytes []byte) string {
	conf := string(requestBytes)
	checksum := "checksum: "
	checksumLength := 64 + len(checksum)
	if strings.Contains(conf, checksum) {
		checksum += strings.Split(conf, checksum)[1]
		checksum = strings.TrimRight(checksum, "\n")
		if len(checksum) > checksumLength {
			checksum = checksum[:checksumLength]
		}
	}
	return strings.ReplaceAll(conf, checksum, "")
}

// DefaultPlannerConfig contains the default planner configuration; used if no other is provided
var DefaultPlannerConfig = `
stackRoot: /var/lib/ambari-server/resources/stacks
executionType: STAGE
maxParallel: 0
taskTimeout: 10m
`
