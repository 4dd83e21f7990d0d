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

// Package cluster holds a static cluster model built from a request description.
package cluster

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/common/configs"
	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/rco"
	"github.com/apache/ambari-rco/pkg/stack"
)

// Cluster is an immutable cluster model.
type Cluster struct {
	name     string
	stackID  stack.ID
	services map[string]*Service
}

type Service struct {
	name       string
	components map[string]*Component
}

type Component struct {
	name  string
	hosts []string
}

// New builds the cluster from its description, duplicate hosts of a component are dropped.
func New(conf configs.ClusterConfig) (*Cluster, error) {
	id, err := stack.ParseID(conf.Stack)
	if err != nil {
		return nil, fmt.Errorf("cluster %s: %w", conf.Name, err)
	}
	c := &Cluster{
		name:     conf.Name,
		stackID:  id,
		services: make(map[string]*Service, len(conf.Services)),
	}
	for _, sc := range conf.Services {
		if _, ok := c.services[sc.Name]; ok {
			return nil, fmt.Errorf("cluster %s: duplicate service %s", conf.Name, sc.Name)
		}
		svc := &Service{
			name:       sc.Name,
			components: make(map[string]*Component, len(sc.Components)),
		}
		for _, cc := range sc.Components {
			comp := &Component{name: cc.Name}
			seen := make(map[string]bool, len(cc.Hosts))
			for _, h := range cc.Hosts {
				if !seen[h] {
					seen[h] = true
					comp.hosts = append(comp.hosts, h)
				}
			}
			svc.components[cc.Name] = comp
		}
		c.services[sc.Name] = svc
	}
	log.Log(log.Core).Debug("cluster model created",
		zap.String("cluster", c.name),
		zap.Stringer("stack", c.stackID),
		zap.Strings("services", c.ServiceNames()))
	return c, nil
}

func (c *Cluster) Name() string {
	return c.name
}

func (c *Cluster) CurrentStackVersion() stack.ID {
	return c.stackID
}

func (c *Cluster) Service(name string) (rco.Service, bool) {
	svc, ok := c.services[name]
	if !ok {
		return nil, false
	}
	return svc, true
}

// ServiceNames returns the installed services, sorted.
func (c *Cluster) ServiceNames() []string {
	names := make([]string, 0, len(c.services))
	for n := range c.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Hosts returns the hosts that run the component in any service.
func (c *Cluster) Hosts(component string) []string {
	for _, svc := range c.services {
		if comp, ok := svc.components[component]; ok {
			return append([]string(nil), comp.hosts...)
		}
	}
	return nil
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) ServiceComponent(name string) (rco.ServiceComponent, bool) {
	comp, ok := s.components[name]
	if !ok {
		return nil, false
	}
	return comp, true
}

func (c *Component) Name() string {
	return c.name
}

func (c *Component) HostCount() int {
	return len(c.hosts)
}
