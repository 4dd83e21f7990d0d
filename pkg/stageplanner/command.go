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

package stageplanner

import (
	"fmt"
	"strings"

	"github.com/apache/ambari-rco/pkg/rco"
)

// Command is one execution command of a request: a role command on a host.
type Command struct {
	Host    string
	Role    rco.Role
	Command rco.RoleCommand
	// CustomCommand names the operation of a CUSTOM_COMMAND, for example RESTART.
	CustomCommand string
}

func (c Command) Pair() rco.RoleCommandPair {
	return rco.NewPair(c.Role, c.Command)
}

func (c Command) String() string {
	return fmt.Sprintf("%s-%s@%s", c.Role, c.Command, c.Host)
}

// ParseCommand builds a command from its role and command names.
func ParseCommand(host, role, command string) (Command, error) {
	if host == "" {
		return Command{}, fmt.Errorf("%w: %s-%s has no host", ErrInvalidCommand, role, command)
	}
	r, err := rco.ParseRole(role)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	c, err := rco.ParseRoleCommand(command)
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return Command{Host: host, Role: r, Command: c}, nil
}

// ExecutionType decides how the planned commands are grouped.
type ExecutionType string

const (
	// ExecutionStage groups the commands in dependency stages.
	ExecutionStage ExecutionType = "STAGE"
	// ExecutionDependencyOrdered puts all commands in one stage, each annotated with its blockers.
	ExecutionDependencyOrdered ExecutionType = "DEPENDENCY_ORDERED"
)

func ParseExecutionType(value string) (ExecutionType, error) {
	switch et := ExecutionType(strings.ToUpper(value)); et {
	case ExecutionStage, ExecutionDependencyOrdered:
		return et, nil
	case "":
		return ExecutionStage, nil
	}
	return "", fmt.Errorf("unknown execution type %q", value)
}

// RoleGraphNode is all commands of one role command pair in a request.
type RoleGraphNode struct {
	Pair  rco.RoleCommandPair
	Hosts []string
	// CustomCommand of the first merged command, only set for CUSTOM_COMMAND.
	CustomCommand string
	// Blockers are the requested pairs that must complete first.
	Blockers []rco.RoleCommandPair

	stage    int
	inDegree int
	edges    []*RoleGraphNode
}

func newRoleGraphNode(pair rco.RoleCommandPair) *RoleGraphNode {
	return &RoleGraphNode{Pair: pair}
}

func (n *RoleGraphNode) addHost(host string) {
	for _, h := range n.Hosts {
		if h == host {
			return
		}
	}
	n.Hosts = append(n.Hosts, host)
}

// orderingPair is the pair the rules are looked up with. A restart, plain or as a custom
// command, is ordered like a start.
func (n *RoleGraphNode) orderingPair() rco.RoleCommandPair {
	restart := n.Pair.Command == rco.RESTART ||
		(n.Pair.Command == rco.CUSTOM_COMMAND && strings.EqualFold(n.CustomCommand, rco.RESTART.String()))
	if restart {
		return rco.NewPair(n.Pair.Role, rco.START)
	}
	return n.Pair
}

func (n *RoleGraphNode) Role() rco.Role {
	return n.Pair.Role
}

func (n *RoleGraphNode) Command() rco.RoleCommand {
	return n.Pair.Command
}

// Stage returns the 1 based stage the node was planned in, 0 before planning.
func (n *RoleGraphNode) Stage() int {
	return n.stage
}

func (n *RoleGraphNode) String() string {
	return fmt.Sprintf("(%s, %s, %d)", n.Pair.Role, n.Pair.Command, n.stage)
}

// Stage is a batch of pairs that can run concurrently once all earlier stages completed.
type Stage struct {
	ID    int
	Nodes []*RoleGraphNode
}

// Commands expands the nodes of the stage back into per host commands.
func (s *Stage) Commands() []Command {
	var out []Command
	for _, n := range s.Nodes {
		for _, h := range n.Hosts {
			out = append(out, Command{Host: h, Role: n.Pair.Role, Command: n.Pair.Command, CustomCommand: n.CustomCommand})
		}
	}
	return out
}

func (s *Stage) Pairs() []rco.RoleCommandPair {
	out := make([]rco.RoleCommandPair, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		out = append(out, n.Pair)
	}
	return out
}

func (s *Stage) String() string {
	parts := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		parts = append(parts, fmt.Sprintf("%s[%s]", n.Pair, strings.Join(n.Hosts, ",")))
	}
	return fmt.Sprintf("stage %d: %s", s.ID, strings.Join(parts, " "))
}
