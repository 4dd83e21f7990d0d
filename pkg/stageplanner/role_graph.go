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
	"time"

	"github.com/google/btree"
	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/common/graph"
	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/metrics"
	"github.com/apache/ambari-rco/pkg/rco"
)

// Orderer answers the ordering queries of the planner, implemented by *rco.RoleCommandOrder.
type Orderer interface {
	Order(a, b rco.RoleCommandPair) int
	Precedes(a, b rco.RoleCommandPair) bool
}

// RoleGraph plans the commands of one request into stages.
// A RoleGraph is not safe for concurrent use.
type RoleGraph struct {
	order         Orderer
	executionType ExecutionType
	nodes         map[rco.RoleCommandPair]*RoleGraphNode
	// nodes in request order
	sequence []*RoleGraphNode
}

func NewRoleGraph(order Orderer, executionType ExecutionType) *RoleGraph {
	if executionType == "" {
		executionType = ExecutionStage
	}
	return &RoleGraph{
		order:         order,
		executionType: executionType,
		nodes:         make(map[rco.RoleCommandPair]*RoleGraphNode),
	}
}

// readyNode orders the ready queue with the role command order, ties cannot happen for distinct pairs.
type readyNode struct {
	node  *RoleGraphNode
	order Orderer
}

func (r readyNode) Less(than btree.Item) bool {
	other, ok := than.(readyNode)
	if !ok {
		return false
	}
	return r.order.Order(r.node.Pair, other.node.Pair) < 0
}

// Build plans the commands. Every node of stage N only depends on nodes of earlier stages. Rules
// that name pairs outside the request do not create edges. A request with a dependency cycle is
// rejected with a *CycleError, no partial plan is returned.
func (g *RoleGraph) Build(commands []Command) ([]*Stage, error) {
	if g.order == nil {
		return nil, ErrNoOrder
	}
	start := time.Now()
	if err := g.reset(commands); err != nil {
		return nil, err
	}
	dag := g.link()

	levels, err := g.levels(dag)
	if err != nil {
		metrics.GetPlannerMetrics().IncCycleFailure()
		log.Log(log.StagePlanner).Warn("request contains a dependency cycle",
			zap.Error(err))
		return nil, err
	}
	var stages []*Stage
	switch g.executionType {
	case ExecutionDependencyOrdered:
		stage := &Stage{ID: 1}
		for _, level := range levels {
			stage.Nodes = append(stage.Nodes, level...)
		}
		for _, n := range stage.Nodes {
			n.stage = stage.ID
		}
		stages = append(stages, stage)
	default:
		for i, level := range levels {
			stage := &Stage{ID: i + 1, Nodes: level}
			for _, n := range level {
				n.stage = stage.ID
			}
			stages = append(stages, stage)
		}
	}
	metrics.GetPlannerMetrics().ObserveBuildLatency(start)
	metrics.GetPlannerMetrics().ObserveStages(len(stages))
	log.Log(log.StagePlanner).Debug("request planned",
		zap.String("executionType", string(g.executionType)),
		zap.Int("commands", len(commands)),
		zap.Int("nodes", len(g.sequence)),
		zap.Int("stages", len(stages)))
	return stages, nil
}

func (g *RoleGraph) reset(commands []Command) error {
	g.nodes = make(map[rco.RoleCommandPair]*RoleGraphNode)
	g.sequence = nil
	for _, c := range commands {
		if c.Host == "" {
			return fmt.Errorf("%w: %s-%s has no host", ErrInvalidCommand, c.Role, c.Command)
		}
		if _, err := rco.ParseRole(c.Role.String()); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		if _, err := rco.ParseRoleCommand(c.Command.String()); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		p := c.Pair()
		n, ok := g.nodes[p]
		if !ok {
			n = newRoleGraphNode(p)
			if c.Command == rco.CUSTOM_COMMAND {
				n.CustomCommand = c.CustomCommand
			}
			g.nodes[p] = n
			g.sequence = append(g.sequence, n)
		}
		n.addHost(c.Host)
	}
	return nil
}

// link adds an edge for every requested pair that must run before another requested pair:
// a rule orders them, or they are lifecycle steps of the same role.
func (g *RoleGraph) link() *graph.Directed[rco.RoleCommandPair] {
	dag := graph.New[rco.RoleCommandPair]()
	for _, n := range g.sequence {
		dag.AddNode(n.Pair)
	}
	for _, from := range g.sequence {
		for _, to := range g.sequence {
			if from == to || !g.precedes(from, to) {
				continue
			}
			dag.AddEdge(from.Pair, to.Pair)
			from.edges = append(from.edges, to)
			to.inDegree++
			to.Blockers = append(to.Blockers, from.Pair)
		}
	}
	return dag
}

func (g *RoleGraph) precedes(from, to *RoleGraphNode) bool {
	a, b := from.orderingPair(), to.orderingPair()
	if a == b {
		return false
	}
	return g.order.Precedes(a, b) || rco.LifecyclePrecedes(a, b)
}

// levels is Kahn's algorithm: each level holds every node whose blockers are all in earlier
// levels, sorted by the role command order.
func (g *RoleGraph) levels(dag *graph.Directed[rco.RoleCommandPair]) ([][]*RoleGraphNode, error) {
	inDegree := make(map[*RoleGraphNode]int, len(g.sequence))
	ready := btree.New(2)
	for _, n := range g.sequence {
		inDegree[n] = n.inDegree
		if n.inDegree == 0 {
			ready.ReplaceOrInsert(readyNode{node: n, order: g.order})
		}
	}
	var levels [][]*RoleGraphNode
	visited := 0
	for ready.Len() > 0 {
		level := make([]*RoleGraphNode, 0, ready.Len())
		ready.Ascend(func(item btree.Item) bool {
			level = append(level, item.(readyNode).node)
			return true
		})
		levels = append(levels, level)
		visited += len(level)

		next := btree.New(2)
		for _, n := range level {
			for _, dep := range n.edges {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next.ReplaceOrInsert(readyNode{node: dep, order: g.order})
				}
			}
		}
		ready = next
	}
	if visited != len(g.sequence) {
		return nil, &CycleError{Members: dag.Cycles()}
	}
	return levels, nil
}

// String renders the planned graph, one edge or lone node per line.
func (g *RoleGraph) String() string {
	var b strings.Builder
	b.WriteString("Graph:\n")
	for _, n := range g.sequence {
		if len(n.edges) == 0 {
			fmt.Fprintf(&b, "%s\n", n)
			continue
		}
		for _, to := range n.edges {
			fmt.Fprintf(&b, "%s --> %s\n", n, to)
		}
	}
	return b.String()
}

// Nodes returns the nodes of the last build in request order.
func (g *RoleGraph) Nodes() []*RoleGraphNode {
	out := make([]*RoleGraphNode, len(g.sequence))
	copy(out, g.sequence)
	return out
}
