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

package rco

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/common/graph"
	"github.com/apache/ambari-rco/pkg/locking"
	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/metrics"
)

// RoleCommandOrder owns the dependency graph of one orchestration session and answers ordering queries.
// Before Initialize the graph is empty and every pair is unrelated.
type RoleCommandOrder struct {
	loader       RuleLoader
	topology     Topology
	initialized  bool
	dependencies Rules
	index        *orderIndex

	locking.RWMutex
}

// orderIndex is derived from the dependencies on every change.
type orderIndex struct {
	// blocker to every pair it transitively blocks
	reach  map[RoleCommandPair]map[RoleCommandPair]struct{}
	depth  map[RoleCommandPair]int
	cycles [][]RoleCommandPair
}

func New(loader RuleLoader) *RoleCommandOrder {
	o := &RoleCommandOrder{
		loader:       loader,
		dependencies: Rules{},
	}
	o.index = buildIndex(o.dependencies)
	return o
}

// Initialize loads the rules of the cluster stack and keeps the ones that apply to the cluster topology.
// Calling it again starts from scratch: dependencies added through AddDependencies are dropped.
func (o *RoleCommandOrder) Initialize(ctx context.Context, cluster Cluster) error {
	topology, err := NewTopology(cluster)
	if err != nil {
		return err
	}
	if o.loader == nil {
		return fmt.Errorf("no rule loader configured for stack %s", topology.StackID)
	}
	loaded, err := o.loader.LoadRules(ctx, topology.StackID)
	if err != nil {
		return err
	}
	selected := loaded.Rules.Select(topology)
	index := buildIndex(selected)

	o.Lock()
	o.topology = topology
	o.dependencies = selected
	o.index = index
	o.initialized = true
	o.Unlock()

	log.Log(log.RCO).Info("role command order initialized",
		zap.Stringer("topology", topology),
		zap.String("source", loaded.Source),
		zap.Int("blocked", len(selected)))
	metrics.GetRuleMetrics().SetDependencies(len(selected))
	if len(index.cycles) > 0 {
		metrics.GetRuleMetrics().AddRuleCycles(len(index.cycles))
		for _, c := range index.cycles {
			log.Log(log.RCO).Warn("dependency rules contain a cycle, batches with these commands cannot be scheduled",
				zap.Stringer("stack", topology.StackID),
				zap.Strings("members", pairStrings(c)))
		}
	}
	return nil
}

// AddDependencies layers one raw rule section on top of the current graph. Blockers of known
// pairs are unioned. Nothing is applied when the section is malformed.
func (o *RoleCommandOrder) AddDependencies(raw map[string]interface{}) error {
	rules, err := ParseRawRules(raw)
	if err != nil {
		return err
	}
	o.Lock()
	defer o.Unlock()
	o.dependencies.Merge(rules)
	o.index = buildIndex(o.dependencies)
	log.Log(log.RCO).Debug("dependencies added",
		zap.Int("added", len(rules)),
		zap.Int("blocked", len(o.dependencies)))
	return nil
}

// Dependencies returns a copy of the graph, blockers sorted by role and command.
func (o *RoleCommandOrder) Dependencies() Rules {
	o.RLock()
	defer o.RUnlock()
	return o.dependencies.Clone()
}

func (o *RoleCommandOrder) Initialized() bool {
	o.RLock()
	defer o.RUnlock()
	return o.initialized
}

// Topology returns the snapshot taken by the last Initialize.
func (o *RoleCommandOrder) Topology() Topology {
	o.RLock()
	defer o.RUnlock()
	return o.topology
}

// Precedes reports whether a must complete before b, directly or through other rules.
func (o *RoleCommandOrder) Precedes(a, b RoleCommandPair) bool {
	o.RLock()
	defer o.RUnlock()
	return o.index.precedes(a, b)
}

// TransitiveBlockers returns every pair that must complete before p, sorted.
func (o *RoleCommandOrder) TransitiveBlockers(p RoleCommandPair) []RoleCommandPair {
	o.RLock()
	defer o.RUnlock()
	var out []RoleCommandPair
	for blocker, blocked := range o.index.reach {
		if _, ok := blocked[p]; ok {
			out = append(out, blocker)
		}
	}
	sortPairs(out)
	return out
}

// Cycles returns the groups of pairs that block each other.
func (o *RoleCommandOrder) Cycles() [][]RoleCommandPair {
	o.RLock()
	defer o.RUnlock()
	out := make([][]RoleCommandPair, 0, len(o.index.cycles))
	for _, c := range o.index.cycles {
		out = append(out, append([]RoleCommandPair(nil), c...))
	}
	return out
}

// Order compares two pairs: -1 when a runs first, +1 when b runs first, 0 for the same pair.
// Pairs that are not related by a rule are ordered by rank: dependency depth, then command, then role.
// The rank always agrees with the dependencies, making this a strict total order for an acyclic graph.
func (o *RoleCommandOrder) Order(a, b RoleCommandPair) int {
	if a == b {
		return 0
	}
	o.RLock()
	defer o.RUnlock()
	aFirst := o.index.precedes(a, b)
	bFirst := o.index.precedes(b, a)
	switch {
	case aFirst && !bFirst:
		return -1
	case bFirst && !aFirst:
		return 1
	}
	return o.index.compareRank(a, b)
}

func buildIndex(rules Rules) *orderIndex {
	g := graph.New[RoleCommandPair]()
	for _, blocked := range rules.Keys() {
		for _, blocker := range rules[blocked] {
			g.AddEdge(blocker, blocked)
		}
	}
	idx := &orderIndex{
		reach:  make(map[RoleCommandPair]map[RoleCommandPair]struct{}, g.Len()),
		depth:  g.Depths(),
		cycles: g.Cycles(),
	}
	for _, n := range g.Nodes() {
		if reach := g.Reachable(n); len(reach) > 0 {
			idx.reach[n] = reach
		}
	}
	for _, c := range idx.cycles {
		sortPairs(c)
	}
	return idx
}

func (idx *orderIndex) precedes(a, b RoleCommandPair) bool {
	_, ok := idx.reach[a][b]
	return ok
}

func (idx *orderIndex) compareRank(a, b RoleCommandPair) int {
	da, db := idx.depth[a], idx.depth[b]
	switch {
	case da != db:
		return sign(da - db)
	case a.Command != b.Command:
		return sign(int(a.Command) - int(b.Command))
	}
	return sign(int(a.Role) - int(b.Role))
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
