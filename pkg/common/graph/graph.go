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

// Package graph holds the directed graph helpers shared by the role command
// order and the stage planner. Iteration order is always the node insertion
// order so results are reproducible.
package graph

import "sort"

// Directed is a directed graph, an edge from -> to means from must come before to.
type Directed[K comparable] struct {
	nodes []K
	index map[K]int
	succ  [][]int
	edges map[[2]int]struct{}
}

func New[K comparable]() *Directed[K] {
	return &Directed[K]{
		index: make(map[K]int),
		edges: make(map[[2]int]struct{}),
	}
}

// AddNode adds the node if it is not yet known.
func (g *Directed[K]) AddNode(k K) {
	g.id(k)
}

// AddEdge adds both nodes when needed, duplicate edges are ignored.
func (g *Directed[K]) AddEdge(from, to K) {
	f := g.id(from)
	t := g.id(to)
	key := [2]int{f, t}
	if _, ok := g.edges[key]; ok {
		return
	}
	g.edges[key] = struct{}{}
	g.succ[f] = append(g.succ[f], t)
}

func (g *Directed[K]) HasNode(k K) bool {
	_, ok := g.index[k]
	return ok
}

func (g *Directed[K]) HasEdge(from, to K) bool {
	f, ok := g.index[from]
	if !ok {
		return false
	}
	t, ok := g.index[to]
	if !ok {
		return false
	}
	_, ok = g.edges[[2]int{f, t}]
	return ok
}

func (g *Directed[K]) Len() int {
	return len(g.nodes)
}

// Nodes returns the nodes in insertion order.
func (g *Directed[K]) Nodes() []K {
	out := make([]K, len(g.nodes))
	copy(out, g.nodes)
	return out
}

func (g *Directed[K]) Successors(k K) []K {
	i, ok := g.index[k]
	if !ok {
		return nil
	}
	out := make([]K, 0, len(g.succ[i]))
	for _, s := range g.succ[i] {
		out = append(out, g.nodes[s])
	}
	return out
}

// Reachable returns every node reachable from k over one or more edges.
// k itself is only part of the result when it sits on a cycle.
func (g *Directed[K]) Reachable(k K) map[K]struct{} {
	out := make(map[K]struct{})
	start, ok := g.index[k]
	if !ok {
		return out
	}
	seen := make([]bool, len(g.nodes))
	queue := append([]int(nil), g.succ[start]...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		out[g.nodes[n]] = struct{}{}
		queue = append(queue, g.succ[n]...)
	}
	return out
}

// StronglyConnected returns the strongly connected components using Tarjan's
// algorithm. Components are returned in topological order: a component only
// has edges into components listed after it.
func (g *Directed[K]) StronglyConnected() [][]K {
	n := len(g.nodes)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	var components [][]K
	counter := 0

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v] = counter
		low[v] = counter
		counter++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range g.succ[v] {
			if index[w] < 0 {
				strongConnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}
		if low[v] != index[v] {
			return
		}
		var members []int
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			members = append(members, w)
			if w == v {
				break
			}
		}
		// report members in insertion order
		sort.Ints(members)
		component := make([]K, 0, len(members))
		for _, m := range members {
			component = append(component, g.nodes[m])
		}
		components = append(components, component)
	}

	for v := 0; v < n; v++ {
		if index[v] < 0 {
			strongConnect(v)
		}
	}
	// Tarjan emits sinks first
	for i, j := 0, len(components)-1; i < j; i, j = i+1, j-1 {
		components[i], components[j] = components[j], components[i]
	}
	return components
}

// Cycles returns the components that form a cycle: more than one member or a
// single member with an edge to itself.
func (g *Directed[K]) Cycles() [][]K {
	var cycles [][]K
	for _, c := range g.StronglyConnected() {
		if len(c) > 1 || g.HasEdge(c[0], c[0]) {
			cycles = append(cycles, c)
		}
	}
	return cycles
}

// Depths assigns each node the length of the longest edge path leading to it.
// Members of one strongly connected component share a depth.
func (g *Directed[K]) Depths() map[K]int {
	components := g.StronglyConnected()
	component := make([]int, len(g.nodes))
	for ci, c := range components {
		for _, k := range c {
			component[g.index[k]] = ci
		}
	}
	depth := make([]int, len(components))
	for ci, c := range components {
		for _, k := range c {
			for _, s := range g.succ[g.index[k]] {
				sc := component[s]
				if sc != ci && depth[ci]+1 > depth[sc] {
					depth[sc] = depth[ci] + 1
				}
			}
		}
	}
	out := make(map[K]int, len(g.nodes))
	for i, k := range g.nodes {
		out[k] = depth[component[i]]
	}
	return out
}

func (g *Directed[K]) id(k K) int {
	if i, ok := g.index[k]; ok {
		return i
	}
	i := len(g.nodes)
	g.nodes = append(g.nodes, k)
	g.index[k] = i
	g.succ = append(g.succ, nil)
	return i
}
