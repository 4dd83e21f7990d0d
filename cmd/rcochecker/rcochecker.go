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
	"log"
	"os"
	"strings"

	"github.com/apache/ambari-rco/pkg/common/graph"
	"github.com/apache/ambari-rco/pkg/rco"
)

/*
A utility command to load a role command order file and check its validity.
The rules are checked for dependency cycles in every cluster topology they can be selected for.
*/
func main() {
	if len(os.Args) != 2 {
		log.Println("Usage: " + os.Args[0] + " <role-command-order-file>")
		os.Exit(1)
	}
	rulesFile := os.Args[1]
	content, err := os.ReadFile(rulesFile)
	if err != nil {
		log.Println(err)
		os.Exit(2)
	}
	rules, err := rco.ParseRules(content)
	if err != nil {
		log.Println(err)
		os.Exit(3)
	}
	cyclic := false
	for _, t := range topologies() {
		for _, c := range cycles(rules.Select(t)) {
			cyclic = true
			log.Printf("%s: dependency cycle %s\n", t, strings.Join(c, ", "))
		}
	}
	if cyclic {
		os.Exit(4)
	}
	log.Printf("%s: %d blocked role commands\n", rulesFile, rules.Len())
}

// topologies lists every combination of the facts that select rule sections.
// HCFS clusters have no NameNode so no NameNode HA either.
func topologies() []rco.Topology {
	var out []rco.Topology
	for _, rmHA := range []bool{false, true} {
		out = append(out,
			rco.Topology{FileSystem: rco.FileSystemHDFS, ResourceManagerHA: rmHA},
			rco.Topology{FileSystem: rco.FileSystemHDFS, NameNodeHA: true, ResourceManagerHA: rmHA},
			rco.Topology{FileSystem: rco.FileSystemHCFS, ResourceManagerHA: rmHA})
	}
	return out
}

func cycles(rules rco.Rules) [][]string {
	g := graph.New[rco.RoleCommandPair]()
	for _, blocked := range rules.Keys() {
		for _, blocker := range rules[blocked] {
			g.AddEdge(blocker, blocked)
		}
	}
	var out [][]string
	for _, c := range g.Cycles() {
		names := make([]string, 0, len(c))
		for _, p := range c {
			names = append(names, p.String())
		}
		out = append(out, names)
	}
	return out
}
