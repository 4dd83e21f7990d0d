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
	"context"
	"testing"
	"testing/fstest"

	"gotest.tools/v3/assert"

	"github.com/apache/ambari-rco/pkg/cluster"
	"github.com/apache/ambari-rco/pkg/common/configs"
	"github.com/apache/ambari-rco/pkg/rco"
	"github.com/apache/ambari-rco/pkg/stack"
)

func hdfsCluster(t *testing.T) *cluster.Cluster {
	c, err := cluster.New(configs.ClusterConfig{
		Name:  "c1",
		Stack: "HDP-2.0.6",
		Services: []configs.ServiceConfig{
			{Name: "HDFS", Components: []configs.ComponentConfig{
				{Name: "NAMENODE", Hosts: []string{"host1"}},
				{Name: "DATANODE", Hosts: []string{"host2", "host3"}},
				{Name: "SECONDARY_NAMENODE", Hosts: []string{"host1"}},
			}},
			{Name: "ZOOKEEPER", Components: []configs.ComponentConfig{
				{Name: "ZOOKEEPER_SERVER", Hosts: []string{"host3"}},
			}},
			{Name: "HBASE", Components: []configs.ComponentConfig{
				{Name: "HBASE_MASTER", Hosts: []string{"host2"}},
				{Name: "HBASE_REGIONSERVER", Hosts: []string{"host4"}},
			}},
		},
	})
	assert.NilError(t, err)
	return c
}

// newOrder returns an order initialized with the default rules for an HDFS cluster.
func newOrder(t *testing.T) *rco.RoleCommandOrder {
	registry, err := stack.LoadRegistry(fstest.MapFS{
		"HDP/2.0.6/metainfo.yaml": {Data: []byte("active: true\n")},
	})
	assert.NilError(t, err)
	o := rco.New(rco.NewRuleStore(registry))
	assert.NilError(t, o.Initialize(context.Background(), hdfsCluster(t)))
	return o
}

func cmd(t *testing.T, host, role, command string) Command {
	c, err := ParseCommand(host, role, command)
	assert.NilError(t, err)
	return c
}

func pair(t *testing.T, key string) rco.RoleCommandPair {
	p, err := rco.ParsePair(key)
	assert.NilError(t, err)
	return p
}

func stagePairs(stages []*Stage) [][]string {
	out := make([][]string, 0, len(stages))
	for _, s := range stages {
		var names []string
		for _, p := range s.Pairs() {
			names = append(names, p.String())
		}
		out = append(out, names)
	}
	return out
}
