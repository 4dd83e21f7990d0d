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
	"testing"
	"testing/fstest"

	"gotest.tools/v3/assert"

	"github.com/apache/ambari-rco/pkg/stack"
)

var hdp206 = stack.ID{Name: "HDP", Version: "2.0.6"}

type testComponent int

func (c testComponent) HostCount() int {
	return int(c)
}

type testService map[string]testComponent

func (s testService) ServiceComponent(name string) (ServiceComponent, bool) {
	c, ok := s[name]
	if !ok {
		return nil, false
	}
	return c, true
}

type testCluster struct {
	id       stack.ID
	services map[string]testService
}

func (c *testCluster) CurrentStackVersion() stack.ID {
	return c.id
}

func (c *testCluster) Service(name string) (Service, bool) {
	s, ok := c.services[name]
	if !ok {
		return nil, false
	}
	return s, true
}

func newHDFSCluster(id stack.ID, ha bool) *testCluster {
	hdfs := testService{"NAMENODE": 1, "DATANODE": 3, "SECONDARY_NAMENODE": 1, "HDFS_CLIENT": 3}
	if ha {
		hdfs = testService{"NAMENODE": 2, "DATANODE": 3, "JOURNALNODE": 3, "ZKFC": 2, "HDFS_CLIENT": 3}
	}
	return &testCluster{
		id: id,
		services: map[string]testService{
			"HDFS":      hdfs,
			"ZOOKEEPER": {"ZOOKEEPER_SERVER": 3},
			"YARN":      {"RESOURCEMANAGER": 1, "NODEMANAGER": 3},
		},
	}
}

func newHCFSCluster(id stack.ID) *testCluster {
	return &testCluster{
		id: id,
		services: map[string]testService{
			"HCFS":      {"HCFS_CLIENT": 3},
			"ZOOKEEPER": {"ZOOKEEPER_SERVER": 3},
			"YARN":      {"RESOURCEMANAGER": 1, "NODEMANAGER": 3},
		},
	}
}

// testStacks has HDP-2.0.6 without an artifact, so the default rules apply,
// and a TEST lineage shipping its own rules.
func testStacks() fstest.MapFS {
	return fstest.MapFS{
		"HDP/2.0.6/metainfo.yaml": {Data: []byte("active: true\n")},
		"TEST/1.0/metainfo.yaml":  {Data: []byte("active: true\n")},
		"TEST/1.0/role_command_order.json": {Data: []byte(`{
  "general_deps": {
    "HBASE_MASTER-START": ["ZOOKEEPER_SERVER-START"]
  }
}`)},
		"TEST/1.1/metainfo.yaml": {Data: []byte("extends: \"1.0\"\n")},
		"TEST/1.1/role_command_order.json": {Data: []byte(`{
  "general": {
    "HBASE_MASTER-START": [{"role": "MYSQL_SERVER", "cmd": "START"}],
    "HBASE_REGIONSERVER-START": ["HBASE_MASTER-START"]
  }
}`)},
		"TEST/1.2/metainfo.yaml": {Data: []byte("extends: \"1.1\"\n")},
		"CYCLE/1.0/metainfo.yaml": {Data: []byte("")},
		"CYCLE/1.0/role_command_order.json": {Data: []byte(`{
  "general": {
    "HBASE_MASTER-START": ["HBASE_REGIONSERVER-START"],
    "HBASE_REGIONSERVER-START": ["HBASE_MASTER-START"],
    "HBASE_SERVICE_CHECK-SERVICE_CHECK": ["HBASE_MASTER-START"]
  }
}`)},
		"BROKEN/1.0/metainfo.yaml": {Data: []byte("")},
		"BROKEN/1.0/role_command_order.json": {Data: []byte(`{
  "general": {
    "UNKNOWN_ROLE-START": ["HBASE_MASTER-START"]
  }
}`)},
	}
}

func newTestStore(t *testing.T) *RuleStore {
	registry, err := stack.LoadRegistry(testStacks())
	assert.NilError(t, err)
	return NewRuleStore(registry)
}

func newTestOrder(t *testing.T, cluster Cluster) *RoleCommandOrder {
	o := New(newTestStore(t))
	if cluster != nil {
		assert.NilError(t, o.Initialize(context.Background(), cluster))
	}
	return o
}

func pair(t *testing.T, key string) RoleCommandPair {
	p, err := ParsePair(key)
	assert.NilError(t, err)
	return p
}
