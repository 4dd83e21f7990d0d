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
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"

	"github.com/apache/ambari-rco/pkg/stack"
)

func TestDependenciesBeforeInitialize(t *testing.T) {
	o := newTestOrder(t, nil)
	assert.Assert(t, !o.Initialized())
	assert.Equal(t, 0, len(o.Dependencies()))
	assert.Equal(t, Topology{}, o.Topology())

	a := pair(t, "DATANODE-UPGRADE")
	b := pair(t, "HDFS_CLIENT-UPGRADE")
	assert.Equal(t, 0, o.Order(a, a))
	assert.Assert(t, o.Order(a, b) != 0, "distinct pairs must be ordered")
	assert.Equal(t, -o.Order(a, b), o.Order(b, a))
	assert.Assert(t, !o.Precedes(a, b))

	o = newTestOrder(t, newHDFSCluster(hdp206, false))
	assert.Assert(t, o.Initialized())
	assert.Assert(t, len(o.Dependencies()) > 0)
}

func TestInitializeHCFS(t *testing.T) {
	o := newTestOrder(t, newHCFSCluster(hdp206))
	deps := o.Dependencies()
	for _, r := range []Role{DATANODE, NAMENODE, SECONDARY_NAMENODE, JOURNALNODE, NAMENODE_SERVICE_CHECK, HDFS_SERVICE_CHECK, HDFS_CLIENT} {
		assert.Assert(t, !deps.References(r), "HCFS cluster has a rule referencing %s", r)
	}
	assert.Assert(t, deps.References(PEERSTATUS))
	assert.Equal(t, FileSystemHCFS, o.Topology().FileSystem)
}

func TestInitializeHDFSWithoutHA(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(hdp206, false))
	deps := o.Dependencies()
	for blocked, blockers := range deps {
		assert.Assert(t, blocked.Role != ZKFC, "ZKFC blocked entry %s without HA", blocked)
		for _, b := range blockers {
			assert.Assert(t, b.Role != JOURNALNODE, "JOURNALNODE blocks %s without HA", blocked)
		}
	}
	assert.Assert(t, deps.References(DATANODE))
	assert.Assert(t, !o.Topology().NameNodeHA)
}

func TestInitializeHDFSWithHA(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(hdp206, true))
	deps := o.Dependencies()
	var journalBlocker, zkfcBlocked bool
	for blocked, blockers := range deps {
		if blocked.Role == ZKFC {
			zkfcBlocked = true
		}
		for _, b := range blockers {
			if b.Role == JOURNALNODE {
				journalBlocker = true
			}
		}
	}
	assert.Assert(t, journalBlocker, "JOURNALNODE must block with HA")
	assert.Assert(t, zkfcBlocked, "ZKFC must be blocked with HA")
	expected := []RoleCommandPair{NewPair(ZOOKEEPER_SERVER, START), NewPair(JOURNALNODE, START), NewPair(ZKFC, START)}
	if diff := cmp.Diff(expected, deps[NewPair(NAMENODE, START)]); diff != "" {
		t.Errorf("unexpected NAMENODE-START blockers (-want +got):\n%s", diff)
	}
	assert.Equal(t, -1, o.Order(pair(t, "ZKFC-START"), pair(t, "NAMENODE-START")))
	assert.Equal(t, 1, o.Order(pair(t, "ZKFC-STOP"), pair(t, "NAMENODE-STOP")))
}

func TestInitializeResourceManagerHA(t *testing.T) {
	cluster := newHDFSCluster(hdp206, false)
	cluster.services["YARN"] = testService{"RESOURCEMANAGER": 2, "NODEMANAGER": 3}
	o := newTestOrder(t, cluster)
	assert.Assert(t, o.Topology().ResourceManagerHA)
	assert.Assert(t, o.Precedes(pair(t, "ZOOKEEPER_SERVER-START"), pair(t, "RESOURCEMANAGER-START")))
}

func TestOrderScenario(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(hdp206, false))
	assert.Equal(t, -1, o.Order(pair(t, "DATANODE-UPGRADE"), pair(t, "HDFS_CLIENT-UPGRADE")))
	assert.Equal(t, 1, o.Order(pair(t, "HDFS_CLIENT-UPGRADE"), pair(t, "DATANODE-UPGRADE")))
	assert.Equal(t, -1, o.Order(pair(t, "NAMENODE-UPGRADE"), pair(t, "GANGLIA_SERVER-UPGRADE")))
	assert.Equal(t, 0, o.Order(pair(t, "JOBTRACKER-START"), pair(t, "JOBTRACKER-START")))
}

func TestUpgradeChainSection(t *testing.T) {
	set, err := DefaultRules()
	assert.NilError(t, err)
	for _, blocked := range set.Section(SectionGeneral).Keys() {
		assert.Assert(t, blocked.Command != UPGRADE, "general section holds upgrade rule %s", blocked)
	}
	hdfs := set.Section(SectionHDFS)
	ganglia := hdfs[NewPair(GANGLIA_SERVER, UPGRADE)]
	assert.Equal(t, 2, len(ganglia))
	assert.Assert(t, containsPair(ganglia, NewPair(NAMENODE, UPGRADE)))
	assert.Assert(t, containsPair(ganglia, NewPair(NAGIOS_SERVER, UPGRADE)))
	assert.Assert(t, containsPair(hdfs[NewPair(HDFS_CLIENT, UPGRADE)], NewPair(DATANODE, UPGRADE)))

	// the chain is only selected with HDFS
	upgrades := func(rules Rules) int {
		n := 0
		for _, blocked := range rules.Keys() {
			if blocked.Command == UPGRADE {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 0, upgrades(newTestOrder(t, newHCFSCluster(hdp206)).Dependencies()))
	assert.Assert(t, upgrades(newTestOrder(t, newHDFSCluster(hdp206, false)).Dependencies()) > 0)
}

func TestOrderIsStrictTotalOrder(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(hdp206, true))
	seen := map[RoleCommandPair]bool{
		NewPair(AMBARI_SERVER_ACTION, ACTIONEXECUTE): true,
		NewPair(KERBEROS_CLIENT, CUSTOM_COMMAND):     true,
	}
	for blocked, blockers := range o.Dependencies() {
		seen[blocked] = true
		for _, b := range blockers {
			seen[b] = true
		}
	}
	pairs := make([]RoleCommandPair, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	for _, a := range pairs {
		assert.Equal(t, 0, o.Order(a, a))
		for _, b := range pairs {
			if a == b {
				continue
			}
			ab := o.Order(a, b)
			assert.Assert(t, ab == -1 || ab == 1, "%s vs %s returned %d", a, b, ab)
			assert.Equal(t, -ab, o.Order(b, a), "antisymmetry broken for %s and %s", a, b)
			if o.Precedes(a, b) {
				assert.Equal(t, -1, ab, "%s blocks %s but is not ordered first", a, b)
			}
		}
	}
	// transitivity over a sample
	sample := pairs
	if len(sample) > 40 {
		sample = sample[:40]
	}
	for _, a := range sample {
		for _, b := range sample {
			for _, c := range sample {
				if o.Order(a, b) < 0 && o.Order(b, c) < 0 {
					assert.Equal(t, -1, o.Order(a, c), "transitivity broken for %s < %s < %s", a, b, c)
				}
			}
		}
	}
}

func TestTransitiveBlockers(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(hdp206, false))
	blockers := o.TransitiveBlockers(pair(t, "HDFS_CLIENT-UPGRADE"))
	expected := []RoleCommandPair{NewPair(NAMENODE, UPGRADE), NewPair(DATANODE, UPGRADE), NewPair(SECONDARY_NAMENODE, UPGRADE)}
	if diff := cmp.Diff(expected, blockers); diff != "" {
		t.Errorf("unexpected transitive blockers (-want +got):\n%s", diff)
	}
	assert.Assert(t, o.Precedes(pair(t, "NAMENODE-UPGRADE"), pair(t, "HDFS_CLIENT-UPGRADE")))
	assert.Assert(t, !o.Precedes(pair(t, "HDFS_CLIENT-UPGRADE"), pair(t, "NAMENODE-UPGRADE")))
	assert.Equal(t, 0, len(o.TransitiveBlockers(pair(t, "NAMENODE-UPGRADE"))))
}

func TestAddDependenciesUnion(t *testing.T) {
	o := newTestOrder(t, nil)
	err := o.AddDependencies(map[string]interface{}{
		"HBASE_MASTER-START": []interface{}{map[string]interface{}{"role": "ZOOKEEPER_SERVER", "cmd": "START"}},
	})
	assert.NilError(t, err)
	err = o.AddDependencies(map[string]interface{}{
		"HBASE_MASTER-START": []interface{}{
			map[string]interface{}{"role": "ZOOKEEPER_SERVER", "cmd": "START"},
			map[string]interface{}{"role": "MYSQL_SERVER", "cmd": "START"},
		},
		"HBASE_REGIONSERVER-START": []interface{}{"HBASE_MASTER-START"},
	})
	assert.NilError(t, err)
	expected := Rules{
		NewPair(HBASE_MASTER, START):       {NewPair(ZOOKEEPER_SERVER, START), NewPair(MYSQL_SERVER, START)},
		NewPair(HBASE_REGIONSERVER, START): {NewPair(HBASE_MASTER, START)},
	}
	if diff := cmp.Diff(expected, o.Dependencies()); diff != "" {
		t.Errorf("blockers not unioned (-want +got):\n%s", diff)
	}
	assert.Assert(t, o.Precedes(pair(t, "ZOOKEEPER_SERVER-START"), pair(t, "HBASE_REGIONSERVER-START")))

	// nothing applied from a malformed section
	err = o.AddDependencies(map[string]interface{}{
		"HIVE_SERVER-START": []interface{}{"MYSQL_SERVER-START"},
		"OOZIE_SERVER-START": []interface{}{"GHOST-START"},
	})
	assert.Assert(t, errors.Is(err, ErrMalformedRules))
	assert.Assert(t, errors.Is(err, ErrUnknownRole))
	assert.Equal(t, 2, len(o.Dependencies()))
}

func TestDependenciesSnapshot(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(hdp206, false))
	deps := o.Dependencies()
	key := NewPair(HDFS_CLIENT, UPGRADE)
	deps[key] = nil
	delete(deps, NewPair(DATANODE, UPGRADE))
	assert.Equal(t, 1, len(o.Dependencies()[key]))
	assert.Assert(t, o.Precedes(pair(t, "DATANODE-UPGRADE"), key))
}

func TestReinitializeDropsAddedDependencies(t *testing.T) {
	cluster := newHDFSCluster(hdp206, false)
	o := newTestOrder(t, cluster)
	extra := NewPair(KAFKA_BROKER, START)
	err := o.AddDependencies(map[string]interface{}{
		"KAFKA_BROKER-START": []string{"RANGER_ADMIN-START"},
	})
	assert.NilError(t, err)
	assert.Assert(t, containsPair(o.Dependencies()[extra], NewPair(RANGER_ADMIN, START)))

	assert.NilError(t, o.Initialize(context.Background(), cluster))
	assert.Assert(t, !containsPair(o.Dependencies()[extra], NewPair(RANGER_ADMIN, START)), "added dependency survived initialize")
}

func TestInitializeErrors(t *testing.T) {
	o := newTestOrder(t, nil)
	err := o.Initialize(context.Background(), nil)
	assert.Assert(t, errors.Is(err, ErrInvalidTopology))

	err = o.Initialize(context.Background(), &testCluster{})
	assert.Assert(t, errors.Is(err, ErrInvalidTopology))

	both := newHDFSCluster(hdp206, false)
	both.services["HCFS"] = testService{"HCFS_CLIENT": 1}
	err = o.Initialize(context.Background(), both)
	assert.Assert(t, errors.Is(err, ErrInvalidTopology))

	err = o.Initialize(context.Background(), newHDFSCluster(stack.ID{Name: "HDP", Version: "9.9"}, false))
	assert.Assert(t, errors.Is(err, stack.ErrUnknownStack), "unknown stack must be fatal, got %v", err)
	assert.Assert(t, !o.Initialized())

	err = New(nil).Initialize(context.Background(), newHDFSCluster(hdp206, false))
	assert.ErrorContains(t, err, "no rule loader")
}

func TestInitializeWithRuleCycle(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(stack.ID{Name: "CYCLE", Version: "1.0"}, false))
	cycles := o.Cycles()
	assert.Equal(t, 1, len(cycles))
	assert.DeepEqual(t, []RoleCommandPair{NewPair(HBASE_MASTER, START), NewPair(HBASE_REGIONSERVER, START)}, cycles[0])
	master := pair(t, "HBASE_MASTER-START")
	region := pair(t, "HBASE_REGIONSERVER-START")
	assert.Assert(t, o.Precedes(master, region) && o.Precedes(region, master))
	// still a consistent order for sorting
	assert.Equal(t, -o.Order(master, region), o.Order(region, master))
	assert.Equal(t, -1, o.Order(master, pair(t, "HBASE_SERVICE_CHECK-SERVICE_CHECK")))
}

func TestConcurrentAddAndOrder(t *testing.T) {
	o := newTestOrder(t, newHDFSCluster(hdp206, false))
	a := pair(t, "DATANODE-UPGRADE")
	b := pair(t, "HDFS_CLIENT-UPGRADE")
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if o.Order(a, b) != -1 {
					t.Error("order changed while adding unrelated rules")
					return
				}
			}
		}()
		go func() {
			defer wg.Done()
			if err := o.AddDependencies(map[string]interface{}{"KAFKA_BROKER-START": []string{"RANGER_ADMIN-START"}}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	assert.Assert(t, o.Precedes(pair(t, "RANGER_ADMIN-START"), pair(t, "KAFKA_BROKER-START")))
}
