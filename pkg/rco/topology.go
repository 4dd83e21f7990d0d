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
	"fmt"

	"github.com/apache/ambari-rco/pkg/stack"
)

// Cluster is the part of the cluster model the role command order needs.
type Cluster interface {
	CurrentStackVersion() stack.ID
	Service(name string) (Service, bool)
}

type Service interface {
	ServiceComponent(name string) (ServiceComponent, bool)
}

type ServiceComponent interface {
	HostCount() int
}

// FileSystem is the distributed file system the cluster runs.
type FileSystem int

const (
	FileSystemHDFS FileSystem = iota
	FileSystemHCFS
)

func (fs FileSystem) String() string {
	if fs == FileSystemHCFS {
		return ServiceHCFS
	}
	return ServiceHDFS
}

// Topology is the snapshot of the facts that select and prune the dependency rules.
// It is computed once and never changes.
type Topology struct {
	StackID           stack.ID
	FileSystem        FileSystem
	NameNodeHA        bool
	ResourceManagerHA bool
}

// NewTopology inspects the cluster. A cluster cannot run HDFS next to HCFS.
func NewTopology(cluster Cluster) (Topology, error) {
	if cluster == nil {
		return Topology{}, fmt.Errorf("%w: no cluster", ErrInvalidTopology)
	}
	t := Topology{
		StackID: cluster.CurrentStackVersion(),
	}
	if t.StackID.IsZero() {
		return Topology{}, fmt.Errorf("%w: cluster has no current stack version", ErrInvalidTopology)
	}
	hdfs, hasHDFS := cluster.Service(ServiceHDFS)
	_, hasHCFS := cluster.Service(ServiceHCFS)
	if !hasHCFS {
		_, hasHCFS = cluster.Service(ServiceGlusterFS)
	}
	if hasHDFS && hasHCFS {
		return Topology{}, fmt.Errorf("%w: cluster runs both %s and %s", ErrInvalidTopology, ServiceHDFS, ServiceHCFS)
	}
	if hasHCFS {
		t.FileSystem = FileSystemHCFS
	}
	if hasHDFS {
		_, t.NameNodeHA = hdfs.ServiceComponent(JOURNALNODE.String())
	}
	if yarn, ok := cluster.Service(ServiceYARN); ok {
		if rm, ok := yarn.ServiceComponent(RESOURCEMANAGER.String()); ok {
			t.ResourceManagerHA = rm.HostCount() > 1
		}
	}
	return t, nil
}

// applies decides whether a rule section is part of the rule set for this topology.
func (t Topology) applies(section Section) bool {
	switch section {
	case SectionGeneral:
		return true
	case SectionHDFS:
		return t.FileSystem == FileSystemHDFS
	case SectionHCFS:
		return t.FileSystem == FileSystemHCFS
	case SectionNameNodeHA:
		return t.FileSystem == FileSystemHDFS && t.NameNodeHA
	case SectionResourceManagerHA:
		return t.ResourceManagerHA
	}
	return false
}

// excludes reports roles that cannot exist in this topology.
func (t Topology) excludes(r Role) bool {
	switch r.Service() {
	case ServiceHDFS:
		if t.FileSystem == FileSystemHCFS {
			return true
		}
	case ServiceHCFS, ServiceGlusterFS:
		return t.FileSystem == FileSystemHDFS
	}
	return r.haOnly() && !t.NameNodeHA
}

func (t Topology) String() string {
	return fmt.Sprintf("stack=%s fs=%s namenodeHA=%t resourcemanagerHA=%t",
		t.StackID, t.FileSystem, t.NameNodeHA, t.ResourceManagerHA)
}
