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
)

// Service names used for topology decisions.
const (
	ServiceHDFS      = "HDFS"
	ServiceHCFS      = "HCFS"
	ServiceGlusterFS = "GLUSTERFS"
	ServiceYARN      = "YARN"
)

// Role is a cluster component type. The set is closed, names outside the table are rejected.
type Role int

const (
	ZOOKEEPER_SERVER Role = iota
	ZOOKEEPER_CLIENT
	ZOOKEEPER_SERVICE_CHECK
	NAMENODE
	DATANODE
	SECONDARY_NAMENODE
	JOURNALNODE
	ZKFC
	HDFS_CLIENT
	HDFS_SERVICE_CHECK
	NAMENODE_SERVICE_CHECK
	HCFS_CLIENT
	HCFS_SERVICE_CHECK
	PEERSTATUS
	GLUSTERFS_CLIENT
	GLUSTERFS_SERVICE_CHECK
	JOBTRACKER
	TASKTRACKER
	MAPREDUCE_CLIENT
	MAPREDUCE_SERVICE_CHECK
	RESOURCEMANAGER
	NODEMANAGER
	APP_TIMELINE_SERVER
	YARN_CLIENT
	YARN_SERVICE_CHECK
	RESOURCEMANAGER_SERVICE_CHECK
	HISTORYSERVER
	MAPREDUCE2_CLIENT
	MAPREDUCE2_SERVICE_CHECK
	HBASE_MASTER
	HBASE_REGIONSERVER
	HBASE_CLIENT
	HBASE_SERVICE_CHECK
	HIVE_METASTORE
	HIVE_SERVER
	HIVE_CLIENT
	HIVE_SERVICE_CHECK
	MYSQL_SERVER
	WEBHCAT_SERVER
	HCAT
	WEBHCAT_SERVICE_CHECK
	HCAT_SERVICE_CHECK
	OOZIE_SERVER
	OOZIE_CLIENT
	OOZIE_SERVICE_CHECK
	PIG
	PIG_SERVICE_CHECK
	SQOOP
	SQOOP_SERVICE_CHECK
	TEZ_CLIENT
	TEZ_SERVICE_CHECK
	FLUME_HANDLER
	FLUME_SERVICE_CHECK
	STORM_REST_API
	NIMBUS
	SUPERVISOR
	STORM_UI_SERVER
	DRPC_SERVER
	STORM_SERVICE_CHECK
	FALCON_SERVER
	FALCON_CLIENT
	FALCON_SERVICE_CHECK
	KAFKA_BROKER
	KAFKA_SERVICE_CHECK
	KNOX_GATEWAY
	KNOX_SERVICE_CHECK
	GANGLIA_SERVER
	GANGLIA_MONITOR
	NAGIOS_SERVER
	METRICS_COLLECTOR
	METRICS_MONITOR
	AMBARI_METRICS_SERVICE_CHECK
	RANGER_ADMIN
	RANGER_USERSYNC
	RANGER_KMS_SERVER
	RANGER_SERVICE_CHECK
	INFRA_SOLR
	INFRA_SOLR_CLIENT
	AMBARI_INFRA_SERVICE_CHECK
	LOGSEARCH_SERVER
	LOGSEARCH_LOGFEEDER
	LOGSEARCH_SERVICE_CHECK
	SPARK_JOBHISTORYSERVER
	SPARK_CLIENT
	SPARK_SERVICE_CHECK
	KERBEROS_CLIENT
	KERBEROS_SERVICE_CHECK
	AMBARI_SERVER_ACTION
	roleCount
)

type roleInfo struct {
	name    string
	service string
}

var roles = [roleCount]roleInfo{
	ZOOKEEPER_SERVER:              {"ZOOKEEPER_SERVER", "ZOOKEEPER"},
	ZOOKEEPER_CLIENT:              {"ZOOKEEPER_CLIENT", "ZOOKEEPER"},
	ZOOKEEPER_SERVICE_CHECK:       {"ZOOKEEPER_SERVICE_CHECK", "ZOOKEEPER"},
	NAMENODE:                      {"NAMENODE", ServiceHDFS},
	DATANODE:                      {"DATANODE", ServiceHDFS},
	SECONDARY_NAMENODE:            {"SECONDARY_NAMENODE", ServiceHDFS},
	JOURNALNODE:                   {"JOURNALNODE", ServiceHDFS},
	ZKFC:                          {"ZKFC", ServiceHDFS},
	HDFS_CLIENT:                   {"HDFS_CLIENT", ServiceHDFS},
	HDFS_SERVICE_CHECK:            {"HDFS_SERVICE_CHECK", ServiceHDFS},
	NAMENODE_SERVICE_CHECK:        {"NAMENODE_SERVICE_CHECK", ServiceHDFS},
	HCFS_CLIENT:                   {"HCFS_CLIENT", ServiceHCFS},
	HCFS_SERVICE_CHECK:            {"HCFS_SERVICE_CHECK", ServiceHCFS},
	PEERSTATUS:                    {"PEERSTATUS", ServiceHCFS},
	GLUSTERFS_CLIENT:              {"GLUSTERFS_CLIENT", ServiceGlusterFS},
	GLUSTERFS_SERVICE_CHECK:       {"GLUSTERFS_SERVICE_CHECK", ServiceGlusterFS},
	JOBTRACKER:                    {"JOBTRACKER", "MAPREDUCE"},
	TASKTRACKER:                   {"TASKTRACKER", "MAPREDUCE"},
	MAPREDUCE_CLIENT:              {"MAPREDUCE_CLIENT", "MAPREDUCE"},
	MAPREDUCE_SERVICE_CHECK:       {"MAPREDUCE_SERVICE_CHECK", "MAPREDUCE"},
	RESOURCEMANAGER:               {"RESOURCEMANAGER", ServiceYARN},
	NODEMANAGER:                   {"NODEMANAGER", ServiceYARN},
	APP_TIMELINE_SERVER:           {"APP_TIMELINE_SERVER", ServiceYARN},
	YARN_CLIENT:                   {"YARN_CLIENT", ServiceYARN},
	YARN_SERVICE_CHECK:            {"YARN_SERVICE_CHECK", ServiceYARN},
	RESOURCEMANAGER_SERVICE_CHECK: {"RESOURCEMANAGER_SERVICE_CHECK", ServiceYARN},
	HISTORYSERVER:                 {"HISTORYSERVER", "MAPREDUCE2"},
	MAPREDUCE2_CLIENT:             {"MAPREDUCE2_CLIENT", "MAPREDUCE2"},
	MAPREDUCE2_SERVICE_CHECK:      {"MAPREDUCE2_SERVICE_CHECK", "MAPREDUCE2"},
	HBASE_MASTER:                  {"HBASE_MASTER", "HBASE"},
	HBASE_REGIONSERVER:            {"HBASE_REGIONSERVER", "HBASE"},
	HBASE_CLIENT:                  {"HBASE_CLIENT", "HBASE"},
	HBASE_SERVICE_CHECK:           {"HBASE_SERVICE_CHECK", "HBASE"},
	HIVE_METASTORE:                {"HIVE_METASTORE", "HIVE"},
	HIVE_SERVER:                   {"HIVE_SERVER", "HIVE"},
	HIVE_CLIENT:                   {"HIVE_CLIENT", "HIVE"},
	HIVE_SERVICE_CHECK:            {"HIVE_SERVICE_CHECK", "HIVE"},
	MYSQL_SERVER:                  {"MYSQL_SERVER", "HIVE"},
	WEBHCAT_SERVER:                {"WEBHCAT_SERVER", "WEBHCAT"},
	HCAT:                          {"HCAT", "HCATALOG"},
	WEBHCAT_SERVICE_CHECK:         {"WEBHCAT_SERVICE_CHECK", "WEBHCAT"},
	HCAT_SERVICE_CHECK:            {"HCAT_SERVICE_CHECK", "HCATALOG"},
	OOZIE_SERVER:                  {"OOZIE_SERVER", "OOZIE"},
	OOZIE_CLIENT:                  {"OOZIE_CLIENT", "OOZIE"},
	OOZIE_SERVICE_CHECK:           {"OOZIE_SERVICE_CHECK", "OOZIE"},
	PIG:                           {"PIG", "PIG"},
	PIG_SERVICE_CHECK:             {"PIG_SERVICE_CHECK", "PIG"},
	SQOOP:                         {"SQOOP", "SQOOP"},
	SQOOP_SERVICE_CHECK:           {"SQOOP_SERVICE_CHECK", "SQOOP"},
	TEZ_CLIENT:                    {"TEZ_CLIENT", "TEZ"},
	TEZ_SERVICE_CHECK:             {"TEZ_SERVICE_CHECK", "TEZ"},
	FLUME_HANDLER:                 {"FLUME_HANDLER", "FLUME"},
	FLUME_SERVICE_CHECK:           {"FLUME_SERVICE_CHECK", "FLUME"},
	STORM_REST_API:                {"STORM_REST_API", "STORM"},
	NIMBUS:                        {"NIMBUS", "STORM"},
	SUPERVISOR:                    {"SUPERVISOR", "STORM"},
	STORM_UI_SERVER:               {"STORM_UI_SERVER", "STORM"},
	DRPC_SERVER:                   {"DRPC_SERVER", "STORM"},
	STORM_SERVICE_CHECK:           {"STORM_SERVICE_CHECK", "STORM"},
	FALCON_SERVER:                 {"FALCON_SERVER", "FALCON"},
	FALCON_CLIENT:                 {"FALCON_CLIENT", "FALCON"},
	FALCON_SERVICE_CHECK:          {"FALCON_SERVICE_CHECK", "FALCON"},
	KAFKA_BROKER:                  {"KAFKA_BROKER", "KAFKA"},
	KAFKA_SERVICE_CHECK:           {"KAFKA_SERVICE_CHECK", "KAFKA"},
	KNOX_GATEWAY:                  {"KNOX_GATEWAY", "KNOX"},
	KNOX_SERVICE_CHECK:            {"KNOX_SERVICE_CHECK", "KNOX"},
	GANGLIA_SERVER:                {"GANGLIA_SERVER", "GANGLIA"},
	GANGLIA_MONITOR:               {"GANGLIA_MONITOR", "GANGLIA"},
	NAGIOS_SERVER:                 {"NAGIOS_SERVER", "NAGIOS"},
	METRICS_COLLECTOR:             {"METRICS_COLLECTOR", "AMBARI_METRICS"},
	METRICS_MONITOR:               {"METRICS_MONITOR", "AMBARI_METRICS"},
	AMBARI_METRICS_SERVICE_CHECK:  {"AMBARI_METRICS_SERVICE_CHECK", "AMBARI_METRICS"},
	RANGER_ADMIN:                  {"RANGER_ADMIN", "RANGER"},
	RANGER_USERSYNC:               {"RANGER_USERSYNC", "RANGER"},
	RANGER_KMS_SERVER:             {"RANGER_KMS_SERVER", "RANGER_KMS"},
	RANGER_SERVICE_CHECK:          {"RANGER_SERVICE_CHECK", "RANGER"},
	INFRA_SOLR:                    {"INFRA_SOLR", "AMBARI_INFRA_SOLR"},
	INFRA_SOLR_CLIENT:             {"INFRA_SOLR_CLIENT", "AMBARI_INFRA_SOLR"},
	AMBARI_INFRA_SERVICE_CHECK:    {"AMBARI_INFRA_SERVICE_CHECK", "AMBARI_INFRA_SOLR"},
	LOGSEARCH_SERVER:              {"LOGSEARCH_SERVER", "LOGSEARCH"},
	LOGSEARCH_LOGFEEDER:           {"LOGSEARCH_LOGFEEDER", "LOGSEARCH"},
	LOGSEARCH_SERVICE_CHECK:       {"LOGSEARCH_SERVICE_CHECK", "LOGSEARCH"},
	SPARK_JOBHISTORYSERVER:        {"SPARK_JOBHISTORYSERVER", "SPARK"},
	SPARK_CLIENT:                  {"SPARK_CLIENT", "SPARK"},
	SPARK_SERVICE_CHECK:           {"SPARK_SERVICE_CHECK", "SPARK"},
	KERBEROS_CLIENT:               {"KERBEROS_CLIENT", "KERBEROS"},
	KERBEROS_SERVICE_CHECK:        {"KERBEROS_SERVICE_CHECK", "KERBEROS"},
	AMBARI_SERVER_ACTION:          {"AMBARI_SERVER_ACTION", "AMBARI"},
}

var roleByName = func() map[string]Role {
	m := make(map[string]Role, roleCount)
	for i := Role(0); i < roleCount; i++ {
		m[roles[i].name] = i
	}
	return m
}()

// ParseRole maps a role name onto the closed role table.
func ParseRole(name string) (Role, error) {
	r, ok := roleByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return r, nil
}

// Roles returns every known role in declaration order.
func Roles() []Role {
	out := make([]Role, 0, roleCount)
	for i := Role(0); i < roleCount; i++ {
		out = append(out, i)
	}
	return out
}

func (r Role) String() string {
	if !r.valid() {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roles[r].name
}

// Service is the name of the service that owns the role.
func (r Role) Service() string {
	if !r.valid() {
		return ""
	}
	return roles[r].service
}

// haOnly roles only exist in a NameNode HA deployment.
func (r Role) haOnly() bool {
	return r == JOURNALNODE || r == ZKFC
}

func (r Role) valid() bool {
	return r >= 0 && r < roleCount
}
