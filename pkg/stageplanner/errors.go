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
	"errors"
	"fmt"
	"strings"

	"github.com/apache/ambari-rco/pkg/rco"
)

var (
	ErrDependencyCycle = errors.New("dependency cycle in requested commands")
	ErrInvalidCommand  = errors.New("invalid execution command")
	ErrNoOrder         = errors.New("no role command order")
)

// CycleError lists the groups of requested pairs that block each other.
type CycleError struct {
	Members [][]rco.RoleCommandPair
}

func (e *CycleError) Error() string {
	groups := make([]string, 0, len(e.Members))
	for _, m := range e.Members {
		names := make([]string, 0, len(m))
		for _, p := range m {
			names = append(names, p.String())
		}
		groups = append(groups, "["+strings.Join(names, ", ")+"]")
	}
	return fmt.Sprintf("%v: %s", ErrDependencyCycle, strings.Join(groups, " "))
}

func (e *CycleError) Unwrap() error {
	return ErrDependencyCycle
}
