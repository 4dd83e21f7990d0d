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
	"sort"
	"strings"
)

// RoleCommandPair is the scheduling key of an operation. It is comparable and used as a map key.
type RoleCommandPair struct {
	Role    Role
	Command RoleCommand
}

func NewPair(role Role, cmd RoleCommand) RoleCommandPair {
	return RoleCommandPair{Role: role, Command: cmd}
}

// ParsePair parses the "ROLE-CMD" form. Role names may not contain a dash, commands never do,
// the split happens at the last dash.
func ParsePair(key string) (RoleCommandPair, error) {
	idx := strings.LastIndex(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return RoleCommandPair{}, fmt.Errorf("%w: %q", ErrInvalidPair, key)
	}
	return parseParts(key[:idx], key[idx+1:])
}

func parseParts(role, cmd string) (RoleCommandPair, error) {
	r, err := ParseRole(role)
	if err != nil {
		return RoleCommandPair{}, err
	}
	c, err := ParseRoleCommand(cmd)
	if err != nil {
		return RoleCommandPair{}, err
	}
	return RoleCommandPair{Role: r, Command: c}, nil
}

func (p RoleCommandPair) String() string {
	return p.Role.String() + "-" + p.Command.String()
}

// less orders pairs by role then command, used for stable output.
func (p RoleCommandPair) less(o RoleCommandPair) bool {
	if p.Role != o.Role {
		return p.Role < o.Role
	}
	return p.Command < o.Command
}

func sortPairs(pairs []RoleCommandPair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].less(pairs[j])
	})
}

func pairStrings(pairs []RoleCommandPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.String()
	}
	return out
}
