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

package stack

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MetaInfoFile describes a stack version, it must exist for the version to be registered.
	MetaInfoFile = "metainfo.yaml"
	// RoleCommandOrderFile holds the optional dependency rules of a stack version.
	RoleCommandOrderFile = "role_command_order.json"
)

var (
	// ErrInvalidStackID returned when a stack id cannot be split into name and version
	ErrInvalidStackID = errors.New("invalid stack id, expected <name>-<version>")
	// ErrUnknownStack returned when the stack version is not registered
	ErrUnknownStack = errors.New("unknown stack version")
	// ErrStackDefinition returned when the stack metadata is inconsistent
	ErrStackDefinition = errors.New("invalid stack definition")
)

// ID identifies a stack version, for example HDP-2.0.6.
type ID struct {
	Name    string
	Version string
}

// ParseID splits a stack id at the first dash: "HDP-2.0.6" becomes HDP and 2.0.6.
func ParseID(id string) (ID, error) {
	idx := strings.Index(id, "-")
	if idx <= 0 || idx == len(id)-1 {
		return ID{}, fmt.Errorf("%w: %q", ErrInvalidStackID, id)
	}
	return ID{
		Name:    id[:idx],
		Version: id[idx+1:],
	}, nil
}

func (id ID) String() string {
	if id.IsZero() {
		return ""
	}
	return id.Name + "-" + id.Version
}

func (id ID) IsZero() bool {
	return id.Name == "" || id.Version == ""
}

// Stack is one registered stack version.
type Stack struct {
	ID     ID
	Parent *ID
	Active bool
	dir    string
}

func (s *Stack) String() string {
	return s.ID.String()
}

// RuleFile is the path of the role command order artifact inside the registry file system.
func (s *Stack) RuleFile() string {
	return s.dir + "/" + RoleCommandOrderFile
}
