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

// RoleCommand is a lifecycle operation applied to a role.
type RoleCommand int

const (
	INSTALL RoleCommand = iota
	UNINSTALL
	START
	RESTART
	STOP
	EXECUTE
	ABORT
	UPGRADE
	SERVICE_CHECK
	CUSTOM_COMMAND
	ACTIONEXECUTE
	commandCount
)

var commandNames = [commandCount]string{
	INSTALL:        "INSTALL",
	UNINSTALL:      "UNINSTALL",
	START:          "START",
	RESTART:        "RESTART",
	STOP:           "STOP",
	EXECUTE:        "EXECUTE",
	ABORT:          "ABORT",
	UPGRADE:        "UPGRADE",
	SERVICE_CHECK:  "SERVICE_CHECK",
	CUSTOM_COMMAND: "CUSTOM_COMMAND",
	ACTIONEXECUTE:  "ACTIONEXECUTE",
}

var commandByName = func() map[string]RoleCommand {
	m := make(map[string]RoleCommand, commandCount)
	for i := RoleCommand(0); i < commandCount; i++ {
		m[commandNames[i]] = i
	}
	return m
}()

// ParseRoleCommand maps a command name onto the command table.
func ParseRoleCommand(name string) (RoleCommand, error) {
	c, ok := commandByName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
	return c, nil
}

func (c RoleCommand) String() string {
	if c < 0 || c >= commandCount {
		return fmt.Sprintf("RoleCommand(%d)", int(c))
	}
	return commandNames[c]
}

// lifecycle lists, per command, the commands of the same role that have to complete first when
// both are requested. RESTART is ordered as START before it gets here.
var lifecycle = map[RoleCommand][]RoleCommand{
	START:          {INSTALL, UPGRADE},
	EXECUTE:        {INSTALL, START},
	SERVICE_CHECK:  {INSTALL, START},
	CUSTOM_COMMAND: {INSTALL},
	UPGRADE:        {STOP},
	UNINSTALL:      {STOP},
}

// LifecyclePrecedes reports whether a has to complete before b because both target the same role
// and a is an earlier step of the component lifecycle: install before start, start before execute.
// It applies when no rule relates the two pairs.
func LifecyclePrecedes(a, b RoleCommandPair) bool {
	if a.Role != b.Role || a.Command == b.Command {
		return false
	}
	for _, c := range lifecycle[b.Command] {
		if c == a.Command {
			return true
		}
	}
	return false
}
