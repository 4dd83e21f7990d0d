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

import "errors"

var (
	// ErrUnknownRole returned for a role name outside the role table
	ErrUnknownRole = errors.New("unknown role")
	// ErrUnknownCommand returned for a command name outside the command table
	ErrUnknownCommand = errors.New("unknown role command")
	// ErrInvalidPair returned when a key is not of the form ROLE-COMMAND
	ErrInvalidPair = errors.New("invalid role command pair")
	// ErrMalformedRules returned when a rule artifact or raw rule map cannot be used, nothing is applied
	ErrMalformedRules = errors.New("malformed role command order rules")
	// ErrInvalidTopology returned when the cluster cannot be turned into a topology snapshot
	ErrInvalidTopology = errors.New("invalid cluster topology")
)
