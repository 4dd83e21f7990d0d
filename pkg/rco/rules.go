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

	"gopkg.in/yaml.v3"
)

// Section is the canonical name of a rule section.
type Section string

const (
	SectionGeneral           Section = "general"
	SectionHDFS              Section = "hdfs"
	SectionHCFS              Section = "hcfs"
	SectionNameNodeHA        Section = "namenode_ha"
	SectionResourceManagerHA Section = "resourcemanager_ha"
)

// sections in merge order
var sections = []Section{SectionGeneral, SectionHDFS, SectionHCFS, SectionNameNodeHA, SectionResourceManagerHA}

var sectionAliases = map[string]Section{
	"general":                     SectionGeneral,
	"general_deps":                SectionGeneral,
	"hdfs":                        SectionHDFS,
	"optional_no_hcfs":            SectionHDFS,
	"optional_no_glusterfs":       SectionHDFS,
	"hcfs":                        SectionHCFS,
	"optional_hcfs":               SectionHCFS,
	"optional_glusterfs":          SectionHCFS,
	"namenode_ha":                 SectionNameNodeHA,
	"namenode_optional_ha":        SectionNameNodeHA,
	"resourcemanager_ha":          SectionResourceManagerHA,
	"resourcemanager_optional_ha": SectionResourceManagerHA,
}

// ParseSection resolves a section name or one of its aliases.
func ParseSection(name string) (Section, error) {
	s, ok := sectionAliases[name]
	if !ok {
		return "", fmt.Errorf("%w: unknown section %q", ErrMalformedRules, name)
	}
	return s, nil
}

const (
	roleKey    = "role"
	commandKey = "cmd"
)

// isComment reports keys that are documentation only.
func isComment(key string) bool {
	return strings.HasPrefix(key, "_")
}

// Rules maps a blocked pair onto the pairs that must complete first.
// Blockers keep their first insertion order and are never duplicated.
type Rules map[RoleCommandPair][]RoleCommandPair

// Add adds the blockers of a blocked pair, existing blockers are kept.
func (r Rules) Add(blocked RoleCommandPair, blockers ...RoleCommandPair) {
	existing := r[blocked]
	for _, b := range blockers {
		if !containsPair(existing, b) {
			existing = append(existing, b)
		}
	}
	if len(existing) > 0 {
		r[blocked] = existing
	}
}

// Merge adds all rules of other.
func (r Rules) Merge(other Rules) {
	for _, blocked := range other.Keys() {
		r.Add(blocked, other[blocked]...)
	}
}

// Keys returns the blocked pairs in role and command order.
func (r Rules) Keys() []RoleCommandPair {
	keys := make([]RoleCommandPair, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sortPairs(keys)
	return keys
}

// Clone returns a deep copy with sorted blocker lists.
func (r Rules) Clone() Rules {
	out := make(Rules, len(r))
	for k, v := range r {
		blockers := make([]RoleCommandPair, len(v))
		copy(blockers, v)
		sortPairs(blockers)
		out[k] = blockers
	}
	return out
}

// References reports whether the role is used as blocked or blocker.
func (r Rules) References(role Role) bool {
	for blocked, blockers := range r {
		if blocked.Role == role {
			return true
		}
		for _, b := range blockers {
			if b.Role == role {
				return true
			}
		}
	}
	return false
}

func containsPair(pairs []RoleCommandPair, p RoleCommandPair) bool {
	for _, e := range pairs {
		if e == p {
			return true
		}
	}
	return false
}

// RuleSet is a parsed rule artifact, rules are kept per canonical section.
type RuleSet struct {
	sections map[Section]Rules
}

func NewRuleSet() *RuleSet {
	return &RuleSet{
		sections: make(map[Section]Rules),
	}
}

// Section returns a copy of the rules of one section.
func (s *RuleSet) Section(section Section) Rules {
	rules, ok := s.sections[section]
	if !ok {
		return Rules{}
	}
	return rules.Clone()
}

// Sections returns the sections that hold rules, in merge order.
func (s *RuleSet) Sections() []Section {
	var out []Section
	for _, section := range sections {
		if len(s.sections[section]) > 0 {
			out = append(out, section)
		}
	}
	return out
}

// Len is the number of blocked pairs over all sections.
func (s *RuleSet) Len() int {
	n := 0
	for _, rules := range s.sections {
		n += len(rules)
	}
	return n
}

func (s *RuleSet) add(section Section, blocked RoleCommandPair, blockers ...RoleCommandPair) {
	rules, ok := s.sections[section]
	if !ok {
		rules = Rules{}
		s.sections[section] = rules
	}
	rules.Add(blocked, blockers...)
}

// Clone returns a deep copy of the rule set.
func (s *RuleSet) Clone() *RuleSet {
	out := NewRuleSet()
	for section, rules := range s.sections {
		out.sections[section] = rules.Clone()
	}
	return out
}

// Merge adds all rules of other into the rule set, blocker sets are unioned.
func (s *RuleSet) Merge(other *RuleSet) {
	if other == nil {
		return
	}
	for _, section := range sections {
		if rules, ok := other.sections[section]; ok {
			for _, blocked := range rules.Keys() {
				s.add(section, blocked, rules[blocked]...)
			}
		}
	}
}

// Select returns the rules that apply to the topology. Sections that do not apply are skipped and
// any rule with a blocked or blocker role that cannot exist in the topology is dropped.
func (s *RuleSet) Select(t Topology) Rules {
	out := Rules{}
	for _, section := range sections {
		if !t.applies(section) {
			continue
		}
		rules := s.sections[section]
		for _, blocked := range rules.Keys() {
			if t.excludes(blocked.Role) {
				continue
			}
			for _, blocker := range rules[blocked] {
				if !t.excludes(blocker.Role) {
					out.Add(blocked, blocker)
				}
			}
		}
	}
	return out
}

// ParseRules decodes a rule artifact. The artifact is JSON, decoded through the YAML parser to keep
// line information for errors. Either the complete artifact is returned or an ErrMalformedRules error.
func ParseRules(content []byte) (*RuleSet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRules, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedRules)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nodeError(root, "top level must be an object of sections")
	}
	set := NewRuleSet()
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if isComment(key.Value) {
			continue
		}
		section, err := ParseSection(key.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
		if value.Kind != yaml.MappingNode {
			return nil, nodeError(value, "section %q must be an object", key.Value)
		}
		if err = parseSection(set, section, value); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func parseSection(set *RuleSet, section Section, node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if isComment(key.Value) {
			continue
		}
		blocked, err := ParsePair(key.Value)
		if err != nil {
			return wrapNodeError(key, err)
		}
		if value.Kind != yaml.SequenceNode {
			return nodeError(value, "blockers of %s must be a list", blocked)
		}
		blockers := make([]RoleCommandPair, 0, len(value.Content))
		for _, item := range value.Content {
			blocker, err := parseBlockerNode(item)
			if err != nil {
				return err
			}
			if blocker == blocked {
				return nodeError(item, "%s cannot block itself", blocked)
			}
			blockers = append(blockers, blocker)
		}
		set.add(section, blocked, blockers...)
	}
	return nil
}

// parseBlockerNode accepts {"role": R, "cmd": C} or "R-C".
func parseBlockerNode(node *yaml.Node) (RoleCommandPair, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		p, err := ParsePair(node.Value)
		if err != nil {
			return RoleCommandPair{}, wrapNodeError(node, err)
		}
		return p, nil
	case yaml.MappingNode:
		var role, cmd string
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return RoleCommandPair{}, nodeError(value, "blocker field %q must be a string", key.Value)
			}
			switch {
			case key.Value == roleKey:
				role = value.Value
			case key.Value == commandKey:
				cmd = value.Value
			case isComment(key.Value):
			default:
				return RoleCommandPair{}, nodeError(key, "unknown blocker field %q", key.Value)
			}
		}
		if role == "" || cmd == "" {
			return RoleCommandPair{}, nodeError(node, "blocker needs both %q and %q", roleKey, commandKey)
		}
		p, err := parseParts(role, cmd)
		if err != nil {
			return RoleCommandPair{}, wrapNodeError(node, err)
		}
		return p, nil
	}
	return RoleCommandPair{}, nodeError(node, "blocker must be an object or a ROLE-COMMAND string")
}

func nodeError(node *yaml.Node, format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedRules, node.Line, fmt.Sprintf(format, args...))
}

func wrapNodeError(node *yaml.Node, err error) error {
	return fmt.Errorf("%w: line %d: %w", ErrMalformedRules, node.Line, err)
}

// ParseRawRules converts one in-memory rule section, keyed by "ROLE-CMD", into rules.
// Blockers are lists of {"role", "cmd"} maps or "ROLE-CMD" strings.
func ParseRawRules(raw map[string]interface{}) (Rules, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := Rules{}
	for _, key := range keys {
		if isComment(key) {
			continue
		}
		blocked, err := ParsePair(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRules, err)
		}
		blockers, err := parseRawBlockers(blocked, raw[key])
		if err != nil {
			return nil, err
		}
		out.Add(blocked, blockers...)
	}
	return out, nil
}

func parseRawBlockers(blocked RoleCommandPair, value interface{}) ([]RoleCommandPair, error) {
	var items []interface{}
	switch v := value.(type) {
	case []interface{}:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	case []map[string]interface{}:
		for _, m := range v {
			items = append(items, m)
		}
	case []map[string]string:
		for _, m := range v {
			items = append(items, m)
		}
	case []RoleCommandPair:
		for _, p := range v {
			items = append(items, p)
		}
	default:
		return nil, fmt.Errorf("%w: blockers of %s must be a list, got %T", ErrMalformedRules, blocked, value)
	}
	out := make([]RoleCommandPair, 0, len(items))
	for _, item := range items {
		blocker, err := parseRawBlocker(item)
		if err != nil {
			return nil, fmt.Errorf("%w: blocker of %s: %w", ErrMalformedRules, blocked, err)
		}
		if blocker == blocked {
			return nil, fmt.Errorf("%w: %s cannot block itself", ErrMalformedRules, blocked)
		}
		out = append(out, blocker)
	}
	return out, nil
}

func parseRawBlocker(item interface{}) (RoleCommandPair, error) {
	switch v := item.(type) {
	case RoleCommandPair:
		return v, nil
	case string:
		return ParsePair(v)
	case map[string]string:
		return rawPair(v[roleKey], v[commandKey], len(v))
	case map[string]interface{}:
		role, _ := v[roleKey].(string)
		cmd, _ := v[commandKey].(string)
		return rawPair(role, cmd, len(v))
	}
	return RoleCommandPair{}, fmt.Errorf("unsupported blocker type %T", item)
}

func rawPair(role, cmd string, fields int) (RoleCommandPair, error) {
	if role == "" || cmd == "" {
		return RoleCommandPair{}, fmt.Errorf("blocker needs both %q and %q", roleKey, commandKey)
	}
	if fields != 2 {
		return RoleCommandPair{}, fmt.Errorf("blocker has fields other than %q and %q", roleKey, commandKey)
	}
	return parseParts(role, cmd)
}
