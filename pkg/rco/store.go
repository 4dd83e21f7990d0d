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
	"crypto/sha256"
	_ "embed"
	"fmt"
	"hash"

	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/locking"
	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/metrics"
	"github.com/apache/ambari-rco/pkg/stack"
)

//go:embed resources/default_role_command_order.json
var defaultRuleContent []byte

// DefaultRules parses the bundled rule set used when no stack in the lineage ships an artifact.
func DefaultRules() (*RuleSet, error) {
	return ParseRules(defaultRuleContent)
}

// RuleLoader produces the raw rule set of a stack version.
type RuleLoader interface {
	LoadRules(ctx context.Context, id stack.ID) (*LoadedRules, error)
}

// LoadedRules is the result of one rule load.
type LoadedRules struct {
	StackID  stack.ID
	Rules    *RuleSet
	Source   string
	Files    []string
	Checksum string
}

func (l *LoadedRules) clone() *LoadedRules {
	out := *l
	out.Rules = l.Rules.Clone()
	out.Files = append([]string(nil), l.Files...)
	return &out
}

// RuleStore loads the role command order artifacts of the registered stacks.
// Results are cached per stack version, the cache is never invalidated: the stack tree is read only.
type RuleStore struct {
	registry *stack.Registry
	cache    map[stack.ID]*LoadedRules

	locking.Mutex
}

func NewRuleStore(registry *stack.Registry) *RuleStore {
	if registry == nil {
		registry = stack.NewRegistry()
	}
	return &RuleStore{
		registry: registry,
		cache:    make(map[stack.ID]*LoadedRules),
	}
}

// LoadRules returns the merged rules of the stack lineage, child first. A missing artifact is not an
// error, the bundled default is used. An unknown stack or a malformed artifact fails the load.
// Each call returns its own copy, changes made by the caller do not reach the cache.
func (s *RuleStore) LoadRules(ctx context.Context, id stack.ID) (*LoadedRules, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Lock()
	defer s.Unlock()
	if loaded, ok := s.cache[id]; ok {
		metrics.GetRuleMetrics().IncRuleLoad(metrics.SourceCache)
		return loaded.clone(), nil
	}
	loaded, err := s.load(id)
	if err != nil {
		metrics.GetRuleMetrics().IncRuleLoadFailure()
		return nil, err
	}
	s.cache[id] = loaded
	metrics.GetRuleMetrics().IncRuleLoad(loaded.Source)
	log.Log(log.Rules).Info("dependency rules loaded",
		zap.Stringer("stack", id),
		zap.String("source", loaded.Source),
		zap.Strings("files", loaded.Files),
		zap.Int("blocked", loaded.Rules.Len()),
		zap.String("checksum", loaded.Checksum))
	return loaded.clone(), nil
}

func (s *RuleStore) load(id stack.ID) (*LoadedRules, error) {
	lineage, err := s.registry.Lineage(id)
	if err != nil {
		return nil, err
	}
	loaded := &LoadedRules{
		StackID: id,
		Rules:   NewRuleSet(),
		Source:  metrics.SourceStack,
	}
	h := sha256.New()
	for _, st := range lineage {
		content, found, err := s.registry.ReadRules(st)
		if err != nil {
			return nil, err
		}
		if !found {
			log.Log(log.Rules).Debug("stack has no role command order",
				zap.Stringer("stack", st.ID))
			continue
		}
		rules, err := ParseRules(content)
		if err != nil {
			return nil, fmt.Errorf("stack %s file %s: %w", st.ID, st.RuleFile(), err)
		}
		loaded.Rules.Merge(rules)
		loaded.Files = append(loaded.Files, st.RuleFile())
		h.Write(content)
	}
	if len(loaded.Files) == 0 {
		log.Log(log.Rules).Info("no role command order found in stack lineage, using default rules",
			zap.Stringer("stack", id))
		rules, err := DefaultRules()
		if err != nil {
			return nil, err
		}
		loaded.Rules = rules
		loaded.Source = metrics.SourceDefault
		h.Write(defaultRuleContent)
	}
	loaded.Checksum = checksum(h)
	return loaded, nil
}

func checksum(h hash.Hash) string {
	return fmt.Sprintf("%X", h.Sum(nil))
}
