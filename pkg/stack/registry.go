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
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/apache/ambari-rco/pkg/log"
)

// metaInfo is the content of metainfo.yaml
type metaInfo struct {
	Extends string `yaml:"extends,omitempty"`
	Active  *bool  `yaml:"active,omitempty"`
}

// Registry resolves stack ids against a stack tree laid out as <name>/<version>/.
// The registry is read only after loading.
type Registry struct {
	fsys   fs.FS
	stacks map[ID]*Stack
}

// NewRegistry returns a registry without any stacks.
func NewRegistry() *Registry {
	return &Registry{
		stacks: make(map[ID]*Stack),
	}
}

// LoadRegistry walks the stack tree and registers every version directory that has a metainfo file.
func LoadRegistry(fsys fs.FS) (*Registry, error) {
	r := &Registry{
		fsys:   fsys,
		stacks: make(map[ID]*Stack),
	}
	names, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to read stack root: %w", err)
	}
	for _, name := range names {
		if !name.IsDir() {
			continue
		}
		versions, err := fs.ReadDir(fsys, name.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read stack %s: %w", name.Name(), err)
		}
		for _, version := range versions {
			if !version.IsDir() {
				continue
			}
			dir := path.Join(name.Name(), version.Name())
			s, err := loadStack(fsys, dir, ID{Name: name.Name(), Version: version.Name()})
			if err != nil {
				return nil, err
			}
			if s == nil {
				log.Log(log.Stack).Debug("skipping directory without stack metadata",
					zap.String("directory", dir))
				continue
			}
			r.stacks[s.ID] = s
		}
	}
	if err = r.validate(); err != nil {
		return nil, err
	}
	log.Log(log.Stack).Info("stack registry loaded",
		zap.Int("stacks", len(r.stacks)))
	return r, nil
}

func loadStack(fsys fs.FS, dir string, id ID) (*Stack, error) {
	content, err := fs.ReadFile(fsys, path.Join(dir, MetaInfoFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata for stack %s: %w", id, err)
	}
	info := metaInfo{}
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err = decoder.Decode(&info); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: stack %s metadata: %v", ErrStackDefinition, id, err)
	}
	s := &Stack{
		ID:     id,
		Active: info.Active == nil || *info.Active,
		dir:    dir,
	}
	if info.Extends != "" {
		s.Parent = &ID{Name: id.Name, Version: info.Extends}
	}
	return s, nil
}

// validate makes sure every parent exists and the extends chains do not loop
func (r *Registry) validate() error {
	for _, s := range r.stacks {
		seen := map[ID]bool{s.ID: true}
		for current := s; current.Parent != nil; {
			parent, ok := r.stacks[*current.Parent]
			if !ok {
				return fmt.Errorf("%w: stack %s extends unknown stack %s", ErrStackDefinition, current.ID, *current.Parent)
			}
			if seen[parent.ID] {
				return fmt.Errorf("%w: stack %s has an extends cycle through %s", ErrStackDefinition, s.ID, parent.ID)
			}
			seen[parent.ID] = true
			current = parent
		}
	}
	return nil
}

// Get returns the stack version or ErrUnknownStack.
func (r *Registry) Get(id ID) (*Stack, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: empty stack id", ErrInvalidStackID)
	}
	s, ok := r.stacks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStack, id)
	}
	return s, nil
}

// Lineage returns the stack followed by its ancestors, child first.
func (r *Registry) Lineage(id ID) ([]*Stack, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	lineage := []*Stack{s}
	for s.Parent != nil {
		// validated at load time
		s = r.stacks[*s.Parent]
		lineage = append(lineage, s)
	}
	return lineage, nil
}

// IDs returns all registered stack ids in name and version order.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.stacks))
	for id := range r.stacks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		return ids[i].Version < ids[j].Version
	})
	return ids
}

// ReadRules returns the role command order artifact of the stack, found is false when the stack has none.
func (r *Registry) ReadRules(s *Stack) (content []byte, found bool, err error) {
	if r.fsys == nil || s == nil {
		return nil, false, nil
	}
	content, err = fs.ReadFile(r.fsys, s.RuleFile())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rules for stack %s: %w", s.ID, err)
	}
	return content, true, nil
}
