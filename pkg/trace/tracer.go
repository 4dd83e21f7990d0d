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

package trace

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/locking"
	"github.com/apache/ambari-rco/pkg/log"
)

// Tracer hands out one TraceContext per orchestration request.
type Tracer interface {
	NewTraceContext() TraceContext
	Close()
}

var _ Tracer = &TracerImpl{}

const (
	// Sampling leaves the reporting decision to the configured sampler
	Sampling = "Sampling"
	// Debug reports every trace
	Debug = "Debug"
	// DebugWithFilter reports the traces that carry the filter tags
	DebugWithFilter = "DebugWithFilter"

	// ServiceName is reported to the tracing backend
	ServiceName = "ambari-rco"
)

type TracerImplParams struct {
	Mode       string
	FilterTags map[string]interface{}
}

var DefaultTracerImplParams = &TracerImplParams{
	Mode:       Sampling,
	FilterTags: nil,
}

type TracerImpl struct {
	Tracer opentracing.Tracer
	Closer io.Closer
	*TracerImplParams
	locking.RWMutex
}

func (t *TracerImpl) NewTraceContext() TraceContext {
	t.RLock()
	defer t.RUnlock()
	switch t.Mode {
	case Debug:
		return &ContextImpl{
			Tracer:       t.Tracer,
			SpanStack:    []opentracing.Span{},
			OnDemandFlag: true,
		}
	case DebugWithFilter:
		return &DelayContextImpl{
			Tracer:     t.Tracer,
			SpanStack:  []*DelaySpan{},
			Spans:      []*DelaySpan{},
			FilterTags: t.FilterTags,
		}
	default:
		return &ContextImpl{
			Tracer:    t.Tracer,
			SpanStack: []opentracing.Span{},
		}
	}
}

func (t *TracerImpl) SetParams(params *TracerImplParams) {
	if params == nil {
		return
	}
	t.Lock()
	defer t.Unlock()
	t.TracerImplParams = params
}

func (t *TracerImpl) Close() {
	if t.Closer == nil {
		return
	}
	if err := t.Closer.Close(); err != nil {
		log.Log(log.Tracing).Warn("failed to close tracer", zap.Error(err))
	}
}

// NewTracer creates a tracer with the sampling strategy taken from the JAEGER_* environment.
func NewTracer(params *TracerImplParams) (Tracer, error) {
	if params == nil {
		params = DefaultTracerImplParams
	}
	tracer, closer, err := NewTracerFromEnv(ServiceName)
	if err != nil {
		return nil, err
	}
	return &TracerImpl{
		Tracer:           tracer,
		Closer:           closer,
		TracerImplParams: params,
	}, nil
}

// NewNoopTracer returns a tracer that never reports.
func NewNoopTracer() Tracer {
	return &TracerImpl{
		Tracer:           opentracing.NoopTracer{},
		TracerImplParams: DefaultTracerImplParams,
	}
}
