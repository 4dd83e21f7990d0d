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
	"testing"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	"gotest.tools/v3/assert"
)

func TestContextImpl(t *testing.T) {
	tracer, closer, err := NewConstTracer("test", false)
	assert.NilError(t, err)
	defer closer.Close()
	ctx := &ContextImpl{
		Tracer:       tracer,
		SpanStack:    []opentracing.Span{},
		OnDemandFlag: true,
	}

	_, err = ctx.ActiveSpan()
	assert.ErrorContains(t, err, "no active span")
	assert.ErrorContains(t, ctx.FinishActiveSpan(), "no active span")

	root, err := ctx.StartSpan("root")
	assert.NilError(t, err)
	child, err := ctx.StartSpan("child")
	assert.NilError(t, err)
	active, err := ctx.ActiveSpan()
	assert.NilError(t, err)
	assert.Equal(t, child, active)
	assert.Equal(t, root.(*jaeger.Span).SpanContext().TraceID(), child.(*jaeger.Span).SpanContext().TraceID())

	assert.NilError(t, ctx.FinishActiveSpan())
	active, err = ctx.ActiveSpan()
	assert.NilError(t, err)
	assert.Equal(t, root, active)
	assert.NilError(t, ctx.FinishActiveSpan())
	assert.Equal(t, 0, len(ctx.SpanStack))
}

func TestDelaySpanPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("finishing a delayed span did not panic")
		}
	}()
	d := &DelaySpan{FinishTime: time.Time{}}
	d.Finish()
}

func TestDelayContextImpl(t *testing.T) {
	tracer, closer, err := NewConstTracer("test", false)
	assert.NilError(t, err)
	defer closer.Close()
	ctx := &DelayContextImpl{
		Tracer:     tracer,
		SpanStack:  []*DelaySpan{},
		Spans:      []*DelaySpan{},
		FilterTags: map[string]interface{}{LevelKey: TaskLevel},
	}

	_, err = StartSpanWrapper(ctx, RequestLevel, RunPhase, "req-1")
	assert.NilError(t, err)
	_, err = StartSpanWrapper(ctx, TaskLevel, DispatchPhase, "NAMENODE-START")
	assert.NilError(t, err)
	assert.Assert(t, ctx.isMatch(), "task level span must match the filter")
	assert.NilError(t, FinishActiveSpanWrapper(ctx, CompletedState, ""))
	assert.Equal(t, 2, len(ctx.Spans))
	assert.NilError(t, FinishActiveSpanWrapper(ctx, CompletedState, ""))
	assert.Equal(t, 0, len(ctx.Spans))

	ctx.FilterTags = map[string]interface{}{LevelKey: "unknown"}
	_, err = StartSpanWrapper(ctx, RequestLevel, RunPhase, "req-2")
	assert.NilError(t, err)
	assert.Assert(t, !ctx.isMatch())
	assert.NilError(t, FinishActiveSpanWrapper(ctx, FailedState, "dispatch failed"))
}

func TestTracerModes(t *testing.T) {
	tests := []struct {
		name         string
		params       *TracerImplParams
		wantDelay    bool
		wantOnDemand bool
	}{
		{"Default", nil, false, false},
		{"Sampling", &TracerImplParams{Mode: Sampling}, false, false},
		{"Debug", &TracerImplParams{Mode: Debug}, false, true},
		{"DebugWithFilter", &TracerImplParams{Mode: DebugWithFilter, FilterTags: map[string]interface{}{"foo": "bar"}}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := NewTracer(nil)
			assert.NilError(t, err)
			defer tracer.Close()
			tracer.(*TracerImpl).SetParams(tt.params)
			switch ctx := tracer.NewTraceContext().(type) {
			case *ContextImpl:
				assert.Assert(t, !tt.wantDelay)
				assert.Equal(t, tt.wantOnDemand, ctx.OnDemandFlag)
			case *DelayContextImpl:
				assert.Assert(t, tt.wantDelay)
			default:
				t.Errorf("unknown context type: %T", ctx)
			}
		})
	}
}

func TestStartSpanWrapper(t *testing.T) {
	span, err := StartSpanWrapper(nil, "", "", "")
	assert.NilError(t, err)
	assert.Assert(t, span != nil)

	ctx := NewNoopTracer().NewTraceContext()
	_, err = StartSpanWrapper(ctx, "", RunPhase, "")
	assert.ErrorContains(t, err, "level field cannot be empty")
	_, err = StartSpanWrapper(ctx, StageLevel, RunPhase, "stage-1")
	assert.NilError(t, err)
	assert.NilError(t, FinishActiveSpanWrapper(ctx, CompletedState, "done"))
	assert.ErrorContains(t, FinishActiveSpanWrapper(ctx, "", ""), "no active span")
	assert.NilError(t, FinishActiveSpanWrapper(nil, "", ""))
}
