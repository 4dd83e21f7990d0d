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
	"fmt"

	"github.com/opentracing/opentracing-go"
)

const (
	LevelKey = "level"
	PhaseKey = "phase"
	NameKey  = "name"
	StateKey = "state"
	InfoKey  = "info"

	RequestLevel = "request"
	StageLevel   = "stage"
	TaskLevel    = "task"

	RunPhase      = "run"
	DispatchPhase = "dispatch"

	CompletedState = "completed"
	FailedState    = "failed"
	AbortedState   = "aborted"
	TimedOutState  = "timedout"
)

// StartSpanWrapper starts a span with the general tags set.
// The level tag is required and names the orchestration level (request, stage, task).
// The phase tag is optional and names the calling phase (run, dispatch).
// The name tag is optional and identifies the object the span is about.
// Start and finish spans in pairs:
//
//	span, _ := StartSpanWrapper(ctx, RequestLevel, RunPhase, id)
//	defer FinishActiveSpanWrapper(ctx, state, "")
func StartSpanWrapper(ctx TraceContext, level, phase, name string) (opentracing.Span, error) {
	if ctx == nil {
		return opentracing.NoopTracer{}.StartSpan(""), nil
	}
	if level == "" {
		return opentracing.NoopTracer{}.StartSpan(""),
			fmt.Errorf("level field cannot be empty")
	}

	span, err := ctx.StartSpan(fmt.Sprintf("[%v]%v", level, phase))
	if err == nil {
		span.SetTag(LevelKey, level)
		if phase != "" {
			span.SetTag(PhaseKey, phase)
		}
		if name != "" {
			span.SetTag(NameKey, name)
		}
	}
	return span, err
}

// FinishActiveSpanWrapper sets the result tags on the active span and finishes it.
// The state tag logs the result (completed, failed, ...), the info tag an optional message.
func FinishActiveSpanWrapper(ctx TraceContext, state, info string) error {
	if ctx == nil {
		return nil
	}

	span, err := ctx.ActiveSpan()
	if err != nil {
		return err
	}
	if state != "" {
		span.SetTag(StateKey, state)
	}
	if info != "" {
		span.SetTag(InfoKey, info)
	}
	return ctx.FinishActiveSpan()
}
