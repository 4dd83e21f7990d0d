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
	"errors"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/uber/jaeger-client-go"

	"github.com/apache/ambari-rco/pkg/locking"
)

var errNoActiveSpan = errors.New("no active span")

// TraceContext manages the spans of one request trace.
// Spans are started and finished in pairs: the last started span is the active span.
type TraceContext interface {
	// ActiveSpan returns the latest unfinished span.
	ActiveSpan() (opentracing.Span, error)

	// StartSpan starts a new span as the child of the active span, or as the root span of the trace.
	StartSpan(operationName string) (opentracing.Span, error)

	// FinishActiveSpan finishes the active span and makes its parent the active span.
	FinishActiveSpan() error
}

var _ TraceContext = &ContextImpl{}

// ContextImpl reports the spans to the tracer once they are finished.
// The root span gets a sampling priority of 1 when OnDemandFlag is set, forcing all spans to be reported.
type ContextImpl struct {
	Tracer       opentracing.Tracer
	SpanStack    []opentracing.Span
	OnDemandFlag bool
	lock         locking.Mutex
}

func (c *ContextImpl) ActiveSpan() (opentracing.Span, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.activeSpan()
}

func (c *ContextImpl) activeSpan() (opentracing.Span, error) {
	if len(c.SpanStack) == 0 {
		return nil, errNoActiveSpan
	}
	return c.SpanStack[len(c.SpanStack)-1], nil
}

func (c *ContextImpl) StartSpan(operationName string) (opentracing.Span, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	var newSpan opentracing.Span
	if span, err := c.activeSpan(); err != nil {
		newSpan = c.Tracer.StartSpan(operationName)
		if c.OnDemandFlag {
			ext.SamplingPriority.Set(newSpan, 1)
		}
	} else {
		newSpan = c.Tracer.StartSpan(operationName, opentracing.ChildOf(span.Context()))
	}
	c.SpanStack = append(c.SpanStack, newSpan)
	return newSpan, nil
}

func (c *ContextImpl) FinishActiveSpan() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	span, err := c.activeSpan()
	if err != nil {
		return err
	}
	span.Finish()
	c.SpanStack = c.SpanStack[:len(c.SpanStack)-1]
	return nil
}

var _ opentracing.Span = &DelaySpan{}

// DelaySpan records its finish time and is reported later by the DelayContextImpl.
type DelaySpan struct {
	opentracing.Span
	FinishTime time.Time
}

// Finish must not be called on a delayed span, the context reports it.
func (d *DelaySpan) Finish() {
	panic("delayed span must be finished through its trace context")
}

// FinishWithOptions must not be called on a delayed span, the context reports it.
func (d *DelaySpan) FinishWithOptions(opentracing.FinishOptions) {
	panic("delayed span must be finished through its trace context")
}

var _ TraceContext = &DelayContextImpl{}

// DelayContextImpl holds back all spans until the root span finishes and only reports
// the trace when one of its spans carries all FilterTags.
type DelayContextImpl struct {
	Tracer     opentracing.Tracer
	SpanStack  []*DelaySpan
	Spans      []*DelaySpan
	FilterTags map[string]interface{}
	lock       locking.Mutex
}

func (d *DelayContextImpl) ActiveSpan() (opentracing.Span, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.SpanStack) == 0 {
		return nil, errNoActiveSpan
	}
	return d.SpanStack[len(d.SpanStack)-1], nil
}

func (d *DelayContextImpl) StartSpan(operationName string) (opentracing.Span, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	var newSpan *DelaySpan
	if len(d.SpanStack) == 0 {
		newSpan = &DelaySpan{
			Span: d.Tracer.StartSpan(operationName),
		}
		ext.SamplingPriority.Set(newSpan, 1)
	} else {
		parent := d.SpanStack[len(d.SpanStack)-1]
		newSpan = &DelaySpan{
			Span: d.Tracer.StartSpan(operationName, opentracing.ChildOf(parent.Context())),
		}
	}
	d.SpanStack = append(d.SpanStack, newSpan)
	d.Spans = append(d.Spans, newSpan)
	return newSpan, nil
}

// FinishActiveSpan sets the finish time of the active span. When the root span
// finishes the whole trace is either reported or dropped.
func (d *DelayContextImpl) FinishActiveSpan() error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.SpanStack) == 0 {
		return errNoActiveSpan
	}
	span := d.SpanStack[len(d.SpanStack)-1]
	span.FinishTime = time.Now()
	d.SpanStack = d.SpanStack[:len(d.SpanStack)-1]

	if len(d.SpanStack) == 0 {
		if d.isMatch() {
			for _, s := range d.Spans {
				s.Span.FinishWithOptions(opentracing.FinishOptions{
					FinishTime: s.FinishTime,
				})
			}
		}
		d.Spans = []*DelaySpan{}
	}
	return nil
}

// isMatch checks whether a span in the trace carries all FilterTags.
func (d *DelayContextImpl) isMatch() bool {
	if len(d.FilterTags) == 0 {
		return false
	}
	for _, span := range d.Spans {
		js, ok := span.Span.(*jaeger.Span)
		if !ok {
			continue
		}
		tags := js.Tags()
		match := true
		for k, v := range d.FilterTags {
			if tag, ok := tags[k]; !ok || tag != v {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
