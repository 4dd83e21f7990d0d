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

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/metrics"
	"github.com/apache/ambari-rco/pkg/stageplanner"
	"github.com/apache/ambari-rco/pkg/trace"
)

var (
	ErrRequestFailed  = errors.New("request failed")
	ErrRequestAborted = errors.New("request aborted")
)

// Dispatcher sends one command to the agent of its host and waits for the result.
// Dispatch must return when the context is done.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd stageplanner.Command) error
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(ctx context.Context, cmd stageplanner.Command) error

func (f DispatcherFunc) Dispatch(ctx context.Context, cmd stageplanner.Command) error {
	return f(ctx, cmd)
}

type Options struct {
	// MaxParallel limits the concurrent tasks of a stage, 0 is unlimited.
	MaxParallel int
	// TaskTimeout limits a single task, 0 is unlimited.
	TaskTimeout time.Duration
}

// Runner executes stage plans: stages strictly in order, the tasks of one stage concurrently.
type Runner struct {
	dispatcher Dispatcher
	options    Options
	tracer     trace.Tracer
	failureLog *log.RateLimitedLogger
}

func NewRunner(dispatcher Dispatcher, options Options, tracer trace.Tracer) *Runner {
	if tracer == nil {
		tracer = trace.NewNoopTracer()
	}
	return &Runner{
		dispatcher: dispatcher,
		options:    options,
		tracer:     tracer,
		failureLog: log.RateLimitedLog(log.Orchestrator, time.Second),
	}
}

// Run executes the stages. A stage only starts when every task of the previous stage completed.
// A failed or timed out task fails the request after its stage finished, later stages are aborted.
// Cancelling the context aborts the request. The returned request is never nil.
func (r *Runner) Run(ctx context.Context, stages []*stageplanner.Stage) (*Request, error) {
	req := NewRequest(stages)
	metrics.GetOrchestratorMetrics().IncRunningRequests()
	defer metrics.GetOrchestratorMetrics().DecRunningRequests()

	traceCtx := r.tracer.NewTraceContext()
	_, _ = trace.StartSpanWrapper(traceCtx, trace.RequestLevel, trace.RunPhase, req.ID) //nolint:errcheck

	if err := req.handleEvent(context.Background(), StartRequest, ""); err != nil {
		_ = trace.FinishActiveSpanWrapper(traceCtx, trace.FailedState, err.Error()) //nolint:errcheck
		return req, err
	}
	for i, stage := range req.Stages {
		if err := ctx.Err(); err != nil {
			return req, r.abort(traceCtx, req, i, err)
		}
		if err := r.runStage(ctx, traceCtx, req, stage); err != nil {
			if ctx.Err() != nil {
				return req, r.abort(traceCtx, req, i+1, ctx.Err())
			}
			req.abortFrom(i + 1)
			_ = req.handleEvent(context.Background(), FailRequest, err.Error())         //nolint:errcheck
			_ = trace.FinishActiveSpanWrapper(traceCtx, trace.FailedState, err.Error()) //nolint:errcheck
			return req, fmt.Errorf("%w: %w", ErrRequestFailed, err)
		}
	}
	if err := req.handleEvent(context.Background(), CompleteRequest, ""); err != nil {
		return req, err
	}
	_ = trace.FinishActiveSpanWrapper(traceCtx, trace.CompletedState, "") //nolint:errcheck
	log.Log(log.Orchestrator).Info("request completed",
		zap.String("requestID", req.ID),
		zap.Int("stages", len(req.Stages)),
		zap.Duration("duration", req.Duration()))
	return req, nil
}

func (r *Runner) abort(traceCtx trace.TraceContext, req *Request, from int, cause error) error {
	req.abortFrom(from)
	_ = req.handleEvent(context.Background(), AbortRequest, cause.Error())         //nolint:errcheck
	_ = trace.FinishActiveSpanWrapper(traceCtx, trace.AbortedState, cause.Error()) //nolint:errcheck
	return fmt.Errorf("%w: %w", ErrRequestAborted, cause)
}

// runStage dispatches all tasks of the stage and waits for them. The first failure is returned.
func (r *Runner) runStage(ctx context.Context, traceCtx trace.TraceContext, req *Request, stage *StageResult) error {
	start := time.Now()
	defer metrics.GetOrchestratorMetrics().ObserveStageLatency(start)
	stageSpan, _ := trace.StartSpanWrapper(traceCtx, trace.StageLevel, trace.DispatchPhase, fmt.Sprintf("stage-%d", stage.ID)) //nolint:errcheck
	req.setStage(stage, TaskInProgress)

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.concurrency(len(stage.Tasks)))
	for _, task := range stage.Tasks {
		wg.Add(1)
		go func(t *Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			r.runTask(ctx, stageSpan, req, t)
		}(task)
	}
	wg.Wait()

	status := TaskCompleted
	var firstErr error
	for _, t := range stage.Tasks {
		if t.Status == TaskCompleted {
			continue
		}
		if firstErr == nil || (t.Status.failed() && !status.failed()) {
			status = t.Status
			firstErr = fmt.Errorf("stage %d task %s %s: %w", stage.ID, t.Command, t.Status, t.Err)
		}
	}
	req.setStage(stage, status)
	state := trace.CompletedState
	if firstErr != nil {
		state = trace.FailedState
	}
	_ = trace.FinishActiveSpanWrapper(traceCtx, state, "") //nolint:errcheck
	log.Log(log.Orchestrator).Debug("stage finished",
		zap.String("requestID", req.ID),
		zap.Int("stage", stage.ID),
		zap.String("status", string(status)),
		zap.Int("tasks", len(stage.Tasks)))
	return firstErr
}

func (r *Runner) runTask(ctx context.Context, parent opentracing.Span, req *Request, t *Task) {
	span := parent.Tracer().StartSpan(fmt.Sprintf("[%v]%v", trace.TaskLevel, trace.DispatchPhase), opentracing.ChildOf(parent.Context()))
	span.SetTag(trace.LevelKey, trace.TaskLevel)
	span.SetTag(trace.NameKey, t.Command.String())
	defer span.Finish()

	start := time.Now()
	if err := ctx.Err(); err != nil {
		req.setTask(t, TaskAborted, err, 0)
		span.SetTag(trace.StateKey, trace.AbortedState)
		metrics.GetOrchestratorMetrics().IncTask(string(TaskAborted))
		return
	}
	req.setTask(t, TaskInProgress, nil, 0)
	taskCtx := ctx
	if r.options.TaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, r.options.TaskTimeout)
		defer cancel()
	}
	err := r.dispatcher.Dispatch(taskCtx, t.Command)
	status := TaskCompleted
	state := trace.CompletedState
	switch {
	case err == nil:
	case ctx.Err() != nil:
		status, state = TaskAborted, trace.AbortedState
	case errors.Is(taskCtx.Err(), context.DeadlineExceeded):
		status, state = TaskTimedOut, trace.TimedOutState
		err = fmt.Errorf("timed out after %s: %w", r.options.TaskTimeout, err)
	default:
		status, state = TaskFailed, trace.FailedState
	}
	req.setTask(t, status, err, time.Since(start))
	span.SetTag(trace.StateKey, state)
	metrics.GetOrchestratorMetrics().IncTask(string(status))
	if err != nil {
		span.SetTag(trace.InfoKey, err.Error())
		r.failureLog.Warn("command dispatch failed",
			zap.String("requestID", req.ID),
			zap.Stringer("command", t.Command),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (r *Runner) concurrency(tasks int) int {
	if tasks == 0 {
		return 1
	}
	if r.options.MaxParallel <= 0 || r.options.MaxParallel > tasks {
		return tasks
	}
	return r.options.MaxParallel
}
