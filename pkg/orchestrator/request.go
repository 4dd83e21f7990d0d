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
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/apache/ambari-rco/pkg/common"
	"github.com/apache/ambari-rco/pkg/locking"
	"github.com/apache/ambari-rco/pkg/stageplanner"
)

// TaskStatus is the outcome of one command, stages use the same values.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
	TaskTimedOut   TaskStatus = "TIMEDOUT"
	TaskAborted    TaskStatus = "ABORTED"
)

// failed reports the statuses that fail a request.
func (s TaskStatus) failed() bool {
	return s == TaskFailed || s == TaskTimedOut
}

// Task tracks one command of a stage.
type Task struct {
	Command  stageplanner.Command
	Status   TaskStatus
	Err      error
	Duration time.Duration
}

// StageResult tracks the tasks of one stage.
type StageResult struct {
	ID     int
	Status TaskStatus
	Tasks  []*Task
}

// Request is one execution of a stage plan.
type Request struct {
	ID     string
	Stages []*StageResult

	submitted    time.Time
	finished     time.Time
	stateMachine *fsm.FSM

	locking.RWMutex
}

func NewRequest(stages []*stageplanner.Stage) *Request {
	req := &Request{
		ID:           common.GetNewUUID(),
		submitted:    time.Now(),
		stateMachine: NewRequestState(),
	}
	for _, s := range stages {
		result := &StageResult{ID: s.ID, Status: TaskPending}
		for _, c := range s.Commands() {
			result.Tasks = append(result.Tasks, &Task{Command: c, Status: TaskPending})
		}
		req.Stages = append(req.Stages, result)
	}
	return req
}

func (r *Request) CurrentState() string {
	r.RLock()
	defer r.RUnlock()
	return r.stateMachine.Current()
}

func (r *Request) IsCompleted() bool {
	return r.CurrentState() == Completed.String()
}

// Duration is the time from submit to the final state, or until now for a running request.
func (r *Request) Duration() time.Duration {
	r.RLock()
	defer r.RUnlock()
	if r.finished.IsZero() {
		return time.Since(r.submitted)
	}
	return r.finished.Sub(r.submitted)
}

// Tasks returns the tasks of the request in stage order, a snapshot of their status.
func (r *Request) Tasks() []Task {
	r.RLock()
	defer r.RUnlock()
	var out []Task
	for _, s := range r.Stages {
		for _, t := range s.Tasks {
			out = append(out, *t)
		}
	}
	return out
}

func (r *Request) handleEvent(ctx context.Context, event requestEvent, info string) error {
	r.Lock()
	defer r.Unlock()
	err := r.stateMachine.Event(ctx, event.String(), r, info)
	// handle the same state transition not nil error (limit of fsm).
	if err != nil && err.Error() == noTransition {
		return nil
	}
	if err == nil && r.stateMachine.Current() != InProgress.String() {
		r.finished = time.Now()
	}
	return err
}

// setTask records a task outcome.
func (r *Request) setTask(t *Task, status TaskStatus, err error, duration time.Duration) {
	r.Lock()
	defer r.Unlock()
	t.Status = status
	t.Err = err
	t.Duration = duration
}

func (r *Request) setStage(s *StageResult, status TaskStatus) {
	r.Lock()
	defer r.Unlock()
	s.Status = status
}

// abortFrom marks all stages from index on as aborted.
func (r *Request) abortFrom(index int) {
	r.Lock()
	defer r.Unlock()
	for _, s := range r.Stages[index:] {
		s.Status = TaskAborted
		for _, t := range s.Tasks {
			if t.Status == TaskPending || t.Status == TaskInProgress {
				t.Status = TaskAborted
			}
		}
	}
}

func (r *Request) String() string {
	return fmt.Sprintf("request %s: %s, %d stages", r.ID, r.CurrentState(), len(r.Stages))
}
