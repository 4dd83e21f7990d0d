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
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"gotest.tools/v3/assert"

	"github.com/apache/ambari-rco/pkg/common"
	"github.com/apache/ambari-rco/pkg/metrics"
	"github.com/apache/ambari-rco/pkg/rco"
	"github.com/apache/ambari-rco/pkg/stageplanner"
)

var errAgent = errors.New("agent reported failure")

// recorder is a dispatcher that records the dispatched commands.
type recorder struct {
	sync.Mutex
	dispatched []stageplanner.Command
	fail       map[rco.Role]bool
}

func (r *recorder) Dispatch(_ context.Context, cmd stageplanner.Command) error {
	r.Lock()
	defer r.Unlock()
	r.dispatched = append(r.dispatched, cmd)
	if r.fail[cmd.Role] {
		return errAgent
	}
	return nil
}

func node(role rco.Role, command rco.RoleCommand, hosts ...string) *stageplanner.RoleGraphNode {
	return &stageplanner.RoleGraphNode{Pair: rco.NewPair(role, command), Hosts: hosts}
}

func twoStagePlan() []*stageplanner.Stage {
	return []*stageplanner.Stage{
		{ID: 1, Nodes: []*stageplanner.RoleGraphNode{
			node(rco.ZOOKEEPER_SERVER, rco.START, "host1", "host2"),
			node(rco.NAMENODE, rco.START, "host1"),
		}},
		{ID: 2, Nodes: []*stageplanner.RoleGraphNode{
			node(rco.HBASE_MASTER, rco.START, "host2"),
		}},
	}
}

func TestRunCompleted(t *testing.T) {
	before, err := metrics.GetOrchestratorMetrics().GetTasks(string(TaskCompleted))
	assert.NilError(t, err)
	rec := &recorder{}
	runner := NewRunner(rec, Options{}, nil)
	req, err := runner.Run(context.Background(), twoStagePlan())
	assert.NilError(t, err)
	_, err = uuid.Parse(req.ID)
	assert.NilError(t, err, "request id is not a uuid")
	assert.Equal(t, Completed.String(), req.CurrentState())
	assert.Assert(t, req.IsCompleted())
	assert.Equal(t, 4, len(rec.dispatched))
	// the last stage only starts after the first finished
	assert.Equal(t, rco.HBASE_MASTER, rec.dispatched[3].Role)
	for _, s := range req.Stages {
		assert.Equal(t, TaskCompleted, s.Status)
	}
	for _, task := range req.Tasks() {
		assert.Equal(t, TaskCompleted, task.Status)
		assert.NilError(t, task.Err)
	}
	after, err := metrics.GetOrchestratorMetrics().GetTasks(string(TaskCompleted))
	assert.NilError(t, err)
	assert.Equal(t, before+4, after)
	assert.Assert(t, req.Duration() > 0)
}

func TestRunFailedTaskAbortsLaterStages(t *testing.T) {
	rec := &recorder{fail: map[rco.Role]bool{rco.NAMENODE: true}}
	runner := NewRunner(rec, Options{MaxParallel: 1}, nil)
	req, err := runner.Run(context.Background(), twoStagePlan())
	assert.Assert(t, errors.Is(err, ErrRequestFailed))
	assert.Assert(t, errors.Is(err, errAgent))
	assert.ErrorContains(t, err, "NAMENODE-START@host1")
	assert.Equal(t, Failed.String(), req.CurrentState())
	assert.Equal(t, 3, len(rec.dispatched), "the failing stage finishes, the next is not dispatched")

	assert.Equal(t, TaskFailed, req.Stages[0].Status)
	assert.Equal(t, TaskAborted, req.Stages[1].Status)
	assert.Equal(t, TaskAborted, req.Stages[1].Tasks[0].Status)
	statuses := map[rco.Role]TaskStatus{}
	for _, task := range req.Tasks() {
		statuses[task.Command.Role] = task.Status
	}
	assert.Equal(t, TaskCompleted, statuses[rco.ZOOKEEPER_SERVER])
	assert.Equal(t, TaskFailed, statuses[rco.NAMENODE])
}

func TestRunTaskTimeout(t *testing.T) {
	blocking := DispatcherFunc(func(ctx context.Context, cmd stageplanner.Command) error {
		if cmd.Role != rco.NAMENODE {
			return nil
		}
		<-ctx.Done()
		return ctx.Err()
	})
	runner := NewRunner(blocking, Options{TaskTimeout: 20 * time.Millisecond}, nil)
	req, err := runner.Run(context.Background(), twoStagePlan())
	assert.Assert(t, errors.Is(err, ErrRequestFailed))
	assert.Assert(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, Failed.String(), req.CurrentState())
	assert.Equal(t, TaskTimedOut, req.Stages[0].Status)
	assert.Equal(t, TaskTimedOut, req.Stages[0].Tasks[2].Status)
	assert.Equal(t, TaskAborted, req.Stages[1].Status)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var second int32
	dispatcher := DispatcherFunc(func(ctx context.Context, cmd stageplanner.Command) error {
		if cmd.Role == rco.HBASE_MASTER {
			atomic.AddInt32(&second, 1)
		}
		if cmd.Role == rco.NAMENODE {
			cancel()
			return ctx.Err()
		}
		return nil
	})
	runner := NewRunner(dispatcher, Options{MaxParallel: 1}, nil)
	req, err := runner.Run(ctx, twoStagePlan())
	assert.Assert(t, errors.Is(err, ErrRequestAborted))
	assert.Assert(t, errors.Is(err, context.Canceled))
	assert.Equal(t, Aborted.String(), req.CurrentState())
	assert.Equal(t, int32(0), atomic.LoadInt32(&second))
	assert.Equal(t, TaskAborted, req.Stages[1].Status)

	// cancelled before the first stage
	req, err = runner.Run(ctx, twoStagePlan())
	assert.Assert(t, errors.Is(err, ErrRequestAborted))
	assert.Equal(t, Aborted.String(), req.CurrentState())
	for _, task := range req.Tasks() {
		assert.Equal(t, TaskAborted, task.Status)
	}
}

func TestRunCancelledWhileDispatching(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var started int32
	dispatcher := DispatcherFunc(func(ctx context.Context, cmd stageplanner.Command) error {
		if cmd.Role != rco.NAMENODE {
			return nil
		}
		atomic.AddInt32(&started, 1)
		<-ctx.Done()
		return ctx.Err()
	})
	runner := NewRunner(dispatcher, Options{}, nil)
	type result struct {
		req *Request
		err error
	}
	done := make(chan result, 1)
	go func() {
		req, err := runner.Run(ctx, twoStagePlan())
		done <- result{req, err}
	}()
	err := common.WaitFor(time.Millisecond, time.Second, func() bool {
		return atomic.LoadInt32(&started) == 1
	})
	assert.NilError(t, err, "namenode command was not dispatched")
	cancel()
	res := <-done
	assert.Assert(t, errors.Is(res.err, ErrRequestAborted), "unexpected error %v", res.err)
	assert.Equal(t, Aborted.String(), res.req.CurrentState())
	assert.Equal(t, TaskAborted, res.req.Stages[1].Status)
}

func TestRunMaxParallel(t *testing.T) {
	var running, peak int32
	dispatcher := DispatcherFunc(func(ctx context.Context, cmd stageplanner.Command) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})
	stages := []*stageplanner.Stage{{ID: 1, Nodes: []*stageplanner.RoleGraphNode{
		node(rco.DATANODE, rco.START, "h1", "h2", "h3", "h4", "h5", "h6"),
	}}}
	runner := NewRunner(dispatcher, Options{MaxParallel: 2}, nil)
	req, err := runner.Run(context.Background(), stages)
	assert.NilError(t, err)
	assert.Equal(t, 6, len(req.Tasks()))
	assert.Assert(t, atomic.LoadInt32(&peak) <= 2, "more than 2 tasks ran concurrently: %d", peak)
}

func TestRunEmptyPlan(t *testing.T) {
	req, err := NewRunner(&recorder{}, Options{}, nil).Run(context.Background(), nil)
	assert.NilError(t, err)
	assert.Equal(t, Completed.String(), req.CurrentState())
	assert.Equal(t, 0, len(req.Tasks()))
}

func TestRequestState(t *testing.T) {
	req := NewRequest(twoStagePlan())
	assert.Equal(t, Pending.String(), req.CurrentState())
	assert.Equal(t, 2, len(req.Stages))
	assert.Equal(t, 3, len(req.Stages[0].Tasks))
	assert.Equal(t, TaskPending, req.Stages[1].Tasks[0].Status)

	assert.NilError(t, req.handleEvent(context.Background(), StartRequest, ""))
	assert.Equal(t, InProgress.String(), req.CurrentState())
	assert.NilError(t, req.handleEvent(context.Background(), CompleteRequest, ""))
	assert.Equal(t, Completed.String(), req.CurrentState())
	assert.Assert(t, req.handleEvent(context.Background(), FailRequest, "late") != nil, "completed request cannot fail")
	assert.Assert(t, req.handleEvent(context.Background(), StartRequest, "") != nil, "completed request cannot restart")

	req = NewRequest(nil)
	assert.NilError(t, req.handleEvent(context.Background(), AbortRequest, "operator"))
	assert.Equal(t, Aborted.String(), req.CurrentState())
}

func TestRequestFsmGraph(t *testing.T) {
	graph := fsm.Visualize(NewRequestState())

	err := os.MkdirAll("../../build/fsm", 0755)
	assert.NilError(t, err, "Creating output dir failed")
	err = os.WriteFile("../../build/fsm/request-state.dot", []byte(graph), 0644)
	assert.NilError(t, err, "Writing graph failed")
}
