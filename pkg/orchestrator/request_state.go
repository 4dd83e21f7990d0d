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

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/apache/ambari-rco/pkg/log"
	"github.com/apache/ambari-rco/pkg/metrics"
)

const noTransition = "no transition"

// ----------------------------------
// request events
// ----------------------------------
type requestEvent int

const (
	StartRequest requestEvent = iota
	CompleteRequest
	FailRequest
	AbortRequest
)

func (re requestEvent) String() string {
	return [...]string{"startRequest", "completeRequest", "failRequest", "abortRequest"}[re]
}

// ----------------------------------
// request states
// ----------------------------------
type RequestState int

const (
	Pending RequestState = iota
	InProgress
	Completed
	Failed
	Aborted
)

func (rs RequestState) String() string {
	return [...]string{"PENDING", "IN_PROGRESS", "COMPLETED", "FAILED", "ABORTED"}[rs]
}

func NewRequestState() *fsm.FSM {
	return fsm.NewFSM(
		Pending.String(), fsm.Events{
			{
				Name: StartRequest.String(),
				Src:  []string{Pending.String()},
				Dst:  InProgress.String(),
			}, {
				Name: CompleteRequest.String(),
				Src:  []string{InProgress.String()},
				Dst:  Completed.String(),
			}, {
				Name: FailRequest.String(),
				Src:  []string{Pending.String(), InProgress.String()},
				Dst:  Failed.String(),
			}, {
				Name: AbortRequest.String(),
				Src:  []string{Pending.String(), InProgress.String()},
				Dst:  Aborted.String(),
			},
		},
		fsm.Callbacks{
			// The first argument must always be the Request, a second one is the reason.
			"enter_state": func(_ context.Context, event *fsm.Event) {
				req := event.Args[0].(*Request) //nolint:errcheck
				info := ""
				if len(event.Args) == 2 {
					info = event.Args[1].(string) //nolint:errcheck
				}
				log.Log(log.Orchestrator).Info("request state transition",
					zap.String("requestID", req.ID),
					zap.String("source", event.Src),
					zap.String("destination", event.Dst),
					zap.String("event", event.Event),
					zap.String("info", info))
				metrics.GetOrchestratorMetrics().IncRequest(event.Dst)
			},
		},
	)
}
