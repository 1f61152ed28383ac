// Package task implements task dispatch (spec.md §4.9, component C9):
// small records piggy-backed on data exchanges carrying remote
// commands and acknowledgements between server and proxy.
package task

import (
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-metrics"

	"github.com/fleetwatch/core/helper"
)

// ExecuteOn names where a remote command actually runs.
type ExecuteOn string

const (
	ExecuteOnAgent  ExecuteOn = "agent"
	ExecuteOnServer ExecuteOn = "server"
	ExecuteOnProxy  ExecuteOn = "proxy"
)

// Status is a task's lifecycle state (spec.md §4.9).
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusExpired    Status = "expired"
)

// RemoteCommand is a command the server wants run on or relayed to a
// host, and its eventual result.
type RemoteCommand struct {
	Type       string
	ExecuteOn  ExecuteOn
	Port       int
	AuthUser   string
	AuthPass   string
	Command    string
	ParentID   string
	HostID     uint64
	AlertID    uint64 // 0 if not alert-triggered
}

// RemoteCommandResult flows back in the reverse direction once a
// RemoteCommand completes.
type RemoteCommandResult struct {
	TaskID  string
	Status  int
	Message string
}

// Acknowledgement notifies the proxy that an alert was acknowledged
// on the server, so the proxy can stop retrying it.
type Acknowledgement struct {
	AcknowledgeID uint64
}

// Task wraps one dispatched unit (a RemoteCommand or an
// Acknowledgement) with its lifecycle metadata.
type Task struct {
	ID      string
	Status  Status
	Clock   helper.Timestamp // created at
	TTL     int64            // seconds

	Command         *RemoteCommand
	Acknowledgement *Acknowledgement
}

// Expired reports whether the task's TTL has elapsed as of now.
func (t Task) Expired(now helper.Timestamp) bool {
	return now.Sub(t.Clock).Seconds() >= float64(t.TTL)
}

// Queue is the process-wide set of in-flight tasks for one peer
// (spec.md §4.9: "piggy-back on data exchanges"), indexed by ID.
type Queue struct {
	mu    sync.Mutex
	tasks map[string]*Task
	log   hclog.Logger
}

// NewQueue builds an empty task queue.
func NewQueue(log hclog.Logger) *Queue {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Queue{tasks: make(map[string]*Task), log: log.Named("task")}
}

// Dispatch enqueues a new task with a fresh ID and StatusNew.
func (q *Queue) Dispatch(cmd *RemoteCommand, ack *Acknowledgement, now helper.Timestamp, ttlSeconds int64) *Task {
	t := &Task{
		ID:              uuid.NewString(),
		Status:          StatusNew,
		Clock:           now,
		TTL:             ttlSeconds,
		Command:         cmd,
		Acknowledgement: ack,
	}
	q.mu.Lock()
	q.tasks[t.ID] = t
	q.mu.Unlock()

	metrics.IncrCounter([]string{"task", "dispatched"}, 1)
	q.log.Debug("task dispatched", "task_id", t.ID, "host_id", hostIDOf(cmd))
	return t
}

// Advance moves a task to status, returning false if the task is
// unknown or already terminal (done/expired).
func (q *Queue) Advance(id string, status Status) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.tasks[id]
	if !ok || t.Status == StatusDone || t.Status == StatusExpired {
		return false
	}
	t.Status = status
	return true
}

// SweepExpired marks every non-terminal task whose TTL has elapsed as
// of now as StatusExpired, returning their IDs.
func (q *Queue) SweepExpired(now helper.Timestamp) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var expired []string
	for id, t := range q.tasks {
		if t.Status == StatusDone || t.Status == StatusExpired {
			continue
		}
		if t.Expired(now) {
			t.Status = StatusExpired
			expired = append(expired, id)
		}
	}
	return expired
}

// Pending returns every task still in new or in_progress state,
// the set a data-exchange response piggy-backs (spec.md §4.9).
func (q *Queue) Pending() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []*Task
	for _, t := range q.tasks {
		if t.Status == StatusNew || t.Status == StatusInProgress {
			out = append(out, t)
		}
	}
	return out
}

func hostIDOf(cmd *RemoteCommand) uint64 {
	if cmd == nil {
		return 0
	}
	return cmd.HostID
}
