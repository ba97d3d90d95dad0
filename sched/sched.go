// Package sched runs interpreter functions as cooperative tasks.
//
// Every task gets its own goroutine, but only the holder of the baton runs.
// A task keeps the baton until it yields or returns, at which point the run
// loop hands it to the next ready task in round-robin order.
package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/pmnative/bridge"
	"github.com/chazu/pmnative/value"
)

var (
	// ErrNotFunc is returned when spawning something that is not a function
	ErrNotFunc = errors.New("task body is not a function")
	// ErrRunning is returned by Run when the scheduler is already running
	ErrRunning = errors.New("scheduler already running")
	// ErrStopped is returned by Yield when the run loop ended while the
	// task was parked
	ErrStopped = errors.New("scheduler stopped")
)

// State is the lifecycle stage of a task
type State int

const (
	Ready State = iota
	Running
	Done
	Failed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Task is one spawned function
type Task struct {
	ID    uuid.UUID
	State State
	Err   error

	fn      value.Callable
	sched   *Scheduler
	started bool
	resume  chan struct{}
	events  chan<- event
	stop    <-chan struct{}
}

type eventKind int

const (
	yielded eventKind = iota
	finished
)

type event struct {
	task *Task
	kind eventKind
	err  error
}

// Scheduler is a cooperative round-robin scheduler. It implements
// bridge.TaskScheduler.
type Scheduler struct {
	mu      sync.Mutex
	ready   []*Task
	tasks   []*Task
	running bool
	log     commonlog.Logger
}

// New creates an idle scheduler
func New() *Scheduler {
	return &Scheduler{
		log: commonlog.GetLogger("pmnative.sched"),
	}
}

type taskKey struct{}

func taskFrom(ctx context.Context) *Task {
	t, _ := ctx.Value(taskKey{}).(*Task)
	return t
}

// Current returns the task running under ctx, or nil outside any task
func Current(ctx context.Context) *Task {
	return taskFrom(ctx)
}

// Spawn adds fn to the end of the ready queue. Tasks may spawn tasks.
func (s *Scheduler) Spawn(fn value.Value) error {
	c, ok := fn.AsFunc()
	if !ok {
		return fmt.Errorf("%s: %w", fn.Kind(), ErrNotFunc)
	}
	t := &Task{
		ID:     uuid.New(),
		State:  Ready,
		fn:     c,
		sched:  s,
		resume: make(chan struct{}),
	}
	s.mu.Lock()
	s.ready = append(s.ready, t)
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
	s.log.Debugf("spawned task %s", t.ID)
	return nil
}

// Tasks returns every task spawned so far, in spawn order
func (s *Scheduler) Tasks() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Yield parks the task running under ctx and passes the baton on. It
// returns once the task is scheduled again. Outside a task it does nothing.
func (s *Scheduler) Yield(ctx context.Context) error {
	t := taskFrom(ctx)
	if t == nil || t.sched != s {
		return nil
	}
	select {
	case t.events <- event{task: t, kind: yielded}:
	case <-t.stop:
		return ErrStopped
	}
	select {
	case <-t.resume:
		return nil
	case <-t.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run passes the baton between ready tasks until none remain, a task
// raises SystemExit, or ctx is cancelled. A SystemExit is returned as is;
// other task failures are recorded on the task and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.running = true
	s.mu.Unlock()

	events := make(chan event)
	stop := make(chan struct{})
	defer func() {
		close(stop)
		s.mu.Lock()
		for _, t := range s.ready {
			t.State = Cancelled
		}
		s.ready = nil
		s.running = false
		s.mu.Unlock()
	}()

	for {
		t := s.next()
		if t == nil {
			return nil
		}
		if !t.started {
			t.started = true
			t.events = events
			t.stop = stop
			go s.start(ctx, t)
		}
		s.setState(t, Running)

		select {
		case t.resume <- struct{}{}:
		case <-ctx.Done():
			s.cancel(t)
			return ctx.Err()
		}

		var ev event
		select {
		case ev = <-events:
		case <-ctx.Done():
			s.cancel(t)
			return ctx.Err()
		}

		switch ev.kind {
		case yielded:
			s.setState(ev.task, Ready)
			s.mu.Lock()
			s.ready = append(s.ready, ev.task)
			s.mu.Unlock()
		case finished:
			if ev.err != nil {
				s.setFailed(ev.task, ev.err)
			} else {
				s.setState(ev.task, Done)
			}
			if _, ok := bridge.ExitCode(ev.err); ok {
				s.log.Infof("task %s exited: %s", ev.task.ID, ev.err)
				return ev.err
			}
			if ev.err != nil {
				s.log.Warningf("task %s failed: %s", ev.task.ID, ev.err)
			}
		}
	}
}

func (s *Scheduler) next() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ready) == 0 {
		return nil
	}
	t := s.ready[0]
	s.ready[0] = nil
	s.ready = s.ready[1:]
	return t
}

func (s *Scheduler) setState(t *Task, st State) {
	s.mu.Lock()
	t.State = st
	s.mu.Unlock()
}

func (s *Scheduler) setFailed(t *Task, err error) {
	s.mu.Lock()
	t.State = Failed
	t.Err = err
	s.mu.Unlock()
}

func (s *Scheduler) cancel(t *Task) {
	s.mu.Lock()
	t.State = Cancelled
	s.mu.Unlock()
}

// start is the task goroutine. It waits for its first turn, runs the body
// and reports the outcome.
func (s *Scheduler) start(ctx context.Context, t *Task) {
	select {
	case <-t.resume:
	case <-t.stop:
		return
	}
	err := s.execute(context.WithValue(ctx, taskKey{}, t), t)
	select {
	case t.events <- event{task: t, kind: finished, err: err}:
	case <-t.stop:
	}
}

// execute calls the task body, recovering from panics
func (s *Scheduler) execute(ctx context.Context, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	_, err = t.fn.Call(ctx, nil)
	return err
}
