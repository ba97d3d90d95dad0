package sched

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/pmnative/bridge"
	"github.com/chazu/pmnative/value"
)

// trace collects marks from tasks. Only one task runs at a time, but the
// mutex keeps the race detector informed.
type trace struct {
	mu    sync.Mutex
	marks []string
}

func (tr *trace) mark(s string) {
	tr.mu.Lock()
	tr.marks = append(tr.marks, s)
	tr.mu.Unlock()
}

func (tr *trace) String() string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return strings.Join(tr.marks, " ")
}

func body(fn func(ctx context.Context) error) value.Value {
	return value.Func(value.CallableFunc(func(ctx context.Context, _ []value.Value) (value.Value, error) {
		return value.None(), fn(ctx)
	}))
}

func stepper(s *Scheduler, tr *trace, name string, steps int) value.Value {
	return body(func(ctx context.Context) error {
		for i := 1; i <= steps; i++ {
			tr.mark(name + string(rune('0'+i)))
			if i < steps {
				if err := s.Yield(ctx); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func TestRoundRobin(t *testing.T) {
	s := New()
	tr := &trace{}
	s.Spawn(stepper(s, tr, "a", 3))
	s.Spawn(stepper(s, tr, "b", 2))

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, want := tr.String(), "a1 b1 a2 b2 a3"; got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
	for _, task := range s.Tasks() {
		if task.State != Done {
			t.Errorf("task %s state = %v", task.ID, task.State)
		}
	}
}

func TestSpawnFromTask(t *testing.T) {
	s := New()
	tr := &trace{}
	s.Spawn(body(func(ctx context.Context) error {
		tr.mark("parent")
		if err := s.Spawn(stepper(s, tr, "child", 1)); err != nil {
			return err
		}
		if Current(ctx) == nil {
			t.Error("Current is nil inside a task")
		}
		return nil
	}))

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := tr.String(); got != "parent child1" {
		t.Errorf("order = %q", got)
	}
	if len(s.Tasks()) != 2 {
		t.Errorf("%d tasks recorded", len(s.Tasks()))
	}
}

func TestSystemExitStopsRun(t *testing.T) {
	s := New()
	tr := &trace{}
	s.Spawn(stepper(s, tr, "a", 2))
	s.Spawn(body(func(ctx context.Context) error {
		tr.mark("exit")
		return bridge.Exit(3)
	}))
	s.Spawn(stepper(s, tr, "c", 1))

	err := s.Run(context.Background())
	if code, ok := bridge.ExitCode(err); !ok || code != 3 {
		t.Fatalf("Run = %v, want SystemExit 3", err)
	}
	if got := tr.String(); got != "a1 exit" {
		t.Errorf("order = %q", got)
	}
	tasks := s.Tasks()
	if tasks[2].State != Cancelled {
		t.Errorf("queued task state = %v, want cancelled", tasks[2].State)
	}
}

func TestFailedTaskDoesNotStopOthers(t *testing.T) {
	s := New()
	tr := &trace{}
	boom := errors.New("boom")
	s.Spawn(body(func(ctx context.Context) error { return boom }))
	s.Spawn(body(func(ctx context.Context) error { panic("bad") }))
	s.Spawn(stepper(s, tr, "ok", 1))

	if err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	tasks := s.Tasks()
	if tasks[0].State != Failed || !errors.Is(tasks[0].Err, boom) {
		t.Errorf("task 0 = %v, %v", tasks[0].State, tasks[0].Err)
	}
	if tasks[1].State != Failed || !strings.Contains(tasks[1].Err.Error(), "panicked") {
		t.Errorf("task 1 = %v, %v", tasks[1].State, tasks[1].Err)
	}
	if tr.String() != "ok1" {
		t.Errorf("order = %q", tr.String())
	}
}

func TestRunCancelled(t *testing.T) {
	s := New()
	s.Spawn(body(func(ctx context.Context) error {
		for {
			if err := s.Yield(ctx); err != nil {
				return err
			}
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v", err)
	}

	// the scheduler is reusable once the loop has ended
	s.Spawn(body(func(ctx context.Context) error { return nil }))
	if err := s.Run(context.Background()); err != nil {
		t.Errorf("second Run = %v", err)
	}
}

func TestYieldOutsideTask(t *testing.T) {
	s := New()
	if err := s.Yield(context.Background()); err != nil {
		t.Errorf("Yield outside a task = %v", err)
	}
	if err := s.Spawn(value.Int(1)); !errors.Is(err, ErrNotFunc) {
		t.Errorf("Spawn(int) = %v", err)
	}
}

func TestNativesDriveScheduler(t *testing.T) {
	s := New()
	b := bridge.New(nil, bridge.Drivers{Scheduler: s}, bridge.NewHeap(64))
	tr := &trace{}

	worker := body(func(ctx context.Context) error {
		tr.mark("w1")
		if _, err := b.Invoke(ctx, "sys.thread_yield"); err != nil {
			return err
		}
		tr.mark("w2")
		return nil
	})
	main := body(func(ctx context.Context) error {
		if _, err := b.Invoke(ctx, "sys.run", worker); err != nil {
			return err
		}
		tr.mark("m1")
		if _, err := b.Invoke(ctx, "sys.thread_yield"); err != nil {
			return err
		}
		tr.mark("m2")
		_, err := b.Invoke(ctx, "sys.exit", value.Int(0))
		return err
	})
	s.Spawn(main)

	err := s.Run(context.Background())
	if code, ok := bridge.ExitCode(err); !ok || code != 0 {
		t.Fatalf("Run = %v", err)
	}
	if got, want := tr.String(), "m1 w1 m2"; got != want {
		t.Errorf("order = %q, want %q", got, want)
	}
}
