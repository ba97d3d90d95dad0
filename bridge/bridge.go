// Package bridge marshals interpreter calls into native driver routines.
//
// Each call runs as one transaction: the arguments are validated against
// the native's signature, the adapter converts them and calls its driver,
// and every transient buffer acquired on the way is released before the
// result or exception is handed back.
package bridge

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/pmnative/value"
)

// Phase is the stage of a call transaction
type Phase int

const (
	Validating Phase = iota
	Executing
	Finalizing
)

func (p Phase) String() string {
	switch p {
	case Validating:
		return "validating"
	case Executing:
		return "executing"
	case Finalizing:
		return "finalizing"
	}
	return "unknown"
}

// CallRecord describes one finished call
type CallRecord struct {
	Seq       uint64
	Name      string
	Args      []value.Kind
	Outcome   ExceptionKind
	Phase     Phase // phase in which the call ended
	Code      int32
	Message   string
	Result    string
	Acquired  int
	Released  int
	Reclaimed int // buffers the adapter left for the finalizer
	Bytes     int
	Elapsed   time.Duration
}

// Observer is notified after every call
type Observer interface {
	ObserveCall(rec CallRecord)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(rec CallRecord)

func (f ObserverFunc) ObserveCall(rec CallRecord) { f(rec) }

// Bridge dispatches calls by name to registered natives
type Bridge struct {
	registry *Registry
	drivers  Drivers
	alloc    Allocator
	log      commonlog.Logger
	seq      atomic.Uint64

	mu        sync.RWMutex
	observers []Observer
}

// New creates a bridge. A nil registry means DefaultRegistry.
func New(reg *Registry, drivers Drivers, alloc Allocator) *Bridge {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Bridge{
		registry: reg,
		drivers:  drivers,
		alloc:    alloc,
		log:      commonlog.GetLogger("pmnative.bridge"),
	}
}

// Registry returns the native table
func (b *Bridge) Registry() *Registry {
	return b.registry
}

// Observe registers an observer for call records
func (b *Bridge) Observe(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observers = append(b.observers, o)
}

// Invoke calls the named native with args
func (b *Bridge) Invoke(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	return b.InvokeFrame(ctx, name, NewFrame(args...))
}

// InvokeFrame calls the named native with an interpreter-owned frame. It
// returns exactly one of a result value or an *Exception.
func (b *Bridge) InvokeFrame(ctx context.Context, name string, f *Frame) (result value.Value, err error) {
	start := time.Now()
	c := &Call{
		ctx:    ctx,
		Frame:  f,
		name:   name,
		bridge: b,
		phase:  Validating,
	}

	defer func() {
		if r := recover(); r != nil {
			c.failedIn = c.phase
			result = value.None()
			err = Raise(IOError, "%s: native panicked: %v", name, r)
		}
		c.phase = Finalizing
		released, reclaimed := c.finalize()
		rec := CallRecord{
			Seq:       b.seq.Add(1),
			Name:      name,
			Args:      f.Kinds(),
			Outcome:   KindOf(err),
			Phase:     c.failedIn,
			Acquired:  len(c.buffers),
			Released:  released,
			Reclaimed: reclaimed,
			Bytes:     c.bytes,
			Elapsed:   time.Since(start),
		}
		if err == nil {
			rec.Phase = Finalizing
			rec.Result = result.String()
		} else {
			rec.Message = err.Error()
			rec.Code, _ = ExitCode(err)
		}
		b.logCall(rec, err)
		b.notify(rec)
	}()

	native := b.registry.Lookup(name)
	if native == nil {
		c.failedIn = Validating
		return value.None(), Raise(NameError, "no native named %q", name)
	}

	if err := native.Sig.Validate(name, f); err != nil {
		c.failedIn = Validating
		return value.None(), err
	}

	c.phase = Executing
	result, err = native.Impl(c)
	if err != nil {
		c.failedIn = Executing
		var ex *Exception
		if !errors.As(err, &ex) {
			err = wrap(IOError, err, "%s", name)
		}
		return value.None(), err
	}
	return result, nil
}

func (b *Bridge) logCall(rec CallRecord, err error) {
	switch rec.Outcome {
	case Ok:
		b.log.Debugf("%s%v -> %s", rec.Name, rec.Args, rec.Result)
	case IOError:
		b.log.Warningf("%s: %v", rec.Name, err)
	case SystemExit:
		b.log.Infof("%s: exit %d", rec.Name, rec.Code)
	default:
		b.log.Infof("%s: %v", rec.Name, err)
	}
}

func (b *Bridge) notify(rec CallRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, o := range b.observers {
		o.ObserveCall(rec)
	}
}

// Call is the state of one invocation. Buffers acquired through it are
// released when the call finishes, whatever the outcome.
type Call struct {
	Frame *Frame

	ctx      context.Context
	name     string
	bridge   *Bridge
	phase    Phase
	failedIn Phase
	buffers  []*Buffer
	bytes    int
}

// Context returns the caller's context
func (c *Call) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Name returns the native being called
func (c *Call) Name() string {
	return c.name
}

// Drivers returns the bridge's collaborators
func (c *Call) Drivers() *Drivers {
	return &c.bridge.drivers
}

// Acquire takes a zero-filled buffer of n bytes owned by this call.
// Allocation failure becomes a MemoryError.
func (c *Call) Acquire(n int) (*Buffer, error) {
	if c.bridge.alloc == nil {
		return nil, Raise(MemoryError, "%s: no allocator", c.name)
	}
	buf, err := c.bridge.alloc.Acquire(n)
	if err != nil {
		return nil, wrap(MemoryError, err, "%s", c.name)
	}
	c.buffers = append(c.buffers, buf)
	c.bytes += n
	return buf, nil
}

// finalize releases any buffer the adapter did not release itself. It
// returns how many buffers ended up released and how many of those it had
// to release.
func (c *Call) finalize() (released, reclaimed int) {
	for _, buf := range c.buffers {
		if !buf.Released() {
			buf.Release()
			reclaimed++
		}
		if buf.Released() {
			released++
		}
	}
	return released, reclaimed
}

// driverError turns a collaborator failure into an IOError
func (c *Call) driverError(err error) error {
	var ex *Exception
	if errors.As(err, &ex) {
		return ex
	}
	return wrap(IOError, err, "%s", c.name)
}

// missing reports an unconfigured collaborator
func (c *Call) missing(what string) error {
	return Raise(IOError, "%s: no %s driver", c.name, what)
}
