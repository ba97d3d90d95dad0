package bridge

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chazu/pmnative/value"
)

var errDriver = errors.New("bus fault")

// memStub is a MemoryDriver over per-device byte arrays
type memStub struct {
	devs    map[string][]byte
	failOn  string // "read" or "write"
	lastSrc []byte
}

func newMemStub(names ...string) *memStub {
	m := &memStub{devs: make(map[string][]byte)}
	for _, n := range names {
		m.devs[n] = make([]byte, 0x10000)
	}
	return m
}

func (m *memStub) Read(name string, addr uint16, dst []byte) error {
	if m.failOn == "read" {
		return errDriver
	}
	dev, ok := m.devs[name]
	if !ok {
		return fmt.Errorf("no device %q", name)
	}
	copy(dst, dev[int(addr):])
	return nil
}

func (m *memStub) Write(name string, addr uint16, src []byte) error {
	if m.failOn == "write" {
		return errDriver
	}
	dev, ok := m.devs[name]
	if !ok {
		return fmt.Errorf("no device %q", name)
	}
	m.lastSrc = src
	copy(dev[int(addr):], src)
	return nil
}

type adcStub map[int]uint16

func (a adcStub) Sample(ch int) (uint16, error) {
	raw, ok := a[ch]
	if !ok {
		return 0, errDriver
	}
	return raw, nil
}

type pinStub struct {
	levels map[int]bool
	output map[int]bool
}

func newPinStub() *pinStub {
	return &pinStub{levels: map[int]bool{}, output: map[int]bool{}}
}

func (p *pinStub) SetOutput(pin int, level bool) error {
	p.output[pin] = true
	p.levels[pin] = level
	return nil
}

func (p *pinStub) Write(pin int, level bool) error {
	if !p.output[pin] {
		return errDriver
	}
	p.levels[pin] = level
	return nil
}

func (p *pinStub) Read(pin int) (bool, error) {
	return p.levels[pin], nil
}

type clockStub uint32

func (c clockStub) Ticks() uint32 { return uint32(c) }

type consoleStub struct {
	out []byte
	in  []byte
}

func (c *consoleStub) PutByte(b byte) error {
	c.out = append(c.out, b)
	return nil
}

func (c *consoleStub) GetByte() (byte, error) {
	if len(c.in) == 0 {
		return 0, errDriver
	}
	b := c.in[0]
	c.in = c.in[1:]
	return b, nil
}

type schedStub struct {
	spawned []value.Value
	yields  int
}

func (s *schedStub) Spawn(fn value.Value) error {
	s.spawned = append(s.spawned, fn)
	return nil
}

func (s *schedStub) Yield(ctx context.Context) error {
	s.yields++
	return ctx.Err()
}

type task struct{}

func (task) Call(ctx context.Context, args []value.Value) (value.Value, error) {
	return value.None(), nil
}

// countingAlloc records every acquisition and release
type countingAlloc struct {
	acquired int
	released int
}

func (a *countingAlloc) Acquire(n int) (*Buffer, error) {
	a.acquired++
	return NewBuffer(n, func(int) { a.released++ }), nil
}

type fixture struct {
	bridge  *Bridge
	heap    *Heap
	mem     *memStub
	pins    *pinStub
	console *consoleStub
	sched   *schedStub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		heap:    NewHeap(1 << 16),
		mem:     newMemStub("24c02", "23k256"),
		pins:    newPinStub(),
		console: &consoleStub{},
		sched:   &schedStub{},
	}
	f.bridge = New(nil, Drivers{
		EEPROM:    f.mem,
		SRAM:      f.mem,
		Analog:    adcStub{0: 204, 1: 1023},
		Pins:      f.pins,
		Clock:     clockStub(1500),
		Console:   f.console,
		Heap:      f.heap,
		Scheduler: f.sched,
	}, f.heap)
	return f
}

func (f *fixture) call(name string, args ...value.Value) (value.Value, error) {
	return f.bridge.Invoke(context.Background(), name, args...)
}

// sampleArg returns a well-formed argument of kind k
func sampleArg(k value.Kind) value.Value {
	switch k {
	case value.KindInt:
		return value.Int(1)
	case value.KindFloat:
		return value.Float(1)
	case value.KindStr:
		return value.Str("24c02")
	case value.KindList:
		return value.ListOf(value.Int(1))
	case value.KindTuple:
		return value.Tuple()
	case value.KindFunc:
		return value.Func(task{})
	}
	return value.None()
}

// wrongArg returns an argument whose kind differs from k
func wrongArg(k value.Kind) value.Value {
	if k == value.KindStr {
		return value.Int(0)
	}
	return value.Str("wrong")
}

func byteList(bs ...byte) value.Value {
	l := value.NewList()
	for _, b := range bs {
		l.Append(value.Int(int32(b)))
	}
	return value.FromList(l)
}

func wantKind(t *testing.T, err error, want ExceptionKind) {
	t.Helper()
	if got := KindOf(err); got != want {
		t.Fatalf("outcome = %v (%v), want %v", got, err, want)
	}
}
