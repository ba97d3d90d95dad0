// Package board assembles a bridge and its simulated drivers from a board
// configuration.
package board

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/chazu/pmnative/bridge"
	"github.com/chazu/pmnative/config"
	"github.com/chazu/pmnative/driver"
	"github.com/chazu/pmnative/sched"
	"github.com/chazu/pmnative/trace"
	"github.com/chazu/pmnative/value"
)

// Options override the host side of the board
type Options struct {
	Stdin   io.Reader    // console input, defaults to os.Stdin
	Stdout  io.Writer    // console output, defaults to os.Stdout
	Clock   bridge.Clock // defaults to a monotonic clock
	NoTrace bool         // ignore the configured trace file
}

// Board is a configured bridge with its drivers.
type Board struct {
	Config    *config.Config
	Bridge    *bridge.Bridge
	Heap      *bridge.Heap
	EEPROM    *driver.Bus
	SRAM      *driver.Bus
	Analog    *driver.StaticADC
	Pins      *driver.PinBank
	Scheduler *sched.Scheduler
	Trace     *trace.Writer

	stores map[string]*driver.Store
	log    commonlog.Logger
	mu     sync.Mutex
	closed bool
}

// New builds a board from cfg. A nil cfg means config.Default().
func New(cfg *config.Config, opts Options) (*Board, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Board{
		Config: cfg,
		EEPROM: driver.NewBus(),
		SRAM:   driver.NewBus(),
		stores: make(map[string]*driver.Store),
		log:    commonlog.GetLogger("pmnative.board"),
	}

	// Memory devices
	for _, m := range cfg.Memory {
		dev, err := b.device(m)
		if err != nil {
			b.Close()
			return nil, err
		}
		if m.Kind == config.KindEEPROM {
			b.EEPROM.Attach(m.Name, dev)
		} else {
			b.SRAM.Attach(m.Name, dev)
		}
	}

	// Analog inputs
	readings, err := cfg.Analog.Readings()
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Analog, err = driver.NewStaticADC(readings)
	if err != nil {
		b.Close()
		return nil, err
	}

	b.Pins = driver.NewPinBank(cfg.Board.Pins)
	b.Heap = bridge.NewHeap(cfg.Board.HeapSize)
	b.Scheduler = sched.New()

	clock := opts.Clock
	if clock == nil {
		clock = driver.NewMonotonicClock()
	}
	stdin, stdout := opts.Stdin, opts.Stdout
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	// Natives, filtered by the capability policy
	reg := bridge.DefaultRegistry()
	cfg.Policy().Apply(reg)

	b.Bridge = bridge.New(reg, bridge.Drivers{
		EEPROM:    b.EEPROM,
		SRAM:      b.SRAM,
		Analog:    b.Analog,
		Pins:      b.Pins,
		Clock:     clock,
		Console:   driver.NewStreamConsole(stdin, stdout),
		Heap:      b.Heap,
		Scheduler: b.Scheduler,
	}, b.Heap)

	// Call trace
	if path := cfg.Resolve(cfg.Trace.Path); path != "" && !opts.NoTrace {
		if err := b.TraceTo(path); err != nil {
			b.Close()
			return nil, err
		}
	}

	b.log.Infof("board %s: %d natives, heap %d bytes, eeprom %v, sram %v",
		cfg.Board.Name, reg.Len(), cfg.Board.HeapSize, b.EEPROM.Names(), b.SRAM.Names())
	return b, nil
}

// device creates the memory device described by m. SQLite devices
// sharing a path share one database.
func (b *Board) device(m config.Memory) (driver.Device, error) {
	if m.Backing == config.BackingRAM {
		return driver.NewRAMDevice(m.Size, m.Fill()), nil
	}
	path := b.Config.Resolve(m.Path)
	store, ok := b.stores[path]
	if !ok {
		var err error
		store, err = driver.OpenStore(path)
		if err != nil {
			return nil, fmt.Errorf("memory %s: %w", m.Name, err)
		}
		b.stores[path] = store
	}
	return store.Device(m.Kind+"/"+m.Name, m.Size, m.Fill()), nil
}

// TraceTo starts recording calls to a CBOR trace file at path
func (b *Board) TraceTo(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Trace != nil {
		return errors.New("already tracing")
	}
	w, err := trace.Create(path)
	if err != nil {
		return err
	}
	b.Trace = w
	b.Bridge.Observe(w)
	b.log.Debugf("tracing calls to %s", path)
	return nil
}

// Call invokes a native by name outside any task
func (b *Board) Call(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	return b.Bridge.Invoke(ctx, name, args...)
}

// Run spawns main as the first task and runs the scheduler until every
// task has finished or one raises SystemExit.
func (b *Board) Run(ctx context.Context, main value.Value) error {
	if err := b.Scheduler.Spawn(main); err != nil {
		return err
	}
	return b.Scheduler.Run(ctx)
}

// Close shuts the board down: the trace is flushed and persistent
// memories are closed.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.Trace != nil {
		errs = append(errs, b.Trace.Close())
	}
	for _, bus := range []*driver.Bus{b.EEPROM, b.SRAM} {
		if bus != nil {
			errs = append(errs, bus.Close())
		}
	}
	for _, s := range b.stores {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
