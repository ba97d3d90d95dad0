// Package driver provides simulated driver collaborators for the bridge:
// memory devices on a named bus, an ADC, a GPIO bank, clocks and a byte
// console. They stand in for the hardware drivers when the bridge runs on
// a host.
package driver

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/tliron/commonlog"
)

var (
	// ErrNoDevice indicates the named device is not on the bus
	ErrNoDevice = errors.New("no such device")
	// ErrOutOfRange indicates an access past the end of a device
	ErrOutOfRange = errors.New("address out of range")
	// ErrClosed indicates an access to a device whose store was closed
	ErrClosed = errors.New("store closed")
)

// Device is a byte-addressable memory
type Device interface {
	io.ReaderAt
	io.WriterAt
	Size() int
}

// Bus maps device names to devices. It implements bridge.MemoryDriver.
type Bus struct {
	mu      sync.RWMutex
	devices map[string]Device
	log     commonlog.Logger
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		devices: make(map[string]Device),
		log:     commonlog.GetLogger("pmnative.driver"),
	}
}

// Attach adds a device under name, replacing any previous one
func (b *Bus) Attach(name string, dev Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices[name] = dev
	b.log.Debugf("attached %s (%d bytes)", name, dev.Size())
}

// Device looks up a device by name
func (b *Bus) Device(name string) (Device, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	dev, ok := b.devices[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoDevice)
	}
	return dev, nil
}

// Names returns the attached device names in sorted order
func (b *Bus) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.devices))
	for n := range b.devices {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (b *Bus) span(name string, addr uint16, n int) (Device, error) {
	dev, err := b.Device(name)
	if err != nil {
		return nil, err
	}
	if int(addr)+n > dev.Size() {
		return nil, fmt.Errorf("%s: %d bytes at 0x%04x (size %d): %w", name, n, addr, dev.Size(), ErrOutOfRange)
	}
	return dev, nil
}

// Read fills dst from the device starting at addr
func (b *Bus) Read(name string, addr uint16, dst []byte) error {
	dev, err := b.span(name, addr, len(dst))
	if err != nil {
		return err
	}
	if _, err := dev.ReadAt(dst, int64(addr)); err != nil {
		return fmt.Errorf("%s: read at 0x%04x: %w", name, addr, err)
	}
	return nil
}

// Write stores src on the device starting at addr
func (b *Bus) Write(name string, addr uint16, src []byte) error {
	dev, err := b.span(name, addr, len(src))
	if err != nil {
		return err
	}
	if _, err := dev.WriteAt(src, int64(addr)); err != nil {
		return fmt.Errorf("%s: write at 0x%04x: %w", name, addr, err)
	}
	return nil
}

// Close closes every device that needs closing
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var errs []error
	for _, dev := range b.devices {
		if c, ok := dev.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// RAMDevice keeps its contents in process memory
type RAMDevice struct {
	mu   sync.Mutex
	data []byte
}

// NewRAMDevice creates a device of size bytes, each set to fill. EEPROMs
// come out of the factory erased to 0xFF; SRAM powers up as 0x00.
func NewRAMDevice(size int, fill byte) *RAMDevice {
	data := make([]byte, size)
	if fill != 0 {
		for i := range data {
			data[i] = fill
		}
	}
	return &RAMDevice{data: data}
}

// Size returns the capacity in bytes
func (d *RAMDevice) Size() int {
	return len(d.data)
}

// ReadAt implements io.ReaderAt
func (d *RAMDevice) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, ErrOutOfRange
	}
	return copy(p, d.data[off:]), nil
}

// WriteAt implements io.WriterAt
func (d *RAMDevice) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if off < 0 || off+int64(len(p)) > int64(len(d.data)) {
		return 0, ErrOutOfRange
	}
	return copy(d.data[off:], p), nil
}
