package bridge

import (
	"context"

	"github.com/chazu/pmnative/value"
)

// MemoryDriver reads and writes bytes on a named memory device. Drivers
// are synchronous and must not keep dst or src after returning.
type MemoryDriver interface {
	Read(name string, addr uint16, dst []byte) error
	Write(name string, addr uint16, src []byte) error
}

// AnalogDriver samples an ADC channel
type AnalogDriver interface {
	Sample(channel int) (uint16, error)
}

// PinDriver controls digital pins
type PinDriver interface {
	SetOutput(pin int, level bool) error
	Write(pin int, level bool) error
	Read(pin int) (bool, error)
}

// Clock reports milliseconds since the interpreter started. The counter is
// unsigned and wraps.
type Clock interface {
	Ticks() uint32
}

// ByteIO is the platform's default byte stream
type ByteIO interface {
	PutByte(b byte) error
	GetByte() (byte, error)
}

// HeapStats reports interpreter heap usage
type HeapStats interface {
	Avail() int
	Size() int
	Collect()
}

// TaskScheduler runs cooperative tasks. Spawn adds fn to the run set;
// Yield gives up the execution slot of the calling task.
type TaskScheduler interface {
	Spawn(fn value.Value) error
	Yield(ctx context.Context) error
}

// Drivers groups the collaborators the natives call into. A nil field
// makes the natives that need it fail with IOError.
type Drivers struct {
	EEPROM    MemoryDriver
	SRAM      MemoryDriver
	Analog    AnalogDriver
	Pins      PinDriver
	Clock     Clock
	Console   ByteIO
	Heap      HeapStats
	Scheduler TaskScheduler
}
