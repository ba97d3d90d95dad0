package driver

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNoPin indicates a pin number outside the bank
	ErrNoPin = errors.New("no such pin")
	// ErrNotOutput indicates a write to a pin configured as input
	ErrNotOutput = errors.New("pin is not an output")
)

// PinBank is a bank of digital pins. It implements bridge.PinDriver.
type PinBank struct {
	mu     sync.Mutex
	output []bool
	level  []bool
}

// NewPinBank creates a bank of n pins, all inputs reading low
func NewPinBank(n int) *PinBank {
	return &PinBank{output: make([]bool, n), level: make([]bool, n)}
}

func (p *PinBank) check(pin int) error {
	if pin < 0 || pin >= len(p.level) {
		return fmt.Errorf("pin %d: %w", pin, ErrNoPin)
	}
	return nil
}

// SetOutput configures pin as an output driven at level
func (p *PinBank) SetOutput(pin int, level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(pin); err != nil {
		return err
	}
	p.output[pin] = true
	p.level[pin] = level
	return nil
}

// Write drives an output pin high or low
func (p *PinBank) Write(pin int, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(pin); err != nil {
		return err
	}
	if !p.output[pin] {
		return fmt.Errorf("pin %d: %w", pin, ErrNotOutput)
	}
	p.level[pin] = high
	return nil
}

// Read returns the level of pin
func (p *PinBank) Read(pin int) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(pin); err != nil {
		return false, err
	}
	return p.level[pin], nil
}

// Drive sets the level seen on an input pin, as an external signal would.
// Output pins ignore it.
func (p *PinBank) Drive(pin int, high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.check(pin); err != nil {
		return err
	}
	if !p.output[pin] {
		p.level[pin] = high
	}
	return nil
}
