package driver

import (
	"errors"
	"fmt"
	"sync"
)

// ADCMax is the largest reading of the 10-bit converter
const ADCMax = 1023

// ErrNoChannel indicates the ADC has no such input channel
var ErrNoChannel = errors.New("no such analog channel")

// StaticADC returns fixed readings per channel. It implements
// bridge.AnalogDriver.
type StaticADC struct {
	mu       sync.Mutex
	channels map[int]uint16
}

// NewStaticADC creates an ADC with the given channel readings
func NewStaticADC(channels map[int]uint16) (*StaticADC, error) {
	a := &StaticADC{channels: make(map[int]uint16, len(channels))}
	for ch, raw := range channels {
		if err := a.Set(ch, raw); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Set changes the reading returned for ch
func (a *StaticADC) Set(ch int, raw uint16) error {
	if ch < 0 {
		return fmt.Errorf("channel %d: %w", ch, ErrNoChannel)
	}
	if raw > ADCMax {
		return fmt.Errorf("channel %d: reading %d exceeds %d", ch, raw, ADCMax)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.channels[ch] = raw
	return nil
}

// Sample returns the current reading for ch
func (a *StaticADC) Sample(ch int) (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	raw, ok := a.channels[ch]
	if !ok {
		return 0, fmt.Errorf("channel %d: %w", ch, ErrNoChannel)
	}
	return raw, nil
}
