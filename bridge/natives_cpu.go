package bridge

import (
	"github.com/chazu/pmnative/value"
)

// TMP36 transfer function: 5 V reference over a 10-bit ADC, 500 mV offset,
// 10 mV per degree.
const (
	adcMillivoltsPerStep = 5000.0 / 1024.0
	tmp36OffsetMillivolt = 500
	tmp36MillivoltPerDeg = 10
)

// Celsius converts a raw TMP36 reading to degrees
func Celsius(raw uint16) float32 {
	t := float32(raw) * adcMillivoltsPerStep
	t -= tmp36OffsetMillivolt
	return t / tmp36MillivoltPerDeg
}

func registerCPUNatives(r *Registry) {
	i := value.KindInt

	r.Add("tmp36.read", Sig(i), func(c *Call) (value.Value, error) {
		raw, err := sample(c)
		if err != nil {
			return value.None(), err
		}
		return value.Float(Celsius(raw)), nil
	}, "read(channel) - temperature in degrees Celsius from a TMP36")

	r.Add("cpu.analog_read", Sig(i), func(c *Call) (value.Value, error) {
		raw, err := sample(c)
		if err != nil {
			return value.None(), err
		}
		return value.Int(int32(raw)), nil
	}, "analog_read(channel) - raw ADC reading")

	r.Add("cpu.set_output", Sig(i, i), func(c *Call) (value.Value, error) {
		return pinWrite(c, true)
	}, "set_output(pin, level) - make pin an output driven at level")

	r.Add("cpu.write", Sig(i, i), func(c *Call) (value.Value, error) {
		return pinWrite(c, false)
	}, "write(pin, level) - drive an output pin")

	r.Add("cpu.read", Sig(i), func(c *Call) (value.Value, error) {
		pins := c.Drivers().Pins
		if pins == nil {
			return value.None(), c.missing("gpio")
		}
		pin, err := c.Frame.Int(0)
		if err != nil {
			return value.None(), err
		}
		level, err := pins.Read(int(pin))
		if err != nil {
			return value.None(), c.driverError(err)
		}
		if level {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	}, "read(pin) - read a pin level as 0 or 1")
}

func sample(c *Call) (uint16, error) {
	adc := c.Drivers().Analog
	if adc == nil {
		return 0, c.missing("analog")
	}
	ch, err := c.Frame.Int(0)
	if err != nil {
		return 0, err
	}
	if ch < 0 {
		return 0, Raise(ValueError, "%s: negative channel %d", c.Name(), ch)
	}
	raw, err := adc.Sample(int(ch))
	if err != nil {
		return 0, c.driverError(err)
	}
	return raw, nil
}

func pinWrite(c *Call, output bool) (value.Value, error) {
	pins := c.Drivers().Pins
	if pins == nil {
		return value.None(), c.missing("gpio")
	}
	pin, err := c.Frame.Int(0)
	if err != nil {
		return value.None(), err
	}
	level, err := c.Frame.Int(1)
	if err != nil {
		return value.None(), err
	}
	if output {
		err = pins.SetOutput(int(pin), level != 0)
	} else {
		err = pins.Write(int(pin), level != 0)
	}
	if err != nil {
		return value.None(), c.driverError(err)
	}
	return value.None(), nil
}
