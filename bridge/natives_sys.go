package bridge

import (
	"math"

	"github.com/chazu/pmnative/value"
)

func registerSysNatives(r *Registry) {
	i, fn := value.KindInt, value.KindFunc

	r.Add("sys.clock", Sig(), clock,
		"clock() - milliseconds since the interpreter started")

	r.Add("sys.putb", Sig(i), func(c *Call) (value.Value, error) {
		con := c.Drivers().Console
		if con == nil {
			return value.None(), c.missing("console")
		}
		b, err := c.Frame.Int(0)
		if err != nil {
			return value.None(), err
		}
		if err := con.PutByte(byte(b & 0xFF)); err != nil {
			return value.None(), c.driverError(err)
		}
		return value.None(), nil
	}, "putb(b) - send the low byte of b to the default output")

	r.Add("sys.getb", Sig(), func(c *Call) (value.Value, error) {
		con := c.Drivers().Console
		if con == nil {
			return value.None(), c.missing("console")
		}
		b, err := con.GetByte()
		if err != nil {
			return value.None(), c.driverError(err)
		}
		return value.Int(int32(b)), nil
	}, "getb() - read one byte from the default input")

	r.Add("sys.heap", Sig(), heap,
		"heap() - tuple of (available, total) heap bytes")

	r.Add("sys.gc", Sig(), func(c *Call) (value.Value, error) {
		if h := c.Drivers().Heap; h != nil {
			h.Collect()
		}
		return value.None(), nil
	}, "gc() - run the garbage collector")

	r.Add("sys.run", Sig(fn), func(c *Call) (value.Value, error) {
		s := c.Drivers().Scheduler
		if s == nil {
			return value.None(), c.missing("scheduler")
		}
		f, err := c.Frame.Func(0)
		if err != nil {
			return value.None(), err
		}
		if err := s.Spawn(f); err != nil {
			return value.None(), c.driverError(err)
		}
		return value.None(), nil
	}, "run(f) - run f as a new task sharing the global namespace")

	r.Add("sys.thread_yield", Sig(), func(c *Call) (value.Value, error) {
		if s := c.Drivers().Scheduler; s != nil {
			if err := s.Yield(c.Context()); err != nil {
				return value.None(), c.driverError(err)
			}
		}
		return value.None(), nil
	}, "thread_yield() - give up the rest of this task's slot")

	r.Add("sys.exit", Sig(i).Optional(1), func(c *Call) (value.Value, error) {
		var code int32
		if c.Frame.Count() == 1 {
			n, err := c.Frame.Int(0)
			if err != nil {
				return value.None(), err
			}
			code = n
		}
		return value.None(), Exit(code)
	}, "exit([code]) - stop the program")
}

func clock(c *Call) (value.Value, error) {
	clk := c.Drivers().Clock
	if clk == nil {
		return value.None(), c.missing("clock")
	}
	t := clk.Ticks()
	// the counter is unsigned, ints are signed
	if int32(t) < 0 {
		return value.None(), Raise(ValueError, "clock overflow: %d ms", t)
	}
	return value.Int(int32(t)), nil
}

func heap(c *Call) (value.Value, error) {
	h := c.Drivers().Heap
	if h == nil {
		return value.None(), c.missing("heap")
	}
	total := h.Size()
	avail := h.Avail()
	if avail < 0 || total < 0 || avail > total {
		return value.None(), Raise(ValueError, "inconsistent heap statistics: %d of %d", avail, total)
	}
	if total > math.MaxInt32 {
		return value.None(), Raise(ValueError, "heap of %d bytes does not fit in an int", total)
	}
	return value.Tuple(value.Int(int32(avail)), value.Int(int32(total))), nil
}
