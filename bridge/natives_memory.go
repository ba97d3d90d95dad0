package bridge

import (
	"encoding/binary"
	"math"

	"github.com/chazu/pmnative/value"
)

// Address widths of the memory devices
const (
	eepromAddrMask uint16 = 0xFF
	sramAddrMask   uint16 = 0xFFFF
)

func registerMemoryNatives(r *Registry) {
	str, i, list, flt := value.KindStr, value.KindInt, value.KindList, value.KindFloat

	r.Add("eeprom.read", Sig(str, i, i), func(c *Call) (value.Value, error) {
		return readBytes(c, c.Drivers().EEPROM, eepromAddrMask)
	}, "read(name, addr, num) - read num bytes from an EEPROM as a list")

	r.Add("eeprom.write", Sig(str, i, list, i), func(c *Call) (value.Value, error) {
		return writeBytes(c, c.Drivers().EEPROM, eepromAddrMask)
	}, "write(name, addr, data, num) - write num bytes of a list to an EEPROM")

	r.Add("sram.read", Sig(str, i, i), func(c *Call) (value.Value, error) {
		return readBytes(c, c.Drivers().SRAM, sramAddrMask)
	}, "read(name, addr, num) - read num bytes from SRAM as a list")

	r.Add("sram.write", Sig(str, i, list, i), func(c *Call) (value.Value, error) {
		return writeBytes(c, c.Drivers().SRAM, sramAddrMask)
	}, "write(name, addr, data, num) - write num bytes of a list to SRAM")

	r.Add("sram.read_string", Sig(str, i, i), readString,
		"read_string(name, addr, length) - read a string of at most length characters")

	r.Add("sram.write_string", Sig(str, i, str, i), writeString,
		"write_string(name, addr, string, length) - write length characters and a terminator")

	r.Add("sram.read_float", Sig(str, i), readFloat,
		"read_float(name, addr) - read a 4-byte float")

	r.Add("sram.write_float", Sig(str, i, flt), writeFloat,
		"write_float(name, addr, num) - write a 4-byte float")
}

// deviceArgs reads the (name, addr) pair every memory native starts with
func deviceArgs(c *Call, mask uint16) (string, uint16, error) {
	name, err := c.Frame.Str(0)
	if err != nil {
		return "", 0, err
	}
	addr, err := c.Frame.Int(1)
	if err != nil {
		return "", 0, err
	}
	return name, uint16(addr) & mask, nil
}

func lengthArg(c *Call, i int) (int, error) {
	n, err := c.Frame.Int(i)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, Raise(ValueError, "%s: negative length %d", c.Name(), n)
	}
	return int(n), nil
}

func readBytes(c *Call, drv MemoryDriver, mask uint16) (value.Value, error) {
	if drv == nil {
		return value.None(), c.missing("memory")
	}
	name, addr, err := deviceArgs(c, mask)
	if err != nil {
		return value.None(), err
	}
	num, err := lengthArg(c, 2)
	if err != nil {
		return value.None(), err
	}

	buf, err := c.Acquire(num)
	if err != nil {
		return value.None(), err
	}
	if err := drv.Read(name, addr, buf.Bytes()); err != nil {
		return value.None(), c.driverError(err)
	}
	list := BytesToList(buf.Bytes())
	buf.Release()
	return list, nil
}

func writeBytes(c *Call, drv MemoryDriver, mask uint16) (value.Value, error) {
	if drv == nil {
		return value.None(), c.missing("memory")
	}
	name, addr, err := deviceArgs(c, mask)
	if err != nil {
		return value.None(), err
	}
	data, err := c.Frame.List(2)
	if err != nil {
		return value.None(), err
	}
	num, err := lengthArg(c, 3)
	if err != nil {
		return value.None(), err
	}
	if err := checkByteList(data, num); err != nil {
		return value.None(), err
	}

	buf, err := c.Acquire(num)
	if err != nil {
		return value.None(), err
	}
	if err := ListToBytes(data, buf.Bytes()); err != nil {
		return value.None(), err
	}
	if err := drv.Write(name, addr, buf.Bytes()); err != nil {
		return value.None(), c.driverError(err)
	}
	buf.Release()
	return value.None(), nil
}

func readString(c *Call) (value.Value, error) {
	drv := c.Drivers().SRAM
	if drv == nil {
		return value.None(), c.missing("sram")
	}
	name, addr, err := deviceArgs(c, sramAddrMask)
	if err != nil {
		return value.None(), err
	}
	length, err := lengthArg(c, 2)
	if err != nil {
		return value.None(), err
	}

	// one extra byte for the terminator
	buf, err := c.Acquire(length + 1)
	if err != nil {
		return value.None(), err
	}
	if err := drv.Read(name, addr, buf.Bytes()); err != nil {
		return value.None(), c.driverError(err)
	}
	s := StringFromBytes(buf.Bytes()[:length])
	buf.Release()
	return s, nil
}

func writeString(c *Call) (value.Value, error) {
	drv := c.Drivers().SRAM
	if drv == nil {
		return value.None(), c.missing("sram")
	}
	name, addr, err := deviceArgs(c, sramAddrMask)
	if err != nil {
		return value.None(), err
	}
	s, err := c.Frame.StrValue(2)
	if err != nil {
		return value.None(), err
	}
	length, err := lengthArg(c, 3)
	if err != nil {
		return value.None(), err
	}

	err = BorrowString(s, length, func(src []byte) error {
		if err := drv.Write(name, addr, src); err != nil {
			return c.driverError(err)
		}
		return nil
	})
	if err != nil {
		return value.None(), err
	}
	return value.None(), nil
}

func readFloat(c *Call) (value.Value, error) {
	drv := c.Drivers().SRAM
	if drv == nil {
		return value.None(), c.missing("sram")
	}
	name, addr, err := deviceArgs(c, sramAddrMask)
	if err != nil {
		return value.None(), err
	}

	buf, err := c.Acquire(4)
	if err != nil {
		return value.None(), err
	}
	if err := drv.Read(name, addr, buf.Bytes()); err != nil {
		return value.None(), c.driverError(err)
	}
	bits := binary.LittleEndian.Uint32(buf.Bytes())
	buf.Release()
	return value.Float(math.Float32frombits(bits)), nil
}

func writeFloat(c *Call) (value.Value, error) {
	drv := c.Drivers().SRAM
	if drv == nil {
		return value.None(), c.missing("sram")
	}
	name, addr, err := deviceArgs(c, sramAddrMask)
	if err != nil {
		return value.None(), err
	}
	num, err := c.Frame.Float(2)
	if err != nil {
		return value.None(), err
	}

	buf, err := c.Acquire(4)
	if err != nil {
		return value.None(), err
	}
	binary.LittleEndian.PutUint32(buf.Bytes(), math.Float32bits(num))
	if err := drv.Write(name, addr, buf.Bytes()); err != nil {
		return value.None(), c.driverError(err)
	}
	buf.Release()
	return value.None(), nil
}
