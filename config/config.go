// Package config handles board.toml and board.yaml board descriptions.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by FindAndLoad when no board file exists in the
// start directory or any of its parents.
var ErrNotFound = errors.New("no board file found")

// FileNames are the board file names FindAndLoad looks for, in order
var FileNames = []string{"board.toml", "board.yaml", "board.yml"}

// Memory device kinds
const (
	KindEEPROM = "eeprom"
	KindSRAM   = "sram"
)

// Memory device backings
const (
	BackingRAM    = "ram"
	BackingSQLite = "sqlite"
)

// Config describes a simulated board.
type Config struct {
	Board        Board        `toml:"board" yaml:"board"`
	Log          Log          `toml:"log" yaml:"log"`
	Memory       []Memory     `toml:"memory" yaml:"memory"`
	Analog       Analog       `toml:"analog" yaml:"analog"`
	Capabilities Capabilities `toml:"capabilities" yaml:"capabilities"`
	Trace        Trace        `toml:"trace" yaml:"trace"`

	// Dir is the directory containing the board file (set at load time).
	Dir string `toml:"-" yaml:"-"`
}

// Board holds the interpreter-wide settings.
type Board struct {
	Name     string `toml:"name" yaml:"name"`
	HeapSize int    `toml:"heap-size" yaml:"heap-size"`
	Pins     int    `toml:"pins" yaml:"pins"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity" yaml:"verbosity"`
	Path      string `toml:"path" yaml:"path"`
}

// Memory is one memory device on the EEPROM or SRAM bus.
type Memory struct {
	Name    string `toml:"name" yaml:"name"`
	Kind    string `toml:"kind" yaml:"kind"`
	Size    int    `toml:"size" yaml:"size"`
	Backing string `toml:"backing" yaml:"backing"`
	Path    string `toml:"path" yaml:"path"`
}

// Fill returns the value of a never-written cell
func (m Memory) Fill() byte {
	if m.Kind == KindEEPROM {
		return 0xFF
	}
	return 0
}

// Analog holds fixed ADC readings keyed by channel number.
type Analog struct {
	Channels map[string]int `toml:"channels" yaml:"channels"`
}

// Readings converts the channel table to numeric channels
func (a Analog) Readings() (map[int]uint16, error) {
	out := make(map[int]uint16, len(a.Channels))
	for k, v := range a.Channels {
		ch, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("analog channel %q: not a number", k)
		}
		if v < 0 || v > 0xFFFF {
			return nil, fmt.Errorf("analog channel %d: reading %d out of range", ch, v)
		}
		out[ch] = uint16(v)
	}
	return out, nil
}

// Capabilities lists which natives are exposed to scripts.
type Capabilities struct {
	Allow []string `toml:"allow" yaml:"allow"`
	Deny  []string `toml:"deny" yaml:"deny"`
}

// Trace configures the call trace.
type Trace struct {
	Path string `toml:"path" yaml:"path"`
}

// Default returns the configuration used when no board file is given: a
// 256-byte EEPROM and a 64 KiB SRAM, both volatile.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load parses a board file. The format is chosen by extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &c)
	default:
		return nil, fmt.Errorf("%s: unknown board file format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// FindAndLoad walks up from startDir to find a board file, then loads it.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return Load(path)
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, ErrNotFound
		}
		dir = parent
	}
}

func (c *Config) applyDefaults() {
	if c.Board.Name == "" {
		c.Board.Name = "host"
	}
	if c.Board.HeapSize == 0 {
		c.Board.HeapSize = 8192
	}
	if c.Board.Pins == 0 {
		c.Board.Pins = 32
	}
	if len(c.Memory) == 0 {
		c.Memory = []Memory{
			{Name: KindEEPROM, Kind: KindEEPROM, Size: 256},
			{Name: KindSRAM, Kind: KindSRAM, Size: 1 << 16},
		}
	}
	for i := range c.Memory {
		m := &c.Memory[i]
		if m.Backing == "" {
			m.Backing = BackingRAM
		}
		if m.Size == 0 {
			if m.Kind == KindEEPROM {
				m.Size = 256
			} else {
				m.Size = 1 << 16
			}
		}
	}
}

// Validate reports the first inconsistency in the configuration
func (c *Config) Validate() error {
	if c.Board.HeapSize < 0 || c.Board.HeapSize > math.MaxInt32 {
		return fmt.Errorf("board: heap-size %d out of range", c.Board.HeapSize)
	}
	if c.Board.Pins < 0 {
		return fmt.Errorf("board: negative pin count %d", c.Board.Pins)
	}
	seen := make(map[string]bool)
	for _, m := range c.Memory {
		if m.Name == "" {
			return errors.New("memory: device without a name")
		}
		key := m.Kind + "/" + m.Name
		if seen[key] {
			return fmt.Errorf("memory %s: declared twice", m.Name)
		}
		seen[key] = true
		switch m.Kind {
		case KindEEPROM, KindSRAM:
		default:
			return fmt.Errorf("memory %s: unknown kind %q", m.Name, m.Kind)
		}
		switch m.Backing {
		case BackingRAM:
		case BackingSQLite:
			if m.Path == "" {
				return fmt.Errorf("memory %s: sqlite backing needs a path", m.Name)
			}
		default:
			return fmt.Errorf("memory %s: unknown backing %q", m.Name, m.Backing)
		}
		if m.Size < 0 || m.Size > 1<<16 {
			return fmt.Errorf("memory %s: size %d out of range", m.Name, m.Size)
		}
	}
	if _, err := c.Analog.Readings(); err != nil {
		return err
	}
	return nil
}

// Resolve returns path relative to the board file's directory
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}
