package servo

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Mickael-Roger/go-st3215/sts"
)

// Config is the TOML bus description used by tools and examples.
//
//	port = "/dev/ttyUSB0"
//	baud = 1000000
//
//	[[servos]]
//	id = 1
//	name = "shoulder"
//	min_position = 400
//	max_position = 3600
type Config struct {
	Port   string        `toml:"port"`
	Baud   int           `toml:"baud"`
	Servos []ServoConfig `toml:"servos"`
}

// ServoConfig describes one expected bus member.
type ServoConfig struct {
	ID          int    `toml:"id"`
	Name        string `toml:"name"`
	MinPosition int    `toml:"min_position"`
	MaxPosition int    `toml:"max_position"`
}

// LoadConfig reads and validates a TOML bus description. A missing baud rate
// falls back to the bus default.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("servo: load config: %w", err)
	}

	if !meta.IsDefined("baud") {
		cfg.Baud = sts.DefaultBaudRate
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("servo: load config: %w", err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("%w: port is required", ErrInvalidArg)
	}
	if c.Baud <= 0 {
		return fmt.Errorf("%w: baud %d must be positive", ErrInvalidArg, c.Baud)
	}

	seen := make(map[int]string, len(c.Servos))
	for _, sc := range c.Servos {
		if sc.ID < 0 || sc.ID > int(sts.MaxDeviceID) {
			return fmt.Errorf("%w: servo id %d outside [0, %d]", ErrInvalidArg, sc.ID, sts.MaxDeviceID)
		}
		if prev, dup := seen[sc.ID]; dup {
			return fmt.Errorf("%w: servo id %d defined twice (%q, %q)", ErrInvalidArg, sc.ID, prev, sc.Name)
		}
		seen[sc.ID] = sc.Name

		if sc.MinPosition < 0 || sc.MaxPosition > MaxPosition || sc.MinPosition > sc.MaxPosition {
			return fmt.Errorf("%w: servo %d position limits [%d, %d] invalid", ErrInvalidArg, sc.ID, sc.MinPosition, sc.MaxPosition)
		}
	}

	return nil
}

// Lookup returns the configuration entry for id.
func (c Config) Lookup(id byte) (ServoConfig, bool) {
	for _, sc := range c.Servos {
		if sc.ID == int(id) {
			return sc, true
		}
	}

	return ServoConfig{}, false
}
