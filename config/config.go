package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
	"senao.com/spistm32/spidev"
)

type Config struct {
	SPI     SPIConfig     `yaml:"SPI"`
	Logging LoggingConfig `yaml:"Logging"`
}

// SPIConfig holds the values requested from the driver. The mode is not
// configurable: the STM32 peer always runs with only CPHA set.
type SPIConfig struct {
	BitsPerWord int    `yaml:"BitsPerWord"`
	MaxSpeed    string `yaml:"MaxSpeed"`
	maxSpeedHz  uint32
}

type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	conf := &Config{
		SPI: SPIConfig{
			BitsPerWord: 8,
			MaxSpeed:    "10MHz",
			maxSpeedHz:  10000000,
		},
		Logging: LoggingConfig{
			Level:  "WARN",
			Format: "text",
		},
	}
	return conf
}

// ReadConfig decodes cfile on top of the defaults and validates the result.
func ReadConfig(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("can't open config file %s: %w", cfile, err)
	}
	defer f.Close()

	conf := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(conf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't decode config file %s: %w", cfile, err)
	}
	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", cfile, err)
	}
	return conf, nil
}

func (c *Config) validate() error {
	if c.SPI.BitsPerWord < 1 || c.SPI.BitsPerWord > 32 {
		return fmt.Errorf("SPI.BitsPerWord must be between 1 and 32, got %d", c.SPI.BitsPerWord)
	}
	hz, err := parseSpeed(c.SPI.MaxSpeed)
	if err != nil {
		return fmt.Errorf("SPI.MaxSpeed: %w", err)
	}
	c.SPI.maxSpeedHz = hz

	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("Logging.Level must be one of DEBUG, INFO, WARN, ERROR, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("Logging.Format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// parseSpeed accepts a plain number of Hz or a periph frequency such as
// "10MHz".
func parseSpeed(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	var hz int64
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		hz = n
	} else {
		var f physic.Frequency
		if err := f.Set(s); err != nil {
			return 0, err
		}
		hz = int64(f / physic.Hertz)
	}
	if hz <= 0 || hz > math.MaxUint32 {
		return 0, fmt.Errorf("speed must be between 1Hz and %dHz, got %q", uint32(math.MaxUint32), s)
	}
	return uint32(hz), nil
}

// Settings returns the parameters to request from the SPI driver.
func (c *Config) Settings() spidev.Settings {
	return spidev.Settings{
		Mode:        spidev.CPHA,
		BitsPerWord: uint8(c.SPI.BitsPerWord),
		MaxSpeedHz:  c.SPI.maxSpeedHz,
	}
}
