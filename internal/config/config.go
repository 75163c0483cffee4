package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxBaselineWindow bounds sensor.baseline_window so a baseline request
// finishes inside the web server's write timeout.
const MaxBaselineWindow = 5 * time.Second

type Config struct {
	Sensor SensorConfig `yaml:"sensor"`
	Web    WebConfig    `yaml:"web"`
	UDP    UDPConfig    `yaml:"udp"`
}

type SensorConfig struct {
	Enable bool `yaml:"enable"`
	// Transport is "linux" (/dev/i2c-N via ioctl) or "periph" (periph.io).
	Transport string `yaml:"transport"`
	I2CBus    int    `yaml:"i2c_bus"`
	// I2CDevice is the periph bus name; empty selects the first bus.
	I2CDevice string `yaml:"i2c_device"`
	Address   uint16 `yaml:"address"`
	// Oversampling is nil when absent so an explicit 0 is kept.
	Oversampling   *int          `yaml:"oversampling"`
	ReferencePa    float64       `yaml:"reference_pa"`
	Interval       time.Duration `yaml:"interval"`
	BaselineWindow time.Duration `yaml:"baseline_window"`
	// EOCPin is the BCM GPIO wired to the sensor's EOC output; 0 disables.
	EOCPin int `yaml:"eoc_pin"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

type UDPConfig struct {
	Dest     string        `yaml:"dest"`
	Interval time.Duration `yaml:"interval"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	s := &cfg.Sensor
	if s.Transport == "" {
		s.Transport = "linux"
	}
	if s.Transport != "linux" && s.Transport != "periph" {
		return Config{}, fmt.Errorf("sensor.transport must be linux or periph")
	}
	if s.I2CBus <= 0 {
		s.I2CBus = 1
	}
	if s.Address == 0 {
		s.Address = 0x77
	}
	if s.Address > 0x7F {
		return Config{}, fmt.Errorf("sensor.address must be a 7-bit i2c address")
	}
	if s.Oversampling == nil {
		s.Oversampling = new(int)
	}
	if *s.Oversampling < 0 || *s.Oversampling > 3 {
		return Config{}, fmt.Errorf("sensor.oversampling must be 0..3")
	}
	if s.ReferencePa == 0 {
		s.ReferencePa = 101325
	}
	if s.ReferencePa < 0 {
		return Config{}, fmt.Errorf("sensor.reference_pa must be > 0")
	}
	if s.Interval <= 0 {
		s.Interval = 1 * time.Second
	}
	if s.BaselineWindow <= 0 {
		s.BaselineWindow = 1 * time.Second
	}
	if s.BaselineWindow > MaxBaselineWindow {
		return Config{}, fmt.Errorf("sensor.baseline_window must be <= %s", MaxBaselineWindow)
	}
	if s.EOCPin < 0 {
		return Config{}, fmt.Errorf("sensor.eoc_pin must be >= 0")
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.UDP.Dest != "" && cfg.UDP.Interval <= 0 {
		cfg.UDP.Interval = 1 * time.Second
	}

	return cfg, nil
}

// OversamplingSetting returns the validated oversampling value.
func (s SensorConfig) OversamplingSetting() int {
	if s.Oversampling == nil {
		return 0
	}
	return *s.Oversampling
}
