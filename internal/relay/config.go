package relay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/sweeney/relay-controller/internal/gpio"
)

// Channel is one relay circuit: an output line driving the coil and an
// optional trigger input. Not all channels are trigger-driven.
type Channel struct {
	Name    string `yaml:"name"`
	Output  int    `yaml:"output"`
	Trigger *int   `yaml:"trigger,omitempty"`
}

// Config describes the channel map. Observed relay boards are active-low,
// so ActiveHigh defaults to false.
type Config struct {
	ActiveHigh bool      `yaml:"active_high"`
	Channels   []Channel `yaml:"channels"`
}

// DefaultConfig returns the 2-channel board layout: relay coils on GPIO 4
// and 17, toggle triggers on GPIO 19 and 26.
func DefaultConfig() Config {
	t1, t2 := gpio.DefaultTrigger1, gpio.DefaultTrigger2
	return Config{
		Channels: []Channel{
			{Name: "relay-1", Output: gpio.DefaultOutput1, Trigger: &t1},
			{Name: "relay-2", Output: gpio.DefaultOutput2, Trigger: &t2},
		},
	}
}

// LoadConfig reads a YAML channel map.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// validate rejects empty channel lists and pin collisions before any line
// is touched.
func (c Config) validate() error {
	if len(c.Channels) == 0 {
		return &ConfigError{Err: fmt.Errorf("no channels configured")}
	}
	seen := make(map[int]string)
	claim := func(pin int, role string) error {
		if prev, ok := seen[pin]; ok {
			return &ConfigError{Pin: pin, Err: fmt.Errorf("pin claimed as both %s and %s", prev, role)}
		}
		if pin < 0 {
			return &ConfigError{Pin: pin, Err: fmt.Errorf("negative pin number")}
		}
		seen[pin] = role
		return nil
	}
	for i, ch := range c.Channels {
		if err := claim(ch.Output, fmt.Sprintf("output of channel %d", i)); err != nil {
			return err
		}
		if ch.Trigger != nil {
			if err := claim(*ch.Trigger, fmt.Sprintf("trigger of channel %d", i)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c Config) outputs() []int {
	out := make([]int, len(c.Channels))
	for i, ch := range c.Channels {
		out[i] = ch.Output
	}
	return out
}
