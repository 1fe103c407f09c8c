package main

import (
	"os"

	"gopkg.in/yaml.v2"
)

// config is the process-level controls entry point named in spec §6: bus
// selection, site location, storage path, and the user→credential-hash map
// the (out-of-scope) auth boundary reads. Loaded once at process start,
// matching periph-home's own single-file YAML manifest approach. Latitude
// and Longitude are only logged at startup (the astronomical ValueExpr
// terms take their coordinates as operands), and StorePath is not used:
// storage is in memory.
type config struct {
	I2CBus    int                `yaml:"i2c_bus"`
	Latitude  float64            `yaml:"latitude"`
	Longitude float64            `yaml:"longitude"`
	StorePath string             `yaml:"store_path"`
	Users     map[string]string  `yaml:"users"` // username -> credential hash
	Devices   []deviceConfig     `yaml:"devices"`
}

type deviceConfig struct {
	ID    string `yaml:"id"`
	Notes string `yaml:"notes"`
	Kind  string `yaml:"kind"` // "barometer" | "temp_sensor" | "gpio_expander"
	Addr  uint16 `yaml:"addr"`
	Mode  string `yaml:"mode,omitempty"` // barometer oversampling: "ultra_low_power" | "standard" | "high_res" | "ultra_high_res"
}

func loadConfig(path string) (config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return config{}, err
	}
	var c config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return config{}, err
	}
	return c, nil
}
