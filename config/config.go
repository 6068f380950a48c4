/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads clocksync's deployment configuration: extra clock
// presets, the metrics listen port, and the log level.
package config

import (
	"os"

	log "github.com/sirupsen/logrus"
	yaml "gopkg.in/yaml.v2"

	"github.com/mlat-server/clocksync/clock"
)

// ClockTypeConfig describes one extra (or overridden) receiver clock
// preset loadable from YAML.
type ClockTypeConfig struct {
	Freq         float64 `yaml:"freq"`
	MaxFreqError float64 `yaml:"max_freq_error"`
	Jitter       float64 `yaml:"jitter"`
}

// Config is clocksync's top level configuration.
type Config struct {
	ClockTypes          map[string]ClockTypeConfig `yaml:"clock_types"`
	MetricsPort         int                        `yaml:"metrics_port"`
	MetricsInterval     int                        `yaml:"metrics_interval_seconds"`
	LogLevel            string                     `yaml:"log_level"`
}

// Default returns a Config with the module's defaults: no extra clock
// types, metrics on :8991 polled every 10s, info-level logging.
func Default() *Config {
	return &Config{
		ClockTypes:      map[string]ClockTypeConfig{},
		MetricsPort:     8991,
		MetricsInterval: 10,
		LogLevel:        "info",
	}
}

// ReadConfig reads and parses the YAML config file at path, starting from
// Default() so unset fields keep their defaults.
func ReadConfig(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ClockRegistry builds a clock.Registry seeded with the built-in presets
// and overridden/extended by this config's ClockTypes.
func (c *Config) ClockRegistry() *clock.Registry {
	r := clock.NewRegistry()
	for tag, cfg := range c.ClockTypes {
		r.Register(tag, clock.Clock{
			Freq:         cfg.Freq,
			MaxFreqError: cfg.MaxFreqError,
			Jitter:       cfg.Jitter,
			DelayFactor:  cfg.Freq / clock.CAir,
		})
	}
	return r
}

// ApplyLogLevel parses LogLevel and applies it to logrus's standard logger,
// falling back to Info on an unrecognized value.
func (c *Config) ApplyLogLevel() {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warningf("clocksync: unrecognized log level %q, defaulting to info", c.LogLevel)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
