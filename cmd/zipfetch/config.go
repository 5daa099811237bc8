//
// Copyright 2018-2025 Cristian Maglie. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the content of the YAML file given with -config.
type fileConfig struct {
	InactivityTimeout time.Duration     `yaml:"inactivity_timeout"`
	PollInterval      time.Duration     `yaml:"poll_interval"`
	Timeout           time.Duration     `yaml:"timeout"`
	Headers           map[string]string `yaml:"headers"`
	LogLevel          string            `yaml:"log_level"`
	SpoolDir          string            `yaml:"spool_dir"`
}

// loadConfigFile reads a YAML configuration file. Unknown keys are an
// error; an empty file yields the zero configuration.
func loadConfigFile(path string) (*fileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}
	defer f.Close()

	cfg := &fileConfig{}
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// headerFlags collects repeated -header key=value flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (h headerFlags) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("header must be in the form key=value, got %q", value)
	}
	h[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}
