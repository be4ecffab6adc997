// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/awslabs/ar-go-nullness/analysis/ir"
	"gopkg.in/yaml.v3"
)

// Config contains the options of the tool and of the nullness analysis.
// To add elements to a config file, add fields to this struct.
// If some field is not defined in the config file, it will keep its default value in the struct.
// private fields are not populated from a yaml file, but computed after initialization
type Config struct {
	Options

	// Nullness holds the options of the nullness analysis and its driver
	Nullness NullnessOptions `yaml:"nullness"`

	sourceFile string

	// if the PkgFilter is specified
	pkgFilterRegex *regexp.Regexp

	// ignoredFaults is the parsed version of Nullness.IgnoreFaults
	ignoredFaults []ir.FaultKind
}

// Options are the general options of the tool
type Options struct {
	// PkgFilter is a filter for the functions analyzed: only functions whose package path matches the filter are
	// analyzed
	PkgFilter string `yaml:"pkg-filter"`

	// Loglevel controls the verbosity of the tool
	LogLevel int `yaml:"log-level"`

	// Suppress warnings
	SilenceWarn bool `yaml:"silence-warn"`
}

// NullnessOptions are the options of the nullness analysis
type NullnessOptions struct {
	// Exploded specifies whether the analysis runs on the exploded control-flow graph (one instruction per node)
	// instead of the basic-block graph
	Exploded bool `yaml:"exploded"`

	// IgnoreFaults lists fault kinds that are never considered possible, for example because another pass has
	// already proven them impossible
	IgnoreFaults []string `yaml:"ignore-faults"`

	// SummarizeCalls specifies whether calls are checked against may-panic summaries of their callees. If false,
	// every call is assumed to possibly panic.
	SummarizeCalls bool `yaml:"summarize-calls"`

	// TrustReceivers specifies whether method receivers are assumed to be non-nil on entry
	TrustReceivers bool `yaml:"trust-receivers"`

	// Workers is the number of functions analyzed in parallel. If Workers <= 0, the number of CPUs is used.
	Workers int `yaml:"workers"`

	// CacheSize is the number of per-function results kept in memory. If CacheSize <= 0, DefaultCacheSize is used.
	CacheSize int `yaml:"cache-size"`

	// Timeout is the maximum time in milliseconds spent analyzing a single function. 0 means no timeout.
	Timeout int `yaml:"timeout"`
}

// NewDefault returns a default config.
func NewDefault() *Config {
	return &Config{
		sourceFile: "",
		Options: Options{
			PkgFilter:   "",
			LogLevel:    int(InfoLevel),
			SilenceWarn: false,
		},
		Nullness: NullnessOptions{
			Exploded:       false,
			IgnoreFaults:   nil,
			SummarizeCalls: true,
			TrustReceivers: false,
			Workers:        0,
			CacheSize:      DefaultCacheSize,
			Timeout:        0,
		},
	}
}

// Load reads a configuration from a file
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	cfg, err := LoadFromBytes(b)
	if err != nil {
		return nil, fmt.Errorf("could not load config file %s: %w", filename, err)
	}
	cfg.sourceFile = filename
	return cfg, nil
}

// LoadFromBytes reads a configuration from the contents of a yaml file
func LoadFromBytes(b []byte) (*Config, error) {
	cfg := NewDefault()
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}

	// If logLevel has not been specified (i.e. it is 0) set the default to Info
	if cfg.LogLevel == 0 {
		cfg.LogLevel = int(InfoLevel)
	}
	if cfg.LogLevel < int(ErrLevel) || cfg.LogLevel > int(TraceLevel) {
		return nil, fmt.Errorf("log-level %d is not between %d and %d", cfg.LogLevel, ErrLevel, TraceLevel)
	}

	if cfg.Nullness.CacheSize <= 0 {
		cfg.Nullness.CacheSize = DefaultCacheSize
	}
	if cfg.Nullness.Timeout < 0 {
		return nil, fmt.Errorf("timeout should be positive, got %d", cfg.Nullness.Timeout)
	}

	if cfg.PkgFilter != "" {
		r, err := regexp.Compile(cfg.PkgFilter)
		if err == nil {
			cfg.pkgFilterRegex = r
		}
	}

	for _, name := range cfg.Nullness.IgnoreFaults {
		kind, err := ir.ParseFaultKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid ignore-faults entry: %w", err)
		}
		cfg.ignoredFaults = append(cfg.ignoredFaults, kind)
	}

	return cfg, nil
}

// SourceFile returns the name of the file the config was loaded from, if any
func (c Config) SourceFile() string {
	return c.sourceFile
}

// MatchPkgFilter returns true if the package name pkgname matches the package filter set in the config file. If no
// package filter has been set in the config file, the regex will match anything and return true. This function safely
// considers the case where a filter has been specified by the user, but it could not be compiled to a regex. The safe
// case is to check whether the package filter string is a prefix of the pkgname
func (c Config) MatchPkgFilter(pkgname string) bool {
	if c.pkgFilterRegex != nil {
		return c.pkgFilterRegex.MatchString(pkgname)
	} else if c.PkgFilter != "" {
		return strings.HasPrefix(pkgname, c.PkgFilter)
	} else {
		return true
	}
}

// IgnoredFaults returns the fault kinds listed in the ignore-faults option
func (c Config) IgnoredFaults() []ir.FaultKind {
	return c.ignoredFaults
}

// NumWorkers returns the number of functions to analyze in parallel
func (c Config) NumWorkers() int {
	if c.Nullness.Workers <= 0 {
		return runtime.NumCPU()
	}
	return c.Nullness.Workers
}

// FunctionTimeout returns the maximum duration of the analysis of one function, or 0 if there is no limit
func (c Config) FunctionTimeout() time.Duration {
	return time.Duration(c.Nullness.Timeout) * time.Millisecond
}

// Verbose returns true is the configuration verbosity setting is larger than Info (i.e. Debug or Trace)
func (c Config) Verbose() bool {
	return c.LogLevel >= int(DebugLevel)
}
