package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tensorsched/internal/schedule"
)

// optionsFile is the YAML shape for a saved Options profile — pointer
// fields so we can tell "unset" from "zero" when layering onto a preset:
// a preset is applied first, then a config file overrides it field by
// field, then CLI flags override whatever the file set.
type optionsFile struct {
	MaxExpansions  *int64 `yaml:"max_expansions"`
	TimeLimitMS    *int64 `yaml:"time_limit_ms"`
	BeamWidth      *int   `yaml:"beam_width"`
	LookaheadDepth *int   `yaml:"lookahead_depth"`
	BranchFactor   *int   `yaml:"branch_factor"`
	Verbose        *bool  `yaml:"verbose"`
	Trace          *bool  `yaml:"trace"`
	Debug          *bool  `yaml:"debug"`
}

func basePreset(profile string, nodeCount int) (schedule.Options, error) {
	switch profile {
	case "", "default":
		return schedule.DefaultOptions(), nil
	case "small":
		return schedule.DefaultOptions(), nil
	case "large":
		return schedule.OptionsForSize(nodeCount), nil
	default:
		return schedule.Options{}, fmt.Errorf("dagsched: unknown profile %q (want small, large or default)", profile)
	}
}

// loadOptions builds Options starting from the named profile preset,
// then applies a YAML config file if configPath is non-empty, then
// caller-provided CLI overrides.
func loadOptions(configPath, profile string, nodeCount int, overrides optionsFile) (schedule.Options, error) {
	opts, err := basePreset(profile, nodeCount)
	if err != nil {
		return schedule.Options{}, err
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return schedule.Options{}, fmt.Errorf("dagsched: reading config %s: %w", configPath, err)
		}
		var fromFile optionsFile
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return schedule.Options{}, fmt.Errorf("dagsched: parsing config %s: %w", configPath, err)
		}
		applyOptionsFile(&opts, fromFile)
	}

	applyOptionsFile(&opts, overrides)
	return opts, nil
}

func applyOptionsFile(opts *schedule.Options, f optionsFile) {
	if f.MaxExpansions != nil {
		opts.MaxExpansions = *f.MaxExpansions
	}
	if f.TimeLimitMS != nil {
		opts.TimeLimit = time.Duration(*f.TimeLimitMS) * time.Millisecond
	}
	if f.BeamWidth != nil {
		opts.BeamWidth = *f.BeamWidth
	}
	if f.LookaheadDepth != nil {
		opts.LookaheadDepth = *f.LookaheadDepth
	}
	if f.BranchFactor != nil {
		opts.BranchFactor = *f.BranchFactor
	}
	if f.Verbose != nil {
		opts.Verbose = *f.Verbose
	}
	if f.Trace != nil {
		opts.Trace = *f.Trace
	}
	if f.Debug != nil {
		opts.Debug = *f.Debug
	}
}
