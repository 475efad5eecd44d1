package heatslab

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"gopkg.in/yaml.v3"

	"github.com/heatslab/heatslab/types"
)

// hclConfig mirrors Config for HCL files. Every attribute is optional; durations are
// strings in time.ParseDuration syntax.
type hclConfig struct {
	GridSize         *int     `hcl:"grid_size,optional"`
	Timesteps        *int     `hcl:"timesteps,optional"`
	Alpha            *float64 `hcl:"alpha,optional"`
	DT               *float64 `hcl:"dt,optional"`
	DX               *float64 `hcl:"dx,optional"`
	HotSquareSide    *int     `hcl:"hot_square_side,optional"`
	HotValue         *float64 `hcl:"hot_value,optional"`
	ColdValue        *float64 `hcl:"cold_value,optional"`
	KernelWorkers    *int     `hcl:"kernel_workers,optional"`
	ExchangeTimeout  *string  `hcl:"exchange_timeout,optional"`
	GatherTimeout    *string  `hcl:"gather_timeout,optional"`
	ProgressEvery    *int     `hcl:"progress_every,optional"`
	ProgressInterval *string  `hcl:"progress_interval,optional"`
	SubjectPrefix    *string  `hcl:"subject_prefix,optional"`
	ProgressBucket   *string  `hcl:"progress_bucket,optional"`
	OutputPath       *string  `hcl:"output_path,optional"`
}

// LoadConfig reads a configuration file, applies defaults and validates the result.
//
// The format follows the extension: ".yaml"/".yml" use camelCase keys, ".hcl" uses
// snake_case attributes. Settings absent from the file keep their DefaultConfig
// value.
//
// Parameters:
//   - path: Path to the configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Read, decode or validation error (validation errors wrap ErrInvalidConfig)
//
// Example:
//
//	cfg, err := heatslab.LoadConfig("run.hcl")
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".hcl":
		if err := decodeHCL(path, &cfg); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config format %q", types.ErrInvalidConfig, ext)
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

func decodeHCL(path string, cfg *Config) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var raw hclConfig
	diags = gohcl.DecodeBody(file.Body, nil, &raw)
	if diags.HasErrors() {
		return fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	setIf(&cfg.GridSize, raw.GridSize)
	setIf(&cfg.Timesteps, raw.Timesteps)
	setIf(&cfg.Alpha, raw.Alpha)
	setIf(&cfg.DT, raw.DT)
	setIf(&cfg.DX, raw.DX)
	setIf(&cfg.HotSquareSide, raw.HotSquareSide)
	setIf(&cfg.HotValue, raw.HotValue)
	setIf(&cfg.ColdValue, raw.ColdValue)
	setIf(&cfg.KernelWorkers, raw.KernelWorkers)
	setIf(&cfg.ProgressEvery, raw.ProgressEvery)
	setIf(&cfg.SubjectPrefix, raw.SubjectPrefix)
	setIf(&cfg.ProgressBucket, raw.ProgressBucket)
	setIf(&cfg.OutputPath, raw.OutputPath)

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"exchange_timeout", raw.ExchangeTimeout, &cfg.ExchangeTimeout},
		{"gather_timeout", raw.GatherTimeout, &cfg.GatherTimeout},
		{"progress_interval", raw.ProgressInterval, &cfg.ProgressInterval},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", types.ErrInvalidConfig, d.name, err)
		}
		*d.dst = v
	}

	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
