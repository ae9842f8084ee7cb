// Package config loads polargraph settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/polargraph/config.toml unless a path is
// given explicitly. Every setting is optional; unset keys keep the built-in
// defaults:
//
//	[defaults]
//	organic = true
//	stroke_width = 0.35
//
//	[presets.portrait]
//	description = "Tight lines for faces"
//	line_spacing = 3
//	amplitude_scale = 8
//
//	[cache]
//	dir = "/var/cache/polargraph"
//
//	[server]
//	addr = ":9090"
//	redis = "localhost:6379"
//
// Settings are layered: built-in defaults, then [defaults], then the chosen
// preset. Command-line flags are applied last by the caller.
package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/polargraph/pkg/errors"
	"github.com/matzehuels/polargraph/pkg/pipeline"
)

const (
	appName  = "polargraph"
	fileName = "config.toml"

	// maxFileSize bounds the config file read.
	maxFileSize = 1 << 20
)

// Settings is a partial set of conversion options. Nil fields are unset.
type Settings struct {
	LineSpacing       *float64 `toml:"line_spacing"`
	AmplitudeScale    *float64 `toml:"amplitude_scale"`
	DarknessThreshold *float64 `toml:"darkness_threshold"`
	MinClearance      *float64 `toml:"min_clearance"`
	Segmented         *bool    `toml:"segmented"`
	Organic           *bool    `toml:"organic"`
	Seed              *uint64  `toml:"seed"`
	StrokeWidth       *float64 `toml:"stroke_width"`
	MaxWidth          *int     `toml:"max_width"`
}

// Apply copies every set field onto opts.
func (s Settings) Apply(opts *pipeline.Options) {
	setIf(&opts.LineSpacing, s.LineSpacing)
	setIf(&opts.AmplitudeScale, s.AmplitudeScale)
	setIf(&opts.DarknessThreshold, s.DarknessThreshold)
	setIf(&opts.MinClearance, s.MinClearance)
	setIf(&opts.Segmented, s.Segmented)
	setIf(&opts.Organic, s.Organic)
	setIf(&opts.Seed, s.Seed)
	setIf(&opts.StrokeWidth, s.StrokeWidth)
	setIf(&opts.MaxWidth, s.MaxWidth)
}

// Merge returns s with every field set in over replacing its own.
func (s Settings) Merge(over Settings) Settings {
	pick(&s.LineSpacing, over.LineSpacing)
	pick(&s.AmplitudeScale, over.AmplitudeScale)
	pick(&s.DarknessThreshold, over.DarknessThreshold)
	pick(&s.MinClearance, over.MinClearance)
	pick(&s.Segmented, over.Segmented)
	pick(&s.Organic, over.Organic)
	pick(&s.Seed, over.Seed)
	pick(&s.StrokeWidth, over.StrokeWidth)
	pick(&s.MaxWidth, over.MaxWidth)
	return s
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

func ptr[T any](v T) *T { return &v }

// PresetSettings is a [presets.<name>] table.
type PresetSettings struct {
	Description string `toml:"description"`
	Settings
}

// CacheSettings is the [cache] table.
type CacheSettings struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// ServerSettings is the [server] table.
type ServerSettings struct {
	Addr  string `toml:"addr"`
	Redis string `toml:"redis"`
}

// Config is a parsed config file.
type Config struct {
	Defaults Settings `toml:"defaults"`

	// Tables holds the raw [presets.<name>] tables; Presets merges them
	// with the built-ins.
	Tables map[string]PresetSettings `toml:"presets"`

	Cache  CacheSettings  `toml:"cache"`
	Server ServerSettings `toml:"server"`

	// Path is the file the config was read from, empty for built-ins only.
	Path string `toml:"-"`
}

// DefaultPath returns $XDG_CONFIG_HOME/polargraph/config.toml, falling back
// to the platform config directory.
func DefaultPath() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, fileName), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, fileName), nil
}

// Load reads the config at path. With an empty path the default location is
// used and a missing file yields an empty config; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return &Config{}, nil
		}
		path = p
	}
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			if explicit {
				return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file not found: %s", path)
			}
			return &Config{}, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "stat config %s", path)
	}
	if info.Size() > maxFileSize {
		return nil, errors.New(errors.ErrCodeInvalidInput, "config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "config %s", path)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes and validates TOML config data. Unknown keys are rejected so
// that typos do not silently fall back to defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse toml")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidParameter, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks preset names and that every layer yields valid options.
func (c *Config) Validate() error {
	if _, err := c.Options(""); err != nil {
		return errors.Wrap(errors.GetCode(err), err, "[defaults]")
	}
	for name := range c.Tables {
		if err := errors.ValidatePresetName(name); err != nil {
			return err
		}
		if _, err := c.Options(name); err != nil {
			return errors.Wrap(errors.GetCode(err), err, "[presets.%s]", name)
		}
	}
	return nil
}

// Options layers the built-in defaults, [defaults] and the named preset.
// An empty preset name skips the preset layer.
func (c *Config) Options(preset string) (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()
	if err := c.Apply(&opts, preset); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

// Apply layers [defaults] and the named preset onto opts without
// validating the result.
func (c *Config) Apply(opts *pipeline.Options, preset string) error {
	c.Defaults.Apply(opts)
	if preset == "" {
		return nil
	}
	p, err := c.Preset(preset)
	if err != nil {
		return err
	}
	p.Settings.Apply(opts)
	return nil
}
