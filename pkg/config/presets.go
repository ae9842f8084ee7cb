package config

import (
	"slices"
	"strings"

	"github.com/matzehuels/polargraph/pkg/errors"
)

// Preset is a named group of settings.
type Preset struct {
	Name        string
	Description string
	Builtin     bool
	Settings    Settings
}

// builtins are the shipped presets, in display order.
var builtins = []Preset{
	{
		Name:        "standard",
		Description: "Balanced spacing and amplitude",
		Settings:    Settings{LineSpacing: ptr(5.0), AmplitudeScale: ptr(10.0)},
	},
	{
		Name:        "fine",
		Description: "Dense low-amplitude lines for detail",
		Settings:    Settings{LineSpacing: ptr(2.5), AmplitudeScale: ptr(6.0)},
	},
	{
		Name:        "bold",
		Description: "Sparse high-amplitude lines for large prints",
		Settings:    Settings{LineSpacing: ptr(8.0), AmplitudeScale: ptr(20.0)},
	},
	{
		Name:        "collision",
		Description: "Tight spacing with tall waves; exercises clearance resolution",
		Settings:    Settings{LineSpacing: ptr(3.0), AmplitudeScale: ptr(25.0)},
	},
}

// Builtin returns the shipped presets.
func Builtin() []Preset {
	out := make([]Preset, len(builtins))
	for i, p := range builtins {
		p.Builtin = true
		out[i] = p
	}
	return out
}

// Presets returns the built-in presets, overridden or extended by the
// config file. Built-ins come first in their fixed order, followed by the
// file's own presets sorted by name.
func (c *Config) Presets() []Preset {
	out := Builtin()
	for i, p := range out {
		if fp, ok := c.Tables[p.Name]; ok {
			out[i] = fromFile(p, fp)
		}
	}

	var custom []Preset
	for name, fp := range c.Tables {
		if slices.ContainsFunc(builtins, func(b Preset) bool { return b.Name == name }) {
			continue
		}
		custom = append(custom, fromFile(Preset{Name: name}, fp))
	}
	slices.SortFunc(custom, func(a, b Preset) int { return strings.Compare(a.Name, b.Name) })
	return append(out, custom...)
}

// Preset looks up a preset by name.
func (c *Config) Preset(name string) (Preset, error) {
	for _, p := range c.Presets() {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, errors.New(errors.ErrCodeInvalidPreset, "unknown preset: %q", name)
}

// PresetNames lists every available preset name.
func (c *Config) PresetNames() []string {
	presets := c.Presets()
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

func fromFile(base Preset, fp PresetSettings) Preset {
	base.Settings = base.Settings.Merge(fp.Settings)
	if fp.Description != "" {
		base.Description = fp.Description
	}
	return base
}
