package cl607

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed presets/*.yml
var kitPresetFS embed.FS

type (
	// Preset is a named kit shipped with the engine.
	Preset struct {
		Name string
		Kit  Kit
	}

	presetFile struct {
		Name        string                      `yaml:"name"`
		Kick        KickParams                  `yaml:"kick"`
		Instruments map[string]InstrumentParams `yaml:"instruments"`
	}
)

// Presets returns the built-in kit presets sorted by name.
func Presets() ([]Preset, error) {
	var ret []Preset
	err := fs.WalkDir(kitPresetFS, "presets", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".yml" {
			return nil
		}
		data, err := kitPresetFS.ReadFile(p)
		if err != nil {
			return err
		}
		preset, err := parsePreset(data)
		if err != nil {
			return fmt.Errorf("preset %v: %w", p, err)
		}
		if preset.Name == "" {
			preset.Name = strings.TrimSuffix(path.Base(p), ".yml")
		}
		ret = append(ret, preset)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret, nil
}

// LoadPreset finds a built-in preset by name, case-insensitively.
func LoadPreset(name string) (Kit, error) {
	presets, err := Presets()
	if err != nil {
		return Kit{}, err
	}
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p.Kit, nil
		}
	}
	return Kit{}, fmt.Errorf("no kit preset named %q", name)
}

func parsePreset(data []byte) (Preset, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Preset{}, err
	}
	kit := DefaultKit()
	kit.Kick = f.Kick
	for name, params := range f.Instruments {
		i, err := ParseInstrument(name)
		if err != nil {
			return Preset{}, err
		}
		kit.Instruments[i] = params
	}
	return Preset{Name: f.Name, Kit: kit.Clamp()}, nil
}
