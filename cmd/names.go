package cmd

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cl607/cl607"
)

// DefaultNameTemplate names a rendered beat after its tempo.
const DefaultNameTemplate = "CL-607 - {{ .Tempo }}bpm.wav"

// NameData is what an output name template can refer to.
type NameData struct {
	Name   string // base name of the session file, without extension
	Tempo  float64
	Swing  float64
	Kit    string
	Chains bool // pattern B has notes and is rendered after A
}

// OutputName expands the template for one rendered session. The sprig
// function map is available, e.g. {{ .Name | upper }}. A missing .wav
// extension is added.
func OutputName(tmpl string, sessionFile string, s *cl607.Session, kit string) (string, error) {
	t, err := template.New("name").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("invalid name template: %w", err)
	}
	base := filepath.Base(sessionFile)
	data := NameData{
		Name:   strings.TrimSuffix(base, filepath.Ext(base)),
		Tempo:  s.Tempo,
		Swing:  s.Swing,
		Kit:    kit,
		Chains: s.Patterns.B.HasNotes(),
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("could not expand name template: %w", err)
	}
	name := strings.TrimSpace(b.String())
	if name == "" {
		return "", fmt.Errorf("name template %q expanded to nothing", tmpl)
	}
	if !strings.EqualFold(filepath.Ext(name), ".wav") {
		name += ".wav"
	}
	return name, nil
}

// ListPresets writes the built-in kit presets and the voices they shape.
func ListPresets(w io.Writer) error {
	presets, err := cl607.Presets()
	if err != nil {
		return err
	}
	title := cases.Title(language.English)
	for _, p := range presets {
		fmt.Fprintf(w, "%s\n", title.String(p.Name))
		fmt.Fprintf(w, "\tKick: pitch %.0f Hz, decay %.2f s, click %.2f\n", p.Kit.Kick.Pitch, p.Kit.Kick.Decay, p.Kit.Kick.ClickMix)
		for _, i := range cl607.Instruments() {
			if i == cl607.Kick {
				continue
			}
			ip := p.Kit.Instruments[i]
			fmt.Fprintf(w, "\t%s: pitch %.2f, decay %.2f, tone %.2f\n", title.String(i.String()), ip.Pitch, ip.Decay, ip.Tone)
		}
	}
	return nil
}
