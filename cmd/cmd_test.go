package cmd_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/cl607/cl607"
	"github.com/cl607/cl607/cmd"
)

func TestParseLevel(t *testing.T) {
	for s, want := range map[string]slog.Level{"debug": slog.LevelDebug, "info": slog.LevelInfo, "WARN": slog.LevelWarn, "error": slog.LevelError} {
		got, err := cmd.ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q) failed: %v", s, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", s, got, want)
		}
	}
	if _, err := cmd.ParseLevel("loud"); err == nil {
		t.Error("ParseLevel accepted an unknown level")
	}
}

func TestOutputName(t *testing.T) {
	s := cl607.DefaultSession()
	s.Tempo = 120
	cases := []struct {
		tmpl, want string
	}{
		{cmd.DefaultNameTemplate, "CL-607 - 120bpm.wav"},
		{"{{ .Name }}", "my beat.wav"},
		{"{{ .Name | upper }}-{{ .Kit | lower }}.WAV", "MY BEAT-classic.WAV"},
	}
	for _, c := range cases {
		got, err := cmd.OutputName(c.tmpl, "dir/my beat.yml", &s, "Classic")
		if err != nil {
			t.Fatalf("OutputName(%q) failed: %v", c.tmpl, err)
		}
		if got != c.want {
			t.Errorf("OutputName(%q) = %q, want %q", c.tmpl, got, c.want)
		}
	}
	if _, err := cmd.OutputName("{{ .Nope", "a.yml", &s, ""); err == nil {
		t.Error("OutputName accepted a broken template")
	}
	if _, err := cmd.OutputName("  ", "a.yml", &s, ""); err == nil {
		t.Error("OutputName accepted an empty name")
	}
}

func TestListPresets(t *testing.T) {
	var b bytes.Buffer
	if err := cmd.ListPresets(&b); err != nil {
		t.Fatalf("ListPresets failed: %v", err)
	}
	for _, name := range []string{"Boom", "Classic", "Tight", "Snare:", "Cowbell:"} {
		if !strings.Contains(b.String(), name) {
			t.Errorf("preset listing is missing %q", name)
		}
	}
}
