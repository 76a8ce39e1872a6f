package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestRevision(t *testing.T) {
	cases := []struct {
		settings []debug.BuildSetting
		want     string
	}{
		{nil, ""},
		{[]debug.BuildSetting{{Key: "vcs.revision", Value: "0123456789abcdef"}}, "0123456"},
		{[]debug.BuildSetting{{Key: "vcs.modified", Value: "true"}, {Key: "vcs.revision", Value: "0123456789abcdef"}}, "0123456-dirty"},
		{[]debug.BuildSetting{{Key: "vcs.revision", Value: "abc"}}, "abc"},
	}
	for _, c := range cases {
		if got := revision(c.settings); got != c.want {
			t.Errorf("revision(%v) = %q, want %q", c.settings, got, c.want)
		}
	}
}

func TestPick(t *testing.T) {
	cases := []struct{ version, module, hash, want string }{
		{"v1.2.0", "v1.1.0", "0123456", "v1.2.0"},
		{"", "v1.1.0", "0123456", "v1.1.0"},
		{"", "(devel)", "0123456", "0123456"},
		{"", "", "", "devel"},
	}
	for _, c := range cases {
		if got := pick(c.version, c.module, c.hash); got != c.want {
			t.Errorf("pick(%q, %q, %q) = %q, want %q", c.version, c.module, c.hash, got, c.want)
		}
	}
}

func TestBanner(t *testing.T) {
	if b := Banner("cl607-render"); !strings.HasPrefix(b, "cl607-render "+VersionOrHash+" (go") {
		t.Errorf("Banner = %q", b)
	}
}
