package release

import (
	"errors"
	"slices"
	"testing"

	"github.com/cruciblehq/shipyard/internal/config"
)

func TestPlanForPipelines(t *testing.T) {
	tests := []struct {
		platform config.Platform
		pipeline Pipeline
		signing  string
	}{
		{config.Win64, Scripted, "WIN_CSC_KEY_PASSWORD"},
		{config.Win32, Scripted, "WIN_CSC_KEY_PASSWORD"},
		{config.Mac, Direct, "CSC_KEY_PASSWORD"},
		{config.Linux, Direct, ""},
	}
	for _, tt := range tests {
		p, err := PlanFor(tt.platform)
		if err != nil {
			t.Fatalf("PlanFor(%s) error = %v", tt.platform, err)
		}
		if p.Pipeline != tt.pipeline {
			t.Errorf("PlanFor(%s).Pipeline = %s, want %s", tt.platform, p.Pipeline, tt.pipeline)
		}
		if p.SigningEnv != tt.signing {
			t.Errorf("PlanFor(%s).SigningEnv = %q, want %q", tt.platform, p.SigningEnv, tt.signing)
		}
	}
}

func TestPlanForUnknown(t *testing.T) {
	if _, err := PlanFor("beos"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("PlanFor() error = %v, want ErrUnknown", err)
	}
}

func TestPlanCommands(t *testing.T) {
	p, err := PlanFor(config.Win64)
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"yarn", "install"},
		{"yarn", "run", "hak", "check"},
		{"yarn", "run", "build:native", "--target", "x86_64-pc-windows-msvc"},
		{"yarn", "run", "fetch", "--noverify", "--cfgdir", "", "v1.6.0"},
		{"yarn", "build", "--config", "electron-builder.json", "--win", "--x64"},
	}
	if got := p.Commands("1.6.0"); !slices.EqualFunc(got, want, slices.Equal) {
		t.Fatalf("Commands() = %q, want %q", got, want)
	}
}

func TestPlanCommandsDoNotAlias(t *testing.T) {
	p, err := PlanFor(config.Mac)
	if err != nil {
		t.Fatal(err)
	}

	a := p.Commands("1.0.0")
	a[4][0] = "changed"
	b := p.Commands("1.0.0")
	if b[4][0] != "yarn" {
		t.Fatalf("Commands() shares state between calls")
	}
}

func TestPlanRules(t *testing.T) {
	mac, _ := PlanFor(config.Mac)
	if mac.Marker != "update/macos/latest" {
		t.Fatalf("mac marker = %q", mac.Marker)
	}
	if !mac.Rules[0].Pattern.MatchString("Element-1.6.0.dmg") || mac.Rules[0].Pattern.MatchString("Element-1.6.0.dmg.blockmap") {
		t.Fatal("mac dmg pattern mismatch")
	}
	if !mac.Rules[1].Pattern.MatchString("Element-1.6.0-mac.zip") {
		t.Fatal("mac zip pattern mismatch")
	}

	win, _ := PlanFor(config.Win32)
	dests := make([]string, len(win.Rules))
	for i, r := range win.Rules {
		dests[i] = r.Dest
	}
	if want := []string{"install/win32/ia32", "update/win32/ia32", "update/win32/ia32"}; !slices.Equal(dests, want) {
		t.Fatalf("win32 dests = %q, want %q", dests, want)
	}
	if !win.Rules[2].Pattern.MatchString("RELEASES") || win.Rules[2].Pattern.MatchString("RELEASES.bak") {
		t.Fatal("RELEASES pattern mismatch")
	}

	linux, _ := PlanFor(config.Linux)
	if linux.Debs == nil || len(linux.Rules) != 0 {
		t.Fatalf("linux plan = %+v, want debs only", linux)
	}
}
