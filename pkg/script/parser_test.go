package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseScalarShorthand(t *testing.T) {
	content := `
- navigate: "https://example.test/login"
- click: "#save"
- assertVisible: ".banner"
`
	sc, err := Parse([]byte(content), "login.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(sc.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(sc.Steps))
	}

	nav, ok := sc.Steps[0].(*NavigateStep)
	if !ok || nav.URL != "https://example.test/login" {
		t.Errorf("step 0 = %#v", sc.Steps[0])
	}
	click, ok := sc.Steps[1].(*SelectorStep)
	if !ok || click.StepType != StepClick || click.Selector != "#save" {
		t.Errorf("step 1 = %#v", sc.Steps[1])
	}
	if sc.Steps[2].TargetSelector() != ".banner" {
		t.Errorf("step 2 selector = %q", sc.Steps[2].TargetSelector())
	}
}

func TestParseConfigAndSteps(t *testing.T) {
	content := `
name: checkout
url: "https://example.test/cart"
tags: [smoke, checkout]
timeoutMs: 60000
---
- click: "#pay"
`
	sc, err := Parse([]byte(content), "checkout.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if sc.Config.Name != "checkout" || sc.Config.URL != "https://example.test/cart" {
		t.Errorf("config = %+v", sc.Config)
	}
	if len(sc.Config.Tags) != 2 || sc.Config.TimeoutMs != 60000 {
		t.Errorf("config = %+v", sc.Config)
	}
	if len(sc.Steps) != 1 {
		t.Errorf("steps = %d", len(sc.Steps))
	}
}

func TestParseMappingForm(t *testing.T) {
	content := `
- fill:
    selector: "#name"
    value: "Ada"
    timeoutMs: 5000
    optional: true
- click:
    selector: "#save"
    force: true
- waitFor:
    selector: ".spinner"
    state: hidden
`
	sc, err := Parse([]byte(content), "form.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	fill := sc.Steps[0].(*FillStep)
	if fill.Selector != "#name" || fill.Value != "Ada" || fill.TimeoutMs != 5000 {
		t.Errorf("fill = %+v", fill)
	}
	if !fill.IsOptional() {
		t.Error("fill.IsOptional() = false")
	}
	if d := fill.timeout(); d == nil || *d != 5*time.Second {
		t.Errorf("fill timeout = %v", d)
	}

	click := sc.Steps[1].(*SelectorStep)
	if !click.Force {
		t.Error("click.Force = false")
	}

	wait := sc.Steps[2].(*WaitForStep)
	if wait.State != "hidden" {
		t.Errorf("wait.State = %q", wait.State)
	}
}

func TestParseWaitForDefaultsToVisible(t *testing.T) {
	sc, err := Parse([]byte(`
- waitFor:
    selector: "#modal"
`), "wait.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := sc.Steps[0].(*WaitForStep).State; got != "visible" {
		t.Errorf("State = %q, want visible", got)
	}
}

func TestParseAssertCheckedDefault(t *testing.T) {
	sc, err := Parse([]byte(`
- assertChecked:
    selector: "#agree"
`), "check.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := sc.Steps[0].(*AssertCheckedStep); !got.Checked {
		t.Error("Checked = false, want default true")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"unknown step", "- teleport: \"#x\""},
		{"missing url", "- navigate:\n    label: go"},
		{"missing selector", "- click:\n    force: true"},
		{"assertText without expectation", "- assertText:\n    selector: \"#x\""},
		{"dragTo without target", "- dragTo:\n    selector: \"#a\""},
		{"step not a mapping", "- 42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content), "bad.yaml")
			if err == nil {
				t.Fatal("Parse() succeeded, want error")
			}
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("error = %T, want *ParseError", err)
			}
			if parseErr.Path != "bad.yaml" {
				t.Errorf("path = %q", parseErr.Path)
			}
		})
	}
}

func TestParseDirectoryTagFilter(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("smoke.yaml", "name: a\ntags: [smoke]\n---\n- click: \"#x\"\n")
	write("slow.yaml", "name: b\ntags: [slow]\n---\n- click: \"#x\"\n")
	write("notes.txt", "not yaml")
	write("broken.yaml", "- teleport: \"#x\"\n")

	scenarios, err := ParseDirectory(dir, []string{"smoke"}, nil)
	if err != nil {
		t.Fatalf("ParseDirectory() error: %v", err)
	}
	if len(scenarios) != 1 || scenarios[0].Config.Name != "a" {
		t.Errorf("scenarios = %d", len(scenarios))
	}

	scenarios, err = ParseDirectory(dir, nil, []string{"slow"})
	if err != nil {
		t.Fatalf("ParseDirectory() error: %v", err)
	}
	if len(scenarios) != 1 || scenarios[0].Config.Name != "a" {
		t.Errorf("excluded scenarios = %d", len(scenarios))
	}
}
