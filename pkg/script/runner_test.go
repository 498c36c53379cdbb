package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pilotlab-dev/webpilot/pkg/browser"
	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/mockdom"
)

func formPage(p *mockdom.Page) {
	p.Add(&mockdom.Element{
		ID: "save", Tag: "button", Text: "Save changes",
		Attrs:   map[string]string{"id": "save"},
		Visible: true, Enabled: true,
		Box: core.Rect{X: 0, Y: 0, Width: 100, Height: 40},
	})
	p.Add(&mockdom.Element{
		ID: "name", Tag: "input",
		Attrs:   map[string]string{"id": "name"},
		Visible: true, Enabled: true, Editable: true,
		Box: core.Rect{X: 0, Y: 50, Width: 200, Height: 30},
	})
	p.Add(&mockdom.Element{
		ID: "agree", Tag: "input", TogglesOnClick: true,
		Attrs:   map[string]string{"id": "agree"},
		Visible: true, Enabled: true,
		Box: core.Rect{X: 0, Y: 90, Width: 20, Height: 20},
	})
}

func newRunner(t *testing.T) *Runner {
	t.Helper()
	srv := mockdom.NewServer()
	srv.OnPage = formPage
	endpoint, err := srv.Start()
	if err != nil {
		t.Fatalf("mockdom start: %v", err)
	}
	t.Cleanup(srv.Stop)

	b, err := browser.Connect(context.Background(), endpoint, browser.ConnectOptions{
		ActionTimeout: 2 * time.Second,
		PollInterval:  10 * time.Millisecond,
		SettleGrace:   30 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	page, err := b.NewPage(context.Background())
	if err != nil {
		t.Fatalf("NewPage() error: %v", err)
	}

	r := NewRunner(page)
	r.Artifacts.OutputDir = t.TempDir()
	return r
}

func mustParse(t *testing.T, content string) *Scenario {
	t.Helper()
	sc, err := Parse([]byte(content), "inline.yaml")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	return sc
}

func TestRunScenarioPasses(t *testing.T) {
	r := newRunner(t)
	sc := mustParse(t, `
name: happy path
url: "https://example.test/form"
---
- fill:
    selector: "#name"
    value: "Ada"
- check: "#agree"
- click: "#save"
- assertValue:
    selector: "#name"
    value: "Ada"
- assertChecked:
    selector: "#agree"
- assertText:
    selector: "#save"
    contains: "Save"
`)

	result := r.Run(context.Background(), sc)
	if !result.Passed() {
		t.Fatalf("status = %v, steps = %+v", result.Status, result.Steps)
	}
	// The config URL adds an implicit leading navigate.
	if len(result.Steps) != 7 {
		t.Fatalf("steps = %d, want 7", len(result.Steps))
	}
	for _, sr := range result.Steps {
		if sr.Status != core.StatusPassed {
			t.Errorf("step %q = %v: %s", sr.Description, sr.Status, sr.Error)
		}
	}
	if result.Name != "happy path" {
		t.Errorf("name = %q", result.Name)
	}
}

func TestRunAssertionFailureSkipsRest(t *testing.T) {
	r := newRunner(t)
	sc := mustParse(t, `
- assertText:
    selector: "#save"
    equals: "Delete"
- click: "#save"
`)

	result := r.Run(context.Background(), sc)
	if result.Status != core.StatusFailed {
		t.Fatalf("status = %v, want failed", result.Status)
	}
	if result.Steps[0].Status != core.StatusFailed {
		t.Errorf("step 0 = %v", result.Steps[0].Status)
	}
	if result.Steps[0].Category != core.ErrCategoryNone {
		t.Errorf("assertion failures carry no error category, got %v", result.Steps[0].Category)
	}
	if result.Steps[1].Status != core.StatusSkipped {
		t.Errorf("step 1 = %v, want skipped", result.Steps[1].Status)
	}
}

func TestRunFailureCapturesScreenshot(t *testing.T) {
	r := newRunner(t)
	sc := mustParse(t, `
- assertText:
    selector: "#save"
    equals: "Delete"
`)

	result := r.Run(context.Background(), sc)
	if result.Status != core.StatusFailed {
		t.Fatalf("status = %v", result.Status)
	}
	atts := result.Steps[0].Attachments
	if len(atts) != 1 {
		t.Fatalf("attachments = %d, want 1", len(atts))
	}
	data, err := os.ReadFile(filepath.Join(r.Artifacts.OutputDir, atts[0].Path))
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(data) == 0 {
		t.Error("artifact is empty")
	}
}

func TestRunOptionalStepContinues(t *testing.T) {
	r := newRunner(t)
	sc := mustParse(t, `
- assertText:
    selector: "#save"
    equals: "Delete"
    optional: true
- click: "#save"
`)

	result := r.Run(context.Background(), sc)
	if !result.Passed() {
		t.Fatalf("status = %v, optional failure must not fail the scenario", result.Status)
	}
	if result.Steps[0].Status != core.StatusFailed {
		t.Errorf("step 0 = %v", result.Steps[0].Status)
	}
	if result.Steps[1].Status != core.StatusPassed {
		t.Errorf("step 1 = %v", result.Steps[1].Status)
	}
}

func TestRunTimeoutClassifiedAsErrored(t *testing.T) {
	r := newRunner(t)
	sc := mustParse(t, `
- click:
    selector: "#nonexistent"
    timeoutMs: 150
`)

	result := r.Run(context.Background(), sc)
	if result.Status != core.StatusErrored {
		t.Fatalf("status = %v, want errored", result.Status)
	}
	if result.Steps[0].Category != core.ErrCategoryTimeout {
		t.Errorf("category = %v, want timeout", result.Steps[0].Category)
	}
}

func TestRunScreenshotStepWritesFile(t *testing.T) {
	r := newRunner(t)
	path := filepath.Join(t.TempDir(), "save-button.png")
	sc := mustParse(t, `
- screenshot:
    selector: "#save"
    path: `+path+`
`)

	result := r.Run(context.Background(), sc)
	if !result.Passed() {
		t.Fatalf("status = %v: %+v", result.Status, result.Steps)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read screenshot: %v", err)
	}
	if len(data) == 0 {
		t.Error("screenshot is empty")
	}
}
