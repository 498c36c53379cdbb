package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilotlab-dev/webpilot/pkg/browser"
	"github.com/pilotlab-dev/webpilot/pkg/core"
	"github.com/pilotlab-dev/webpilot/pkg/locator"
	"github.com/pilotlab-dev/webpilot/pkg/logger"
)

// StepResult is the outcome of one executed step.
type StepResult struct {
	Description string
	Type        StepType
	Status      core.StepStatus
	Category    core.ErrorCategory
	Error       string
	Elapsed     time.Duration
	Attachments []core.Attachment
}

// Result is the outcome of one scenario run.
type Result struct {
	Name       string
	SourcePath string
	Status     core.StepStatus
	Steps      []StepResult
	Elapsed    time.Duration
}

// Passed reports whether every step passed.
func (r *Result) Passed() bool {
	return r.Status == core.StatusPassed
}

// assertionError marks an expected-state check that did not hold, as opposed
// to an execution error.
type assertionError struct {
	msg string
}

func (e *assertionError) Error() string { return e.msg }

func assertf(format string, args ...interface{}) error {
	return &assertionError{msg: fmt.Sprintf(format, args...)}
}

// Runner executes scenarios against one page.
type Runner struct {
	Page      *browser.Page
	Artifacts core.ArtifactConfig
}

// NewRunner returns a Runner with the default artifact policy.
func NewRunner(page *browser.Page) *Runner {
	return &Runner{Page: page, Artifacts: core.DefaultArtifactConfig()}
}

// Run executes the scenario's steps in order. The first failing non-optional
// step decides the scenario status; the remaining steps are recorded as
// skipped.
func (r *Runner) Run(ctx context.Context, sc *Scenario) *Result {
	if sc.Config.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sc.Config.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	result := &Result{
		Name:       sc.Config.Name,
		SourcePath: sc.SourcePath,
		Status:     core.StatusPassed,
	}
	if result.Name == "" {
		result.Name = strings.TrimSuffix(filepath.Base(sc.SourcePath), filepath.Ext(sc.SourcePath))
	}
	start := time.Now()

	steps := sc.Steps
	if sc.Config.URL != "" {
		nav := &NavigateStep{BaseStep: BaseStep{StepType: StepNavigate}, URL: sc.Config.URL}
		steps = append([]Step{nav}, steps...)
	}

	failed := false
	for _, step := range steps {
		sr := StepResult{Description: step.Description(), Type: step.Type()}
		if failed {
			sr.Status = core.StatusSkipped
			result.Steps = append(result.Steps, sr)
			continue
		}

		logger.Info("step: %s", sr.Description)
		stepStart := time.Now()
		err := r.execStep(ctx, step, &sr)
		sr.Elapsed = time.Since(stepStart)

		if err == nil {
			sr.Status = core.StatusPassed
			result.Steps = append(result.Steps, sr)
			continue
		}

		sr.Status, sr.Category = classify(err)
		sr.Error = err.Error()
		logger.Error("step %s: %v", sr.Description, err)

		if r.Artifacts.CaptureOnFailure {
			if att := r.captureFailure(ctx, step); att != nil {
				sr.Attachments = append(sr.Attachments, *att)
			}
		}
		result.Steps = append(result.Steps, sr)

		if step.IsOptional() {
			logger.Warn("step %s is optional, continuing", sr.Description)
			continue
		}
		failed = true
		result.Status = sr.Status
	}

	result.Elapsed = time.Since(start)
	logger.Info("scenario %s: %s in %s", result.Name, result.Status, result.Elapsed.Round(time.Millisecond))
	return result
}

func classify(err error) (core.StepStatus, core.ErrorCategory) {
	var assertion *assertionError
	if errors.As(err, &assertion) {
		return core.StatusFailed, core.ErrCategoryNone
	}
	var execErr *core.ExecutionError
	if errors.As(err, &execErr) {
		return core.StatusErrored, execErr.Category
	}
	return core.StatusErrored, core.ErrCategoryNone
}

func (r *Runner) loc(selector string) *locator.Locator {
	return r.Page.Locator(selector)
}

func (r *Runner) opts(s *SelectorStep) locator.Options {
	return locator.Options{Timeout: s.timeout(), Force: s.Force}
}

//nolint:gocyclo
func (r *Runner) execStep(ctx context.Context, step Step, sr *StepResult) error {
	switch s := step.(type) {
	case *NavigateStep:
		return r.Page.Navigate(ctx, s.URL)

	case *FillStep:
		return r.loc(s.Selector).Fill(ctx, s.Value, r.opts(&s.SelectorStep))

	case *TypeStep:
		return r.loc(s.Selector).Type(ctx, s.Text, r.opts(&s.SelectorStep))

	case *PressStep:
		return r.loc(s.Selector).Press(ctx, s.Key, r.opts(&s.SelectorStep))

	case *SelectOptionStep:
		_, err := r.loc(s.Selector).SelectOption(ctx, s.Values, r.opts(&s.SelectorStep))
		return err

	case *DragToStep:
		return r.loc(s.Selector).DragTo(ctx, r.loc(s.Target), r.opts(&s.SelectorStep))

	case *WaitForStep:
		return r.loc(s.Selector).WaitFor(ctx, locator.WaitForState(s.State), r.opts(&s.SelectorStep))

	case *AssertTextStep:
		text, err := r.loc(s.Selector).TextContent(ctx)
		if err != nil {
			return err
		}
		if s.Equals != "" && text != s.Equals {
			return assertf("text of %q is %q, expected %q", s.Selector, text, s.Equals)
		}
		if s.Contains != "" && !strings.Contains(text, s.Contains) {
			return assertf("text of %q is %q, expected it to contain %q", s.Selector, text, s.Contains)
		}
		return nil

	case *AssertValueStep:
		value, err := r.loc(s.Selector).InputValue(ctx)
		if err != nil {
			return err
		}
		if value != s.Value {
			return assertf("value of %q is %q, expected %q", s.Selector, value, s.Value)
		}
		return nil

	case *AssertCheckedStep:
		checked, err := r.loc(s.Selector).IsChecked(ctx)
		if err != nil {
			return err
		}
		if checked != s.Checked {
			return assertf("checked state of %q is %v, expected %v", s.Selector, checked, s.Checked)
		}
		return nil

	case *ScreenshotStep:
		data, err := r.loc(s.Selector).Screenshot(ctx, r.opts(&s.SelectorStep))
		if err != nil {
			return err
		}
		att := core.NewScreenshotAttachment(data)
		if s.Path != "" {
			if err := os.WriteFile(s.Path, data, 0o644); err != nil {
				return fmt.Errorf("write screenshot: %w", err)
			}
			att.Path = s.Path
		} else if err := att.Save(r.Artifacts.OutputDir); err != nil {
			return err
		}
		sr.Attachments = append(sr.Attachments, att)
		return nil

	case *SelectorStep:
		return r.execSelectorStep(ctx, s)

	default:
		return fmt.Errorf("unsupported step type %s", step.Type())
	}
}

func (r *Runner) execSelectorStep(ctx context.Context, s *SelectorStep) error {
	loc := r.loc(s.Selector)
	opts := r.opts(s)

	switch s.StepType {
	case StepClick:
		return loc.Click(ctx, opts)
	case StepDblclick:
		return loc.Dblclick(ctx, opts)
	case StepHover:
		return loc.Hover(ctx, opts)
	case StepTap:
		return loc.Tap(ctx, opts)
	case StepCheck:
		return loc.Check(ctx, opts)
	case StepUncheck:
		return loc.Uncheck(ctx, opts)
	case StepFocus:
		return loc.Focus(ctx, opts)
	case StepScrollIntoView:
		return loc.ScrollIntoViewIfNeeded(ctx, opts)
	case StepAssertVisible:
		if err := loc.WaitFor(ctx, locator.WaitForVisible, opts); err != nil {
			if errors.Is(err, core.ErrTimeout) {
				return assertf("element %q did not become visible", s.Selector)
			}
			return err
		}
		return nil
	case StepAssertNotVisible:
		if err := loc.WaitFor(ctx, locator.WaitForHidden, opts); err != nil {
			if errors.Is(err, core.ErrTimeout) {
				return assertf("element %q is still visible", s.Selector)
			}
			return err
		}
		return nil
	default:
		return fmt.Errorf("unsupported step type %s", s.StepType)
	}
}

// captureFailure grabs a screenshot of the failing step's target, best effort.
// Force skips the actionability gate so a hidden or unstable element can still
// be captured.
func (r *Runner) captureFailure(ctx context.Context, step Step) *core.Attachment {
	selector := step.TargetSelector()
	if selector == "" {
		return nil
	}

	timeout := 500 * time.Millisecond
	data, err := r.loc(selector).Screenshot(ctx, locator.Options{
		Timeout: &timeout,
		Force:   true,
	})
	if err != nil || len(data) == 0 {
		return nil
	}

	att := core.NewScreenshotAttachment(data)
	if err := att.Save(r.Artifacts.OutputDir); err != nil {
		logger.Warn("failed to save failure screenshot: %v", err)
		return nil
	}
	return &att
}
