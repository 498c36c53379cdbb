// Package validator checks scenario files before execution. It parses every
// file upfront and reports all problems at once instead of failing on the
// first one mid-run.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pilotlab-dev/webpilot/pkg/script"
)

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	File    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Result contains the validation outcome.
type Result struct {
	// Scenarios holds the parsed scenarios that passed validation and the
	// tag filters, in execution order.
	Scenarios []*script.Scenario
	// Errors contains every problem found.
	Errors []error
}

// IsValid reports whether no errors were found.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator validates scenario files.
type Validator struct {
	includeTags []string
	excludeTags []string
}

// New creates a Validator with the given tag filters.
func New(includeTags, excludeTags []string) *Validator {
	return &Validator{
		includeTags: includeTags,
		excludeTags: excludeTags,
	}
}

// Validate checks a file or a directory of .yaml/.yml files.
func (v *Validator) Validate(path string) *Result {
	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("cannot access: %v", err),
		})
		return result
	}

	files := []string{path}
	if info.IsDir() {
		files, err = collectScenarioFiles(path)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("failed to scan directory: %v", err),
			})
			return result
		}
	}

	seenNames := make(map[string]string)
	for _, file := range files {
		v.validateFile(file, result, seenNames)
	}
	return result
}

// collectScenarioFiles finds all .yaml/.yml files under dir.
func collectScenarioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func (v *Validator) validateFile(path string, result *Result, seenNames map[string]string) {
	sc, err := script.ParseFile(path)
	if err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			File:    path,
			Message: fmt.Sprintf("parse error: %v", err),
		})
		return
	}

	if !script.MatchesTags(sc, v.includeTags, v.excludeTags) {
		return
	}

	before := len(result.Errors)

	if name := sc.Config.Name; name != "" {
		if other, dup := seenNames[name]; dup {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("duplicate scenario name %q, also used by %s", name, other),
			})
		} else {
			seenNames[name] = path
		}
	}

	for i, step := range sc.Steps {
		if msg := checkStep(step); msg != "" {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("step %d (%s): %s", i, step.Type(), msg),
			})
		}
	}

	if len(result.Errors) == before {
		result.Scenarios = append(result.Scenarios, sc)
	}
}

// checkStep applies semantic checks the parser does not enforce.
func checkStep(step script.Step) string {
	if step.Type() != script.StepNavigate && step.TargetSelector() == "" {
		return "missing selector"
	}
	switch s := step.(type) {
	case *script.WaitForStep:
		switch s.State {
		case "attached", "detached", "visible", "hidden":
		default:
			return fmt.Sprintf("unknown waitFor state %q", s.State)
		}
	case *script.NavigateStep:
		if !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
			return fmt.Sprintf("navigate URL %q must be http(s)", s.URL)
		}
	case *script.SelectOptionStep:
		if len(s.Values) == 0 {
			return "selectOption needs at least one value"
		}
	}
	return ""
}
