// Package script handles parsing and execution of webpilot YAML scenario
// files. A scenario is an optional config document followed by a list of
// steps, each step one browser interaction or assertion.
package script

import (
	"fmt"
	"time"
)

// StepType identifies a scenario step kind.
type StepType string

// Step types
const (
	StepNavigate         StepType = "navigate"
	StepClick            StepType = "click"
	StepDblclick         StepType = "dblclick"
	StepHover            StepType = "hover"
	StepTap              StepType = "tap"
	StepFill             StepType = "fill"
	StepTypeText         StepType = "type"
	StepPress            StepType = "press"
	StepCheck            StepType = "check"
	StepUncheck          StepType = "uncheck"
	StepSelectOption     StepType = "selectOption"
	StepFocus            StepType = "focus"
	StepScrollIntoView   StepType = "scrollIntoView"
	StepDragTo           StepType = "dragTo"
	StepWaitFor          StepType = "waitFor"
	StepAssertVisible    StepType = "assertVisible"
	StepAssertNotVisible StepType = "assertNotVisible"
	StepAssertText       StepType = "assertText"
	StepAssertValue      StepType = "assertValue"
	StepAssertChecked    StepType = "assertChecked"
	StepScreenshot       StepType = "screenshot"
)

// Step is one executable scenario step.
type Step interface {
	Type() StepType
	// Description is the human-readable form used in logs and results.
	Description() string
	// TargetSelector returns the selector the step acts on, or "" for steps
	// without one. Failure artifacts are captured from it.
	TargetSelector() string
	// IsOptional reports whether a failure lets the scenario continue.
	IsOptional() bool
}

// BaseStep carries the fields shared by every step.
type BaseStep struct {
	StepType StepType `yaml:"-"`
	Label    string   `yaml:"label"`
	// Optional steps log their failure and let the scenario continue.
	Optional bool `yaml:"optional"`
	// TimeoutMs overrides the engine deadline for this step.
	TimeoutMs int `yaml:"timeoutMs"`
}

// Type returns the step kind.
func (s *BaseStep) Type() StepType { return s.StepType }

// TargetSelector returns "" for steps without an element target.
func (s *BaseStep) TargetSelector() string { return "" }

// IsOptional reports whether a failure lets the scenario continue.
func (s *BaseStep) IsOptional() bool { return s.Optional }

func (s *BaseStep) timeout() *time.Duration {
	if s.TimeoutMs <= 0 {
		return nil
	}
	d := time.Duration(s.TimeoutMs) * time.Millisecond
	return &d
}

func (s *BaseStep) describe(detail string) string {
	if s.Label != "" {
		return s.Label
	}
	return fmt.Sprintf("%s %s", s.StepType, detail)
}

// SelectorStep is a step addressing one element by selector.
type SelectorStep struct {
	BaseStep `yaml:",inline"`
	Selector string `yaml:"selector"`
	Force    bool   `yaml:"force"`
}

// TargetSelector returns the step's selector.
func (s *SelectorStep) TargetSelector() string { return s.Selector }

// Description returns the step kind and its selector.
func (s *SelectorStep) Description() string { return s.describe(s.Selector) }

// NavigateStep loads a URL.
type NavigateStep struct {
	BaseStep `yaml:",inline"`
	URL      string `yaml:"url"`
}

// Description returns the step kind and URL.
func (s *NavigateStep) Description() string { return s.describe(s.URL) }

// FillStep sets an input's value wholesale.
type FillStep struct {
	SelectorStep `yaml:",inline"`
	Value        string `yaml:"value"`
}

// TypeStep types text character by character.
type TypeStep struct {
	SelectorStep `yaml:",inline"`
	Text         string `yaml:"text"`
}

// PressStep presses a key or chord on the element.
type PressStep struct {
	SelectorStep `yaml:",inline"`
	Key          string `yaml:"key"`
}

// SelectOptionStep selects options in a <select> element.
type SelectOptionStep struct {
	SelectorStep `yaml:",inline"`
	Values       []string `yaml:"values"`
}

// DragToStep drags the element onto another.
type DragToStep struct {
	SelectorStep `yaml:",inline"`
	Target       string `yaml:"target"`
}

// WaitForStep blocks until the element reaches a state
// (attached/detached/visible/hidden).
type WaitForStep struct {
	SelectorStep `yaml:",inline"`
	State        string `yaml:"state"`
}

// AssertTextStep asserts on the element's text content.
type AssertTextStep struct {
	SelectorStep `yaml:",inline"`
	Equals       string `yaml:"equals"`
	Contains     string `yaml:"contains"`
}

// AssertValueStep asserts on the element's input value.
type AssertValueStep struct {
	SelectorStep `yaml:",inline"`
	Value        string `yaml:"value"`
}

// AssertCheckedStep asserts on the element's checked state.
type AssertCheckedStep struct {
	SelectorStep `yaml:",inline"`
	Checked      bool `yaml:"checked"`
}

// ScreenshotStep captures the element to a file.
type ScreenshotStep struct {
	SelectorStep `yaml:",inline"`
	Path         string `yaml:"path"`
}
