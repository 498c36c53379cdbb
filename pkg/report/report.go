// Package report writes machine-readable run reports.
//
// Layout:
//   - report.json: full run data, written atomically so consumers never see a
//     partial file
//   - report.html: self-contained summary page for humans
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pilotlab-dev/webpilot/pkg/script"
)

// Version is the report schema version.
const Version = "1.0.0"

// Report is the top-level run report.
type Report struct {
	Version   string          `json:"version"`
	Status    string          `json:"status"`
	StartTime time.Time       `json:"startTime"`
	Elapsed   int64           `json:"elapsedMs"`
	Client    ClientInfo      `json:"client"`
	Summary   Summary         `json:"summary"`
	Scenarios []ScenarioEntry `json:"scenarios"`
}

// ClientInfo identifies the client and server the run used.
type ClientInfo struct {
	Version  string `json:"version"`
	Endpoint string `json:"endpoint"`
}

// Summary contains aggregated scenario counts.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errored int `json:"errored"`
}

// ScenarioEntry is one scenario's outcome.
type ScenarioEntry struct {
	Index      int         `json:"index"`
	Name       string      `json:"name"`
	SourceFile string      `json:"sourceFile,omitempty"`
	Status     string      `json:"status"`
	Elapsed    int64       `json:"elapsedMs"`
	Steps      []StepEntry `json:"steps"`
}

// StepEntry is one step's outcome.
type StepEntry struct {
	Index       int      `json:"index"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Category    string   `json:"category,omitempty"`
	Error       string   `json:"error,omitempty"`
	Elapsed     int64    `json:"elapsedMs"`
	Attachments []string `json:"attachments,omitempty"`
}

// Build converts run results into a report.
func Build(results []*script.Result, client ClientInfo, start time.Time) *Report {
	r := &Report{
		Version:   Version,
		Status:    "passed",
		StartTime: start,
		Elapsed:   time.Since(start).Milliseconds(),
		Client:    client,
		Scenarios: make([]ScenarioEntry, len(results)),
	}

	for i, res := range results {
		entry := ScenarioEntry{
			Index:      i,
			Name:       res.Name,
			SourceFile: res.SourcePath,
			Status:     res.Status.String(),
			Elapsed:    res.Elapsed.Milliseconds(),
			Steps:      make([]StepEntry, len(res.Steps)),
		}
		for j, sr := range res.Steps {
			step := StepEntry{
				Index:       j,
				Type:        string(sr.Type),
				Description: sr.Description,
				Status:      sr.Status.String(),
				Error:       sr.Error,
				Elapsed:     sr.Elapsed.Milliseconds(),
			}
			if sr.Error != "" {
				step.Category = sr.Category.String()
			}
			for _, att := range sr.Attachments {
				step.Attachments = append(step.Attachments, att.Path)
			}
			entry.Steps[j] = step
		}
		r.Scenarios[i] = entry

		r.Summary.Total++
		switch entry.Status {
		case "passed":
			r.Summary.Passed++
		case "failed":
			r.Summary.Failed++
		default:
			r.Summary.Errored++
		}
	}

	if r.Summary.Errored > 0 {
		r.Status = "errored"
	} else if r.Summary.Failed > 0 {
		r.Status = "failed"
	}
	return r
}

// Write renders the report into dir as report.json and report.html.
func Write(dir string, r *Report) error {
	if err := ensureDir(dir); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	if err := atomicWriteJSON(filepath.Join(dir, "report.json"), r); err != nil {
		return fmt.Errorf("write report.json: %w", err)
	}
	if err := writeHTML(filepath.Join(dir, "report.html"), r); err != nil {
		return fmt.Errorf("write report.html: %w", err)
	}
	return nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// atomicWriteJSON writes via a temp file and rename so readers never observe
// a torn write.
func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
