package core

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Attachment represents a debug artifact captured during step execution
type Attachment struct {
	Name        string `json:"name"`        // Descriptive name: screenshot, log
	ContentType string `json:"contentType"` // MIME type: image/png, text/plain
	Path        string `json:"path"`        // File path relative to output directory
	Body        []byte `json:"-"`           // In-memory content (not serialized to JSON)
}

// Common attachment names
const (
	AttachmentScreenshot = "screenshot"
	AttachmentLog        = "log"
)

// Common content types
const (
	ContentTypePNG  = "image/png"
	ContentTypeText = "text/plain"
)

// NewScreenshotAttachment creates a screenshot attachment
func NewScreenshotAttachment(data []byte) Attachment {
	return Attachment{
		Name:        AttachmentScreenshot,
		ContentType: ContentTypePNG,
		Body:        data,
	}
}

// ArtifactConfig controls when artifacts are captured during scenario runs
type ArtifactConfig struct {
	CaptureOnFailure bool   `yaml:"captureOnFailure" json:"captureOnFailure"` // Default: true
	CaptureOnSuccess bool   `yaml:"captureOnSuccess" json:"captureOnSuccess"` // Default: false
	OutputDir        string `yaml:"outputDir" json:"outputDir"`
}

// DefaultArtifactConfig returns sensible defaults for artifact capture
func DefaultArtifactConfig() ArtifactConfig {
	return ArtifactConfig{
		CaptureOnFailure: true,
		CaptureOnSuccess: false,
		OutputDir:        "webpilot-artifacts",
	}
}

// Save writes the attachment body under dir with a unique name and records
// the relative path on the attachment.
func (a *Attachment) Save(dir string) error {
	if len(a.Body) == 0 {
		return fmt.Errorf("attachment %q has no body", a.Name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	ext := ".bin"
	switch a.ContentType {
	case ContentTypePNG:
		ext = ".png"
	case ContentTypeText:
		ext = ".txt"
	}
	name := fmt.Sprintf("%s-%s%s", a.Name, uuid.NewString(), ext)

	if err := os.WriteFile(filepath.Join(dir, name), a.Body, 0o644); err != nil {
		return fmt.Errorf("write attachment: %w", err)
	}
	a.Path = name
	return nil
}
