package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario is a parsed scenario file.
type Scenario struct {
	SourcePath string
	Config     Config
	Steps      []Step
}

// Config is the scenario-level configuration document.
type Config struct {
	Name string   `yaml:"name"`
	URL  string   `yaml:"url"`
	Tags []string `yaml:"tags"`
	// TimeoutMs bounds the whole scenario run.
	TimeoutMs int `yaml:"timeoutMs"`
}

// ParseError is a parsing failure with location info.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ParseFile parses a single scenario file.
func ParseFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is a user-provided scenario file
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data, path)
}

// Parse parses scenario YAML. The content is either a bare step list, or a
// config document and a step list separated by "---".
func Parse(data []byte, sourcePath string) (*Scenario, error) {
	parts := splitDocuments(string(data))
	if len(parts) == 0 {
		return nil, &ParseError{Path: sourcePath, Line: 1, Message: "empty scenario file"}
	}

	sc := &Scenario{SourcePath: sourcePath}

	stepsDoc := parts[0]
	if len(parts) > 1 {
		if err := yaml.Unmarshal([]byte(parts[0]), &sc.Config); err != nil {
			return nil, &ParseError{
				Path:    sourcePath,
				Message: fmt.Sprintf("invalid config: %v", err),
			}
		}
		stepsDoc = parts[1]
	}

	var nodes []yaml.Node
	if err := yaml.Unmarshal([]byte(stepsDoc), &nodes); err != nil {
		return nil, &ParseError{
			Path:    sourcePath,
			Message: fmt.Sprintf("invalid steps: %v", err),
		}
	}
	for i := range nodes {
		step, err := parseStep(&nodes[i], sourcePath)
		if err != nil {
			return nil, err
		}
		sc.Steps = append(sc.Steps, step)
	}
	return sc, nil
}

func splitDocuments(content string) []string {
	var parts []string
	var current strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "---" {
			if strings.TrimSpace(current.String()) != "" {
				parts = append(parts, current.String())
			}
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}
	if strings.TrimSpace(current.String()) != "" {
		parts = append(parts, current.String())
	}
	return parts
}

func parseStep(node *yaml.Node, sourcePath string) (Step, error) {
	if node.Kind != yaml.MappingNode || len(node.Content) < 2 {
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    node.Line,
			Message: "step must be a single-key mapping",
		}
	}

	stepType := StepType(node.Content[0].Value)
	valueNode := node.Content[1]
	step, err := decodeStep(stepType, valueNode, sourcePath)
	if err != nil {
		return nil, err
	}
	return step, nil
}

// decodeSelector fills a SelectorStep from either the scalar shorthand
// (`- click: "#save"`) or the full mapping form.
func decodeSelector(s *SelectorStep, stepType StepType, valueNode *yaml.Node, sourcePath string) error {
	if valueNode.Kind == yaml.ScalarNode {
		s.Selector = valueNode.Value
	} else if err := valueNode.Decode(s); err != nil {
		return wrapParseError(sourcePath, valueNode.Line, err)
	}
	s.StepType = stepType
	if s.Selector == "" {
		return &ParseError{
			Path:    sourcePath,
			Line:    valueNode.Line,
			Message: fmt.Sprintf("%s: missing selector", stepType),
		}
	}
	return nil
}

func decodeStep(stepType StepType, valueNode *yaml.Node, sourcePath string) (Step, error) {
	switch stepType {
	case StepNavigate:
		var s NavigateStep
		if valueNode.Kind == yaml.ScalarNode {
			s.URL = valueNode.Value
		} else if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.URL == "" {
			return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: "navigate: missing url"}
		}
		return &s, nil

	case StepClick, StepDblclick, StepHover, StepTap, StepCheck, StepUncheck,
		StepFocus, StepScrollIntoView, StepAssertVisible, StepAssertNotVisible:
		var s SelectorStep
		if err := decodeSelector(&s, stepType, valueNode, sourcePath); err != nil {
			return nil, err
		}
		return &s, nil

	case StepFill:
		var s FillStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepTypeText:
		var s TypeStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepPress:
		var s PressStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepSelectOption:
		var s SelectOptionStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepDragTo:
		var s DragToStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.Target == "" {
			return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: "dragTo: missing target"}
		}
		return &s, nil

	case StepWaitFor:
		var s WaitForStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.State == "" {
			s.State = "visible"
		}
		return &s, nil

	case StepAssertText:
		var s AssertTextStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		if s.Equals == "" && s.Contains == "" {
			return nil, &ParseError{Path: sourcePath, Line: valueNode.Line, Message: "assertText: need equals or contains"}
		}
		return &s, nil

	case StepAssertValue:
		var s AssertValueStep
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepAssertChecked:
		var s AssertCheckedStep
		s.Checked = true
		if err := valueNode.Decode(&s); err != nil {
			return nil, wrapParseError(sourcePath, valueNode.Line, err)
		}
		s.StepType = stepType
		return &s, nil

	case StepScreenshot:
		var s ScreenshotStep
		if err := decodeSelector(&s.SelectorStep, stepType, valueNode, sourcePath); err != nil {
			return nil, err
		}
		if valueNode.Kind == yaml.MappingNode {
			if err := valueNode.Decode(&s); err != nil {
				return nil, wrapParseError(sourcePath, valueNode.Line, err)
			}
		}
		s.StepType = stepType
		return &s, nil

	default:
		return nil, &ParseError{
			Path:    sourcePath,
			Line:    valueNode.Line,
			Message: fmt.Sprintf("unknown step type: %s", stepType),
		}
	}
}

func wrapParseError(path string, line int, err error) error {
	return &ParseError{Path: path, Line: line, Message: err.Error()}
}

// ParseDirectory parses every .yaml/.yml file under dir, filtered by tags.
// Files that fail to parse are skipped with a warning on stderr.
func ParseDirectory(dir string, includeTags, excludeTags []string) ([]*Scenario, error) {
	var scenarios []*Scenario
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		sc, parseErr := ParseFile(path)
		if parseErr != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping %s: %v\n", path, parseErr)
			return nil
		}
		if MatchesTags(sc, includeTags, excludeTags) {
			scenarios = append(scenarios, sc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].SourcePath < scenarios[j].SourcePath
	})
	return scenarios, nil
}

// MatchesTags reports whether the scenario passes the include and exclude
// tag filters. An empty include list matches everything.
func MatchesTags(sc *Scenario, includeTags, excludeTags []string) bool {
	if len(includeTags) > 0 {
		found := false
		for _, tag := range sc.Config.Tags {
			for _, include := range includeTags {
				if tag == include {
					found = true
				}
			}
		}
		if !found {
			return false
		}
	}
	for _, tag := range sc.Config.Tags {
		for _, exclude := range excludeTags {
			if tag == exclude {
				return false
			}
		}
	}
	return true
}
