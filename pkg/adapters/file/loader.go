package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/canvass/pkg/domain"
)

// workflowDoc is the on-disk shape of a workflow definition.
type workflowDoc struct {
	ID        string            `yaml:"id"`
	Questions []domain.Question `yaml:"questions"`
}

// Loader implements ports.WorkflowLoader over a directory of YAML files.
// A workflow id maps to <Dir>/<id>.yaml (or .yml). Files are read on every
// load; the engine caches per session, so the loader stays simple and always
// reflects the directory.
type Loader struct {
	Dir string
}

// NewLoader creates a loader over the given directory.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// LoadWorkflow reads and parses the definition file for a workflow id.
func (l *Loader) LoadWorkflow(ctx context.Context, workflowID string) ([]domain.Question, error) {
	if workflowID == "" {
		return nil, fmt.Errorf("workflowID cannot be empty")
	}

	path, err := l.resolve(workflowID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var doc workflowDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", workflowID, err)
	}
	if doc.ID != "" && doc.ID != workflowID {
		return nil, fmt.Errorf("workflow file %s declares id %q", filepath.Base(path), doc.ID)
	}
	if err := validateQuestions(workflowID, doc.Questions); err != nil {
		return nil, err
	}

	return doc.Questions, nil
}

// ListWorkflows returns the ids of all definition files in the directory.
func (l *Loader) ListWorkflows() ([]string, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			ids = append(ids, strings.TrimSuffix(entry.Name(), ext))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (l *Loader) resolve(workflowID string) (string, error) {
	// Reject ids that escape the workflow directory.
	if workflowID != filepath.Base(workflowID) {
		return "", fmt.Errorf("invalid workflow id: %s", workflowID)
	}

	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(l.Dir, workflowID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("workflow not found: %s", workflowID)
}

// validateQuestions enforces the definition constraints the engine relies on:
// non-empty unique ids and a known type for every question.
func validateQuestions(workflowID string, questions []domain.Question) error {
	seen := make(map[string]bool, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return fmt.Errorf("workflow %s: question %d has no id", workflowID, i)
		}
		if seen[q.ID] {
			return fmt.Errorf("workflow %s: duplicate question id %q", workflowID, q.ID)
		}
		seen[q.ID] = true

		switch q.Type {
		case domain.QuestionString, domain.QuestionInteger, domain.QuestionBoolean, domain.QuestionChoice:
		default:
			return fmt.Errorf("workflow %s: question %q has unknown type %q", workflowID, q.ID, q.Type)
		}
	}
	return nil
}
