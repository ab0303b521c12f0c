// Package render materializes launch artifacts: directory management plus Go
// template rendering over resolved configuration chains.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"
)

// Workspace is the filesystem-backed implementation of the workspace
// capability prepare actions consume.
type Workspace struct{}

// NewWorkspace returns a filesystem workspace.
func NewWorkspace() *Workspace {
	return &Workspace{}
}

// EnsureDir creates the directory and any missing parents.
func (w *Workspace) EnsureDir(path string) error {
	err := os.MkdirAll(path, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	return nil
}

// RemoveDir removes the directory and its contents.
func (w *Workspace) RemoveDir(path string) error {
	err := os.RemoveAll(path)
	if err != nil {
		return fmt.Errorf("failed to remove directory %s: %w", path, err)
	}

	return nil
}

// Exists reports whether the path exists.
func (w *Workspace) Exists(path string) bool {
	_, err := os.Stat(path)

	return err == nil
}

// RenderFile renders the template source with data and writes the result.
func (w *Workspace) RenderFile(path, source string, data map[string]any) error {
	rendered, err := Render(source, data)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	err = os.WriteFile(path, []byte(rendered), 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Render executes a Go template over the given data.
func Render(source string, data map[string]any) (string, error) {
	tmpl, err := template.
		New("artifact").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(source)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
