// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the registry file expected at the root of a template set.
const FileName = "registry.json"

func LoadRegistry(path string) (*TemplateRegistry, error) {
	return LoadRegistryFS(os.DirFS(filepath.Dir(path)), filepath.Base(path))
}

// LoadRegistryFS reads and checks the registry called name inside fsys.
func LoadRegistryFS(fsys fs.FS, name string) (*TemplateRegistry, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &reg, nil
}

// Validate checks that ids are unique and every entry names a file and a
// known format.
func (r *TemplateRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Templates))
	for i, t := range r.Templates {
		if t.ID == "" {
			return fmt.Errorf("templates[%d]: id is required", i)
		}
		if seen[t.ID] {
			return fmt.Errorf("templates[%d]: duplicate id %s", i, t.ID)
		}
		seen[t.ID] = true
		if t.File == "" {
			return fmt.Errorf("template %s: file is required", t.ID)
		}
		switch t.Format {
		case FormatNginx, FormatYAML:
		default:
			return fmt.Errorf("template %s: unknown format %q", t.ID, t.Format)
		}
	}
	return nil
}

// Find returns the template with the given id, or nil.
func (r *TemplateRegistry) Find(id string) *Template {
	for i := range r.Templates {
		if r.Templates[i].ID == id {
			return &r.Templates[i]
		}
	}
	return nil
}

// SaveRegistry writes reg to path as indented JSON, creating the directory
// if needed.
func SaveRegistry(reg *TemplateRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}
