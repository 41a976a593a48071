package renderconfig

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"text/template"

	"nginx-config-generator/internal/common/errors"
	"nginx-config-generator/pkg/registry"
)

//go:embed templates
var embedded embed.FS

// Renderer expands a template by id. Implementations must be deterministic.
type Renderer interface {
	Render(templateID string, data interface{}) (string, error)
}

// Engine is a parsed template set. It is safe for concurrent use.
type Engine struct {
	registry  *registry.TemplateRegistry
	templates map[string]*template.Template
}

// LoadEngine loads the template set in rootDir, or the built-in set when
// rootDir is empty.
func LoadEngine(rootDir string) (*Engine, error) {
	if rootDir == "" {
		return NewEmbeddedEngine()
	}
	return NewEngine(os.DirFS(rootDir))
}

func NewEmbeddedEngine() (*Engine, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return NewEngine(sub)
}

// NewEngine parses every template listed in fsys/registry.json.
func NewEngine(fsys fs.FS) (*Engine, error) {
	reg, err := registry.LoadRegistryFS(fsys, registry.FileName)
	if err != nil {
		return nil, fmt.Errorf("load template registry: %w", err)
	}

	e := &Engine{
		registry:  reg,
		templates: make(map[string]*template.Template, len(reg.Templates)),
	}
	for _, def := range reg.Templates {
		src, err := fs.ReadFile(fsys, def.File)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", def.ID, err)
		}
		t, err := template.New(def.ID).
			Option("missingkey=error").
			Funcs(funcMap(def.Format)).
			Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", def.ID, err)
		}
		autoescape(t)
		e.templates[def.ID] = t
	}
	return e, nil
}

// Templates returns the ids in the set, sorted.
func (e *Engine) Templates() []string {
	ids := make([]string, 0, len(e.templates))
	for id := range e.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id is part of the set.
func (e *Engine) Has(id string) bool {
	_, ok := e.templates[id]
	return ok
}

// Render executes template id with data. A missing template yields
// TEMPLATE_NOT_FOUND; an execution failure yields RENDER_FAILED carrying
// the template expression that failed.
func (e *Engine) Render(templateID string, data interface{}) (string, error) {
	t, ok := e.templates[templateID]
	if !ok {
		return "", errors.NewTemplateNotFoundError(templateID)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.NewRenderFailedError(templateID, failingReference(err), err)
	}
	return buf.String(), nil
}

var referencePattern = regexp.MustCompile(`at <([^>]*)>`)

// failingReference extracts the expression text/template reports in
// "... executing "x" at <.Listen.Address>: ...".
func failingReference(err error) string {
	m := referencePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return ""
	}
	return m[1]
}

// ExportTemplates writes the built-in template set, registry included, into
// dir so it can be edited and used as templates.root_dir.
func ExportTemplates(dir string) error {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return err
	}
	return fs.WalkDir(sub, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := fs.ReadFile(sub, path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
