package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	"go.uber.org/zap"
)

const ext = ".tmpl"

//go:embed templates/*.tmpl
var defaults embed.FS

// ErrTemplateNotFound is wrapped by *Error when no template has the requested id.
var ErrTemplateNotFound = errors.New("template not found")

// Error is returned by Render for every failure. It carries the template id
// so callers can log which message could not be produced.
type Error struct {
	Template string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("render %q: %v", e.Template, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Engine renders named text templates. The embedded defaults are always
// loaded; files in dir (if set) override or extend them by file name.
type Engine struct {
	dir    string
	logger *zap.Logger

	mu  sync.RWMutex
	set *template.Template
}

// New parses the embedded templates plus any <id>.tmpl files found in dir.
func New(dir string, logger *zap.Logger) (*Engine, error) {
	e := &Engine{dir: dir, logger: logger}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Render executes template id against model.
func (e *Engine) Render(id string, model any) (string, error) {
	e.mu.RLock()
	set := e.set
	e.mu.RUnlock()

	t := set.Lookup(id)
	if t == nil {
		return "", &Error{Template: id, Err: ErrTemplateNotFound}
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, model); err != nil {
		return "", &Error{Template: id, Err: err}
	}
	return strings.TrimSpace(buf.String()), nil
}

// IDs lists the loaded template ids in sorted order.
func (e *Engine) IDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var ids []string
	for _, t := range e.set.Templates() {
		if t.Name() != "" {
			ids = append(ids, t.Name())
		}
	}
	sort.Strings(ids)
	return ids
}

// Reload re-reads the template directory. On error the current set is kept.
func (e *Engine) Reload() error {
	sources, err := e.collect()
	if err != nil {
		return err
	}

	set := template.New("").Funcs(funcs).Option("missingkey=error")
	for id, src := range sources {
		if _, err := set.New(id).Parse(src); err != nil {
			return &Error{Template: id, Err: err}
		}
	}

	e.mu.Lock()
	e.set = set
	e.mu.Unlock()

	e.logger.Debug("templates loaded", zap.Int("count", len(sources)), zap.String("dir", e.dir))
	return nil
}

func (e *Engine) collect() (map[string]string, error) {
	sources := make(map[string]string)

	entries, err := fs.ReadDir(defaults, "templates")
	if err != nil {
		return nil, fmt.Errorf("read embedded templates: %w", err)
	}
	for _, entry := range entries {
		b, err := fs.ReadFile(defaults, "templates/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read embedded template %s: %w", entry.Name(), err)
		}
		sources[strings.TrimSuffix(entry.Name(), ext)] = string(b)
	}

	if e.dir == "" {
		return sources, nil
	}
	files, err := filepath.Glob(filepath.Join(e.dir, "*"+ext))
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for _, path := range files {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", path, err)
		}
		sources[strings.TrimSuffix(filepath.Base(path), ext)] = string(b)
	}
	return sources, nil
}
