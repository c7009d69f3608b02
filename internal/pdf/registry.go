package pdf

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/partpulse/partpulse/internal/core/domain"
)

//go:embed templates/*.json
var builtin embed.FS

// ErrUnknownTemplate is returned by Get for names with no template.
var ErrUnknownTemplate = domain.ErrTemplateNotFound

// Registry holds parsed templates. Built-in templates are always present;
// files named <template>.json in the override directory replace them.
type Registry struct {
	dir string
	log zerolog.Logger

	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry loads the built-in templates and then any overrides in dir.
// An empty dir disables overrides.
func NewRegistry(dir string, log zerolog.Logger) (*Registry, error) {
	r := &Registry{dir: dir, log: log, templates: map[string]*Template{}}

	entries, err := fs.ReadDir(builtin, "templates")
	if err != nil {
		return nil, fmt.Errorf("pdf: read built-in templates: %w", err)
	}
	for _, e := range entries {
		raw, err := builtin.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("pdf: read %s: %w", e.Name(), err)
		}
		tpl, err := ParseTemplate(raw)
		if err != nil {
			return nil, fmt.Errorf("pdf: built-in %s: %w", e.Name(), err)
		}
		r.templates[templateName(e.Name())] = tpl
	}

	if dir != "" {
		if err := r.loadDir(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func templateName(file string) string {
	return strings.TrimSuffix(filepath.Base(file), ".json")
}

func (r *Registry) Get(name string) (*Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tpl, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	return tpl, nil
}

// Dir is the override directory, "" when overrides are disabled.
func (r *Registry) Dir() string { return r.dir }

func (r *Registry) loadDir() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("pdf: read template dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := r.loadFile(filepath.Join(r.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pdf: read %s: %w", path, err)
	}
	tpl, err := ParseTemplate(raw)
	if err != nil {
		return fmt.Errorf("pdf: %s: %w", path, err)
	}
	name := templateName(path)
	r.mu.Lock()
	r.templates[name] = tpl
	r.mu.Unlock()
	r.log.Info().Str("template", name).Str("path", path).Msg("pdf template loaded")
	return nil
}

// Watch reloads override files as they change until ctx is cancelled. A file
// that fails to parse leaves the previous version in place.
func (r *Registry) Watch(ctx context.Context) error {
	if r.dir == "" {
		<-ctx.Done()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("pdf: watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(r.dir); err != nil {
		return fmt.Errorf("pdf: watch %s: %w", r.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(ev.Name) != ".json" || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := r.loadFile(ev.Name); err != nil {
				r.log.Error().Err(err).Str("path", ev.Name).Msg("pdf template reload failed, keeping previous version")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn().Err(err).Msg("pdf template watcher error")
		}
	}
}
