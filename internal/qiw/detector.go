package qiw

import (
	"bytes"
	"context"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Detector inspects one channel and reports incidents.
type Detector interface {
	Channel() string
	Detect(ctx context.Context, env *Env) ([]Incident, error)
}

// Exec runs a command in dir and returns its captured output.
type Exec func(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

// Env is what detectors may touch: the repository on disk, the process
// environment, subprocesses and the network.
type Env struct {
	Config *Config
	Dir    string
	Getenv func(string) string
	Exec   Exec
	HTTP   *http.Client
	Log    zerolog.Logger
}

// NewEnv returns an Env bound to the real process.
func NewEnv(cfg *Config, dir string, log zerolog.Logger) *Env {
	return &Env{
		Config: cfg,
		Dir:    dir,
		Getenv: os.Getenv,
		Exec:   execCommand,
		HTTP:   &http.Client{Timeout: 10 * time.Second},
		Log:    log,
	}
}

func execCommand(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// run splits a command line on whitespace and executes it.
func (e *Env) run(ctx context.Context, cmdline string) ([]byte, []byte, error) {
	parts := strings.Fields(cmdline)
	if len(parts) == 0 {
		return nil, nil, nil
	}
	return e.Exec(ctx, e.Dir, parts[0], parts[1:]...)
}

func (e *Env) enabled(channel, detector string) bool {
	_, ok := e.Config.Detector(channel, detector)
	return ok
}

func (e *Env) path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(e.Dir, rel)
}

func (e *Env) exists(rel string) bool {
	_, err := os.Stat(e.path(rel))
	return err == nil
}

// branch returns the current git branch or "".
func (e *Env) branch(ctx context.Context) string {
	out, _, err := e.run(ctx, "git rev-parse --abbrev-ref HEAD")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

var skipDirs = map[string]bool{
	"node_modules": true, "dist": true, "build": true, ".next": true,
	".git": true, "vendor": true, "coverage": true,
}

// walkFiles visits regular files under the repository whose names satisfy match.
func (e *Env) walkFiles(match func(name string) bool, visit func(rel string, content []byte)) {
	_ = filepath.WalkDir(e.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p != e.Dir && skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !match(d.Name()) {
			return nil
		}
		content, err := os.ReadFile(p)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(e.Dir, p)
		if err != nil {
			rel = p
		}
		visit(filepath.ToSlash(rel), content)
		return nil
	})
}

// firstN returns at most n leading items.
func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// listPreview joins the first n items and marks truncation with "...".
func listPreview(items []string, n int) string {
	s := strings.Join(firstN(items, n), ", ")
	if len(items) > n {
		s += "..."
	}
	return s
}
