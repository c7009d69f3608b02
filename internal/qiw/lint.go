package qiw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

const DefaultLintCommand = "npx eslint . --format=json --max-warnings=999999"

var (
	bypassMarkers  = []string{"eslint-disable", "@ts-ignore", "@ts-nocheck", "@ts-expect-error", "//nolint"}
	lintSourceExts = map[string]bool{".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".go": true}
)

// LintDetector reads ESLint JSON output and scans sources for bypass markers.
type LintDetector struct {
	Command string
}

type lintResult struct {
	errors      int
	warnings    int
	files       int
	bypassFiles []string
}

type eslintFile struct {
	FilePath string `json:"filePath"`
	Messages []struct {
		Severity int `json:"severity"`
	} `json:"messages"`
}

func (LintDetector) Channel() string { return ChannelLint }

func (d LintDetector) Detect(ctx context.Context, env *Env) ([]Incident, error) {
	res := d.collect(ctx, env)
	env.Log.Info().Int("errors", res.errors).Int("warnings", res.warnings).Int("files", res.files).Msg("lint metrics collected")

	var out []Incident
	if res.errors > 0 && env.enabled(ChannelLint, "lint_violation_increase") {
		out = append(out, Incident{
			Channel:  ChannelLint,
			Severity: SeverityMedium,
			Title:    fmt.Sprintf("%d lint errors detected", res.errors),
			Description: fmt.Sprintf("Found %d lint errors and %d warnings across %d files. This may indicate code quality degradation.",
				res.errors, res.warnings, res.files),
			Detection: Detection{Detector: "lint_violation_increase", Method: "threshold", Confidence: 0.9},
			Metrics: map[string]any{
				"error_count":      res.errors,
				"warning_count":    res.warnings,
				"total_violations": res.errors + res.warnings,
				"file_count":       res.files,
			},
		})
	}
	if res.errors > 0 && env.enabled(ChannelLint, "critical_violation_in_main") {
		if branch := env.branch(ctx); branch == "main" || branch == "master" {
			out = append(out, Incident{
				Channel:     ChannelLint,
				Severity:    SeverityCritical,
				Title:       fmt.Sprintf("%d critical lint violations on main branch", res.errors),
				Description: "Critical lint errors detected on main branch. This violates code quality standards and must be remediated immediately.",
				Detection:   Detection{Detector: "critical_violation_in_main", Method: "pattern", Confidence: 1},
				Metrics:     map[string]any{"error_count": res.errors, "branch": branch},
				Impact: &Impact{
					AffectedBranches: []string{branch},
					UserImpact:       "high",
					BusinessImpact:   "Code quality on main branch is compromised",
				},
			})
		}
	}
	if len(res.bypassFiles) > 0 && env.enabled(ChannelLint, "lint_bypass_detector") {
		out = append(out, Incident{
			Channel:  ChannelLint,
			Severity: SeverityMedium,
			Title:    fmt.Sprintf("%d lint bypass directives detected", len(res.bypassFiles)),
			Description: fmt.Sprintf("Found %d files using lint bypass directives (%s). Files: %s",
				len(res.bypassFiles), strings.Join(bypassMarkers, ", "), listPreview(res.bypassFiles, 5)),
			Detection: Detection{Detector: "lint_bypass_detector", Method: "pattern", Confidence: 1},
			Metrics: map[string]any{
				"bypass_count": len(res.bypassFiles),
				"bypass_files": res.bypassFiles,
			},
		})
	}
	return out, nil
}

func (d LintDetector) collect(ctx context.Context, env *Env) lintResult {
	cmd := d.Command
	if cmd == "" {
		cmd = DefaultLintCommand
	}
	var res lintResult

	// eslint exits non-zero when it finds violations, so stdout is parsed either way.
	stdout, _, err := env.run(ctx, cmd)
	if len(bytes.TrimSpace(stdout)) > 0 {
		var files []eslintFile
		if jerr := json.Unmarshal(stdout, &files); jerr != nil {
			env.Log.Warn().Err(jerr).Msg("lint output is not eslint JSON")
		} else {
			res.countMessages(files)
		}
	} else if err != nil {
		env.Log.Warn().Err(err).Msg("lint command failed without output")
	}

	res.bypassFiles = findBypasses(env)
	return res
}

func (r *lintResult) countMessages(files []eslintFile) {
	for _, f := range files {
		if len(f.Messages) == 0 {
			continue
		}
		r.files++
		for _, m := range f.Messages {
			switch m.Severity {
			case 2:
				r.errors++
			case 1:
				r.warnings++
			}
		}
	}
}

func findBypasses(env *Env) []string {
	var found []string
	env.walkFiles(func(name string) bool {
		return lintSourceExts[strings.ToLower(filepath.Ext(name))]
	}, func(rel string, content []byte) {
		lower := strings.ToLower(string(content))
		for _, m := range bypassMarkers {
			if strings.Contains(lower, m) {
				found = append(found, rel)
				return
			}
		}
	})
	return found
}
