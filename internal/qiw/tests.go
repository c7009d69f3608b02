package qiw

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

const (
	defaultPassRate   = 0.95
	coverageThreshold = 80.0
	dodgingScript     = "qa/detect-test-dodging.js"
	jestResultsFile   = "jest-results.json"
	coverageFile      = "coverage/coverage-summary.json"
	testsPerFileGuess = 5
)

var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.(skip|only)\s*\(`),
	regexp.MustCompile(`\bx(describe|it|test)\s*\(`),
	regexp.MustCompile(`\.todo\s*\(`),
	regexp.MustCompile(`\bt\.Skip(Now|f)?\s*\(`),
}

// TestDetector reports pass-rate drops, low coverage, skipped or focused
// tests and test dodging.
type TestDetector struct{}

type testResult struct {
	passed, failed, total int
	passRate              float64
	skipped               []string
}

func (TestDetector) Channel() string { return ChannelTest }

func isTestFile(name string) bool {
	for _, suffix := range []string{".test.ts", ".test.tsx", ".spec.ts", ".spec.tsx", "_test.go"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func (d TestDetector) Detect(ctx context.Context, env *Env) ([]Incident, error) {
	res := d.collect(env)
	env.Log.Info().Int("passed", res.passed).Int("total", res.total).Float64("pass_rate", res.passRate).Msg("test metrics collected")

	var out []Incident
	if env.enabled(ChannelTest, "test_pass_rate_drop") {
		threshold := env.Config.ThresholdValue(ChannelTest, "test_pass_rate_drop", defaultPassRate)
		if res.passRate < threshold {
			pct := res.passRate * 100
			out = append(out, Incident{
				Channel:  ChannelTest,
				Severity: SeverityCritical,
				Title:    fmt.Sprintf("Test pass rate dropped to %.1f%%", pct),
				Description: fmt.Sprintf("Test pass rate (%.1f%%) is below threshold (%g%%). %d passed, %d failed out of %d total tests.",
					pct, threshold*100, res.passed, res.failed, res.total),
				Detection: Detection{Detector: "test_pass_rate_drop", Method: "threshold", Confidence: 1},
				Metrics: map[string]any{
					"pass_rate": res.passRate,
					"threshold": threshold,
					"passed":    res.passed,
					"failed":    res.failed,
					"total":     res.total,
				},
				Impact: &Impact{
					AffectedComponents: []string{"test-suite"},
					UserImpact:         "high",
					BusinessImpact:     "Test failures indicate code quality issues",
				},
			})
		}
	}
	if env.enabled(ChannelTest, "coverage_decrease") {
		out = append(out, coverageIncidents(env)...)
	}
	if env.enabled(ChannelTest, "test_dodging_detector") {
		if inc, ok := dodging(ctx, env); ok {
			out = append(out, inc)
		}
	}
	if len(res.skipped) > 0 && env.enabled(ChannelTest, "skipped_test_detector") {
		out = append(out, Incident{
			Channel:     ChannelTest,
			Severity:    SeverityMedium,
			Title:       fmt.Sprintf("%d skipped tests detected", len(res.skipped)),
			Description: "Tests using .skip, .only, .todo, xit, xdescribe or t.Skip found. Skipped tests: " + listPreview(res.skipped, 5),
			Detection:   Detection{Detector: "skipped_test_detector", Method: "pattern", Confidence: 1},
			Metrics: map[string]any{
				"skipped_count": len(res.skipped),
				"skipped_tests": res.skipped,
			},
		})
	}
	return out, nil
}

func (d TestDetector) collect(env *Env) testResult {
	var res testResult
	var testFiles int
	env.walkFiles(isTestFile, func(rel string, content []byte) {
		testFiles++
		for _, p := range skipPatterns {
			if n := len(p.FindAllIndex(content, -1)); n > 0 {
				res.skipped = append(res.skipped, fmt.Sprintf("%s (%d skipped)", rel, n))
				return
			}
		}
	})

	if env.Getenv("CI") == "true" {
		if raw, err := os.ReadFile(env.path(jestResultsFile)); err == nil {
			var jr struct {
				Passed int `json:"numPassedTests"`
				Failed int `json:"numFailedTests"`
				Total  int `json:"numTotalTests"`
			}
			if err := json.Unmarshal(raw, &jr); err == nil {
				res.passed, res.failed, res.total = jr.Passed, jr.Failed, jr.Total
				res.passRate = 1
				if jr.Total > 0 {
					res.passRate = float64(jr.Passed) / float64(jr.Total)
				}
				return res
			}
			env.Log.Warn().Msg("jest results unreadable, using heuristics")
		}
	}

	res.total = testFiles * testsPerFileGuess
	res.passed = res.total
	res.passRate = 1
	return res
}

func coverageIncidents(env *Env) []Incident {
	raw, err := os.ReadFile(env.path(coverageFile))
	if err != nil {
		return nil
	}
	var summary struct {
		Total map[string]struct {
			Total   int     `json:"total"`
			Covered int     `json:"covered"`
			Pct     float64 `json:"pct"`
		} `json:"total"`
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		env.Log.Warn().Err(err).Msg("coverage summary unreadable")
		return nil
	}

	var out []Incident
	for _, metric := range []string{"lines", "statements", "functions", "branches"} {
		m, ok := summary.Total[metric]
		if !ok || m.Pct >= coverageThreshold {
			continue
		}
		out = append(out, Incident{
			Channel:     ChannelTest,
			Severity:    SeverityHigh,
			Title:       fmt.Sprintf("%s coverage at %g%% (below %g%%)", metric, m.Pct, coverageThreshold),
			Description: fmt.Sprintf("Code coverage for %s is %g%%, which is below the %g%% threshold.", metric, m.Pct, coverageThreshold),
			Detection:   Detection{Detector: "coverage_decrease", Method: "threshold", Confidence: 0.9},
			Metrics: map[string]any{
				"coverage_type":       metric,
				"coverage_percentage": m.Pct,
				"threshold":           coverageThreshold,
				"covered":             m.Covered,
				"total":               m.Total,
			},
		})
	}
	return out
}

func dodging(ctx context.Context, env *Env) (Incident, bool) {
	if !env.exists(dodgingScript) {
		return Incident{}, false
	}
	_, stderr, err := env.Exec(ctx, env.Dir, "node", env.path(dodgingScript))
	if err == nil {
		return Incident{}, false
	}
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		msg = err.Error()
	}
	return Incident{
		Channel:     ChannelTest,
		Severity:    SeverityHigh,
		Title:       "Test dodging detected",
		Description: "Code changes without corresponding test updates detected. This violates the zero test debt policy.",
		Detection:   Detection{Detector: "test_dodging_detector", Method: "pattern", Confidence: 0.95},
		Evidence:    &Evidence{Logs: []string{msg}},
	}, true
}
