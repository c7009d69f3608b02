package qiw

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultBuildCommand = "npm run build"
	buildTimeout        = 5 * time.Minute
	buildSlowThreshold  = 300 * time.Second
)

var (
	conflictPattern = regexp.MustCompile(`(?i)ERESOLVE|dependency.*conflict|peer dependency`)
	eresolveLine    = regexp.MustCompile(`(?i)ERESOLVE[^\n]*`)
)

// BuildDetector runs the build and reports failures, dependency conflicts
// and slow builds.
type BuildDetector struct {
	Command string
}

type buildResult struct {
	success   bool
	duration  time.Duration
	errors    []string
	conflicts []string
}

func (BuildDetector) Channel() string { return ChannelBuild }

func (d BuildDetector) Detect(ctx context.Context, env *Env) ([]Incident, error) {
	res := d.runBuild(ctx, env)
	env.Log.Info().Bool("success", res.success).Dur("duration", res.duration).Msg("build metrics collected")

	var out []Incident
	if !res.success && env.enabled(ChannelBuild, "build_failure_detector") {
		out = append(out, Incident{
			Channel:     ChannelBuild,
			Severity:    SeverityHigh,
			Title:       "Build failure detected",
			Description: "Build failed with errors: " + strings.Join(firstN(res.errors, 3), "; "),
			Detection:   Detection{Detector: "build_failure_detector", Method: "threshold", Confidence: 1},
			Metrics: map[string]any{
				"success":     res.success,
				"duration":    res.duration.Milliseconds(),
				"error_count": len(res.errors),
			},
			Evidence: &Evidence{Logs: res.errors},
			Impact: &Impact{
				AffectedComponents: []string{"build-system"},
				UserImpact:         "high",
				BusinessImpact:     "Cannot deploy until build is fixed",
			},
		})
	}
	if len(res.conflicts) > 0 && env.enabled(ChannelBuild, "dependency_conflict_detector") {
		out = append(out, Incident{
			Channel:     ChannelBuild,
			Severity:    SeverityHigh,
			Title:       fmt.Sprintf("%d dependency conflicts detected", len(res.conflicts)),
			Description: "Dependency resolution conflicts found: " + strings.Join(firstN(res.conflicts, 3), "; "),
			Detection:   Detection{Detector: "dependency_conflict_detector", Method: "pattern", Confidence: 1},
			Metrics:     map[string]any{"conflict_count": len(res.conflicts)},
			Evidence:    &Evidence{Logs: res.conflicts},
		})
	}
	if res.duration > buildSlowThreshold && env.enabled(ChannelBuild, "build_duration_anomaly") {
		secs := res.duration.Seconds()
		out = append(out, Incident{
			Channel:     ChannelBuild,
			Severity:    SeverityMedium,
			Title:       fmt.Sprintf("Build duration %.1fs exceeds threshold", secs),
			Description: fmt.Sprintf("Build took %.1fs, which is longer than the %.0fs threshold.", secs, buildSlowThreshold.Seconds()),
			Detection:   Detection{Detector: "build_duration_anomaly", Method: "threshold", Confidence: 0.8},
			Metrics: map[string]any{
				"duration_ms":  res.duration.Milliseconds(),
				"threshold_ms": buildSlowThreshold.Milliseconds(),
			},
		})
	}
	return out, nil
}

func (d BuildDetector) runBuild(ctx context.Context, env *Env) buildResult {
	cmd := d.Command
	if cmd == "" {
		cmd = DefaultBuildCommand
	}
	ctx, cancel := context.WithTimeout(ctx, buildTimeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, err := env.run(ctx, cmd)
	res := buildResult{success: err == nil, duration: time.Since(start)}
	if err == nil {
		return res
	}
	res.errors = append(res.errors, err.Error())
	output := string(stderr) + string(stdout)
	if conflictPattern.MatchString(output) {
		res.conflicts = eresolveLine.FindAllString(output, -1)
	}
	return res
}
