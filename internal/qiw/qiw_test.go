package qiw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigJSON = `{
  "version": "1.0",
  "repository": "partpulse",
  "qiw_enabled": true,
  "channels": {
    "build": {
      "enabled": true,
      "detectors": [
        {"name": "build_failure_detector", "type": "threshold", "enabled": true},
        {"name": "dependency_conflict_detector", "type": "pattern", "enabled": true},
        {"name": "build_duration_anomaly", "type": "anomaly", "enabled": false}
      ],
      "blocking_rules": {"high": {"block_merge": true}, "medium": {"log_only": true}}
    },
    "lint": {
      "enabled": true,
      "detectors": [
        {"name": "lint_violation_increase", "type": "threshold", "enabled": true},
        {"name": "critical_violation_in_main", "type": "pattern", "enabled": true},
        {"name": "lint_bypass_detector", "type": "pattern", "enabled": true}
      ],
      "blocking_rules": {"critical": {"block_merge_to_main": true}}
    },
    "test": {
      "enabled": true,
      "detectors": [
        {"name": "test_pass_rate_drop", "type": "threshold", "enabled": true, "threshold": {"metric": "pass_rate", "operator": "<", "value": 0.9}},
        {"name": "coverage_decrease", "type": "threshold", "enabled": true},
        {"name": "skipped_test_detector", "type": "pattern", "enabled": true},
        {"name": "test_dodging_detector", "type": "pattern", "enabled": true}
      ],
      "blocking_rules": {"critical": {"block_merge": true}}
    },
    "deployment": {
      "enabled": true,
      "detectors": [
        {"name": "deployment_failure_rate", "type": "threshold", "enabled": true},
        {"name": "post_deployment_health_check_failure", "type": "pattern", "enabled": true}
      ],
      "blocking_rules": {"critical": {"trigger_rollback": true}, "high": {"block_merge": true}}
    },
    "runtime": {
      "enabled": true,
      "detectors": [
        {"name": "error_rate_spike", "type": "threshold", "enabled": true},
        {"name": "response_time_degradation", "type": "threshold", "enabled": true},
        {"name": "memory_leak_detector", "type": "threshold", "enabled": true},
        {"name": "sla_violation_detector", "type": "threshold", "enabled": true}
      ],
      "blocking_rules": {"critical": {"block_deployment": true, "trigger_incident": true}}
    },
    "security": {"enabled": false}
  },
  "severity_sla": {"critical": {"mttr_target": "4h", "escalation_threshold": "1h", "notification": ["oncall"]}}
}`

type fakeExec struct {
	results map[string]execResult
	calls   []string
}

type execResult struct {
	stdout, stderr string
	err            error
}

func (f *fakeExec) run(_ context.Context, _ string, name string, args ...string) ([]byte, []byte, error) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.calls = append(f.calls, key)
	for prefix, r := range f.results {
		if strings.HasPrefix(key, prefix) {
			return []byte(r.stdout), []byte(r.stderr), r.err
		}
	}
	return nil, nil, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qiw-config.json")
	require.NoError(t, os.WriteFile(path, []byte(testConfigJSON), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	return cfg
}

func testEnv(t *testing.T, exec *fakeExec) *Env {
	t.Helper()
	env := NewEnv(testConfig(t), t.TempDir(), zerolog.Nop())
	env.Getenv = func(string) string { return "" }
	if exec == nil {
		exec = &fakeExec{}
	}
	env.Exec = exec.run
	return env
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func titles(incs []Incident) []string {
	out := make([]string, 0, len(incs))
	for _, i := range incs {
		out = append(out, i.Title)
	}
	return out
}

func TestConfigRules(t *testing.T) {
	cfg := testConfig(t)

	assert.True(t, cfg.ChannelEnabled(ChannelBuild))
	assert.False(t, cfg.ChannelEnabled("security"))
	assert.False(t, cfg.ChannelEnabled("unknown"))

	_, ok := cfg.Detector(ChannelBuild, "build_failure_detector")
	assert.True(t, ok)
	_, ok = cfg.Detector(ChannelBuild, "build_duration_anomaly")
	assert.False(t, ok, "disabled detectors are not returned")

	assert.Equal(t, 0.9, cfg.ThresholdValue(ChannelTest, "test_pass_rate_drop", 0.95))
	assert.Equal(t, 0.95, cfg.ThresholdValue(ChannelTest, "coverage_decrease", 0.95))

	assert.True(t, cfg.ShouldBlockMerge(ChannelLint, SeverityCritical))
	assert.False(t, cfg.ShouldBlockMerge(ChannelLint, SeverityMedium))
	assert.True(t, cfg.Blocks(ChannelDeployment, SeverityCritical))
	assert.False(t, cfg.Blocks(ChannelDeployment, SeverityHigh), "deployment ignores merge rules")
	assert.False(t, cfg.Blocks(ChannelRuntime, SeverityCritical))
	assert.False(t, cfg.Blocks(ChannelBuild, SeverityMedium))

	cfg.Enabled = false
	assert.False(t, cfg.ChannelEnabled(ChannelBuild))
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qiw-config.yaml")
	yamlCfg := `
version: "1.0"
qiw_enabled: true
channels:
  lint:
    enabled: true
    detectors:
      - name: lint_bypass_detector
        type: pattern
        enabled: true
    blocking_rules:
      medium:
        block_merge: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlCfg), 0o644))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.True(t, cfg.ChannelEnabled(ChannelLint))
	assert.True(t, cfg.ShouldBlockMerge(ChannelLint, SeverityMedium))

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestIncidentID(t *testing.T) {
	id := IncidentID("build", time.UnixMilli(1700000000000))
	assert.Regexp(t, regexp.MustCompile(`^QIW-BUILD-1700000000000-[0-9A-F]{8}$`), id)
}

func TestStoreRecordAndSimilar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory", "qiw-events.json")
	store := NewStore(path)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	inc := Incident{Channel: ChannelBuild, Severity: SeverityHigh, Title: "Build failure detected"}
	similar, err := store.HasSimilar(inc, 0)
	require.NoError(t, err)
	assert.False(t, similar)

	ids, err := store.Record(inc, Incident{Channel: ChannelLint, Severity: SeverityMedium, Title: "x"})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.True(t, strings.HasPrefix(ids[0], "QIW-BUILD-"))
	assert.True(t, strings.HasPrefix(ids[1], "QIW-LINT-"))

	f, err := store.read()
	require.NoError(t, err)
	assert.Equal(t, 2, f.EventCount)
	assert.Equal(t, "detected", f.Events[0].Status)
	assert.Equal(t, "system", f.Events[0].Metadata.CreatedBy)
	assert.NotNil(t, f.Events[0].Metadata.Tags)

	similar, err = store.HasSimilar(inc, 0)
	require.NoError(t, err)
	assert.True(t, similar)

	other := inc
	other.Severity = SeverityCritical
	similar, err = store.HasSimilar(other, 0)
	require.NoError(t, err)
	assert.False(t, similar)

	now = now.Add(2 * time.Hour)
	similar, err = store.HasSimilar(inc, time.Hour)
	require.NoError(t, err)
	assert.False(t, similar)

	recent, err := store.Recent(ChannelBuild, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestBuildDetector(t *testing.T) {
	exec := &fakeExec{results: map[string]execResult{
		"npm run build": {stderr: "npm ERR! code ERESOLVE\nnpm ERR! ERESOLVE unable to resolve dependency tree", err: errors.New("exit status 1")},
	}}
	env := testEnv(t, exec)

	incs, err := BuildDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"Build failure detected", "2 dependency conflicts detected"}, titles(incs))
	assert.Equal(t, SeverityHigh, incs[0].Severity)

	exec.results["npm run build"] = execResult{}
	incs, err = BuildDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Empty(t, incs)
}

func TestLintDetector(t *testing.T) {
	eslint := `[{"filePath":"a.ts","messages":[{"severity":2},{"severity":1}]},{"filePath":"b.ts","messages":[]},{"filePath":"c.ts","messages":[{"severity":2}]}]`
	exec := &fakeExec{results: map[string]execResult{
		"npx eslint":    {stdout: eslint, err: errors.New("exit status 1")},
		"git rev-parse": {stdout: "main\n"},
	}}
	env := testEnv(t, exec)
	writeFile(t, env.Dir, "src/a.ts", "// eslint-disable-next-line\nconst x = 1")
	writeFile(t, env.Dir, "src/clean.ts", "const y = 2")
	writeFile(t, env.Dir, "node_modules/dep/index.js", "// @ts-ignore")

	incs, err := LintDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, incs, 3)
	assert.Equal(t, "2 lint errors detected", incs[0].Title)
	assert.Equal(t, 1, incs[0].Metrics["warning_count"])
	assert.Equal(t, SeverityCritical, incs[1].Severity)
	assert.Equal(t, "1 lint bypass directives detected", incs[2].Title)
	assert.Equal(t, []string{"src/a.ts"}, incs[2].Metrics["bypass_files"])
}

func TestLintDetectorFeatureBranch(t *testing.T) {
	exec := &fakeExec{results: map[string]execResult{
		"npx eslint":    {stdout: `[{"filePath":"a.ts","messages":[{"severity":2}]}]`},
		"git rev-parse": {stdout: "feature/x\n"},
	}}
	env := testEnv(t, exec)

	incs, err := LintDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"1 lint errors detected"}, titles(incs))
}

func TestTestDetectorCI(t *testing.T) {
	env := testEnv(t, &fakeExec{results: map[string]execResult{
		"node": {stderr: "untested change in lib/pdf.ts", err: errors.New("exit status 1")},
	}})
	env.Getenv = func(k string) string {
		if k == "CI" {
			return "true"
		}
		return ""
	}
	writeFile(t, env.Dir, "jest-results.json", `{"numPassedTests":8,"numFailedTests":2,"numTotalTests":10}`)
	writeFile(t, env.Dir, "coverage/coverage-summary.json",
		`{"total":{"lines":{"total":100,"covered":70,"pct":70},"statements":{"pct":85},"functions":{"pct":90},"branches":{"pct":79.5}}}`)
	writeFile(t, env.Dir, "__tests__/a.test.ts", "it.skip('x', () => {})\nxit('y')")
	writeFile(t, env.Dir, "internal/x_test.go", "func TestX(t *testing.T) { t.Skip(\"later\") }")
	writeFile(t, env.Dir, "__tests__/b.test.ts", "it('ok', () => {})")
	writeFile(t, env.Dir, "qa/detect-test-dodging.js", "process.exit(1)")

	incs, err := TestDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Test pass rate dropped to 80.0%",
		"lines coverage at 70% (below 80%)",
		"branches coverage at 79.5% (below 80%)",
		"Test dodging detected",
		"2 skipped tests detected",
	}, titles(incs))
	assert.Equal(t, SeverityCritical, incs[0].Severity)
	assert.Equal(t, []string{"untested change in lib/pdf.ts"}, incs[3].Evidence.Logs)
}

func TestTestDetectorLocalHeuristics(t *testing.T) {
	env := testEnv(t, nil)
	writeFile(t, env.Dir, "__tests__/b.test.ts", "it('ok', () => {})")

	incs, err := TestDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Empty(t, incs)
}

func TestDeploymentDetector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	env := testEnv(t, nil)
	writeFile(t, env.Dir, "vercel.json", `{"builds": [`)

	incs, err := DeploymentDetector{HealthURL: srv.URL}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, []string{"Deployment failure detected", "Post-deployment health checks failed"}, titles(incs))
	assert.Equal(t, SeverityCritical, incs[1].Severity)

	writeFile(t, env.Dir, "vercel.json", `{}`)
	incs, err = DeploymentDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Empty(t, incs)
}

func TestRuntimeDetector(t *testing.T) {
	env := testEnv(t, nil)

	incs, err := RuntimeDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Empty(t, incs, "missing metrics file is healthy")

	writeFile(t, env.Dir, DefaultRuntimeMetricsFile,
		`{"errorRate":0.05,"p95ResponseTime":2500,"memoryUtilization":0.95,"slaCompliance":0.97}`)
	incs, err = RuntimeDetector{}.Detect(context.Background(), env)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Error rate spike: 5.00%",
		"Response time degradation: p95 2500ms",
		"Memory utilization critical: 95.0%",
		"SLA violation: 97.00% compliance",
	}, titles(incs))
}

type stubDetector struct {
	channel string
	incs    []Incident
	err     error
}

func (s stubDetector) Channel() string { return s.channel }
func (s stubDetector) Detect(context.Context, *Env) ([]Incident, error) {
	return s.incs, s.err
}

func TestRun(t *testing.T) {
	env := testEnv(t, nil)
	store := NewStore(filepath.Join(t.TempDir(), "qiw-events.json"))
	ctx := context.Background()

	blocking := stubDetector{channel: ChannelBuild, incs: []Incident{
		{Channel: ChannelBuild, Severity: SeverityHigh, Title: "Build failure detected"},
		{Channel: ChannelBuild, Severity: SeverityMedium, Title: "slow"},
	}}
	out := Run(ctx, blocking, env, store)
	assert.Len(t, out.Recorded, 2)
	assert.Len(t, out.Blocking, 1)
	assert.Equal(t, 1, out.ExitCode())

	again := Run(ctx, blocking, env, store)
	assert.Empty(t, again.Incidents, "similar incidents are suppressed")
	assert.Equal(t, 0, again.ExitCode())

	runtime := stubDetector{channel: ChannelRuntime, incs: []Incident{{Channel: ChannelRuntime, Severity: SeverityCritical, Title: "spike"}}}
	assert.Equal(t, 0, Run(ctx, runtime, env, store).ExitCode())

	crashed := stubDetector{channel: ChannelLint, err: errors.New("boom")}
	assert.Equal(t, 0, Run(ctx, crashed, env, store).ExitCode())

	disabled := Run(ctx, stubDetector{channel: "security"}, env, store)
	assert.True(t, disabled.Skipped)
	assert.Equal(t, 0, disabled.ExitCode())
}
