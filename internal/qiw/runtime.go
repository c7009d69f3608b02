package qiw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

const (
	DefaultRuntimeMetricsFile = "runtime-metrics.json"

	defaultErrorRate   = 0.01
	p95ThresholdMillis = 2000.0
	memoryThreshold    = 0.90
	defaultSLATarget   = 0.99
)

type runtimeMetrics struct {
	ErrorRate         float64 `json:"errorRate"`
	P95ResponseTime   float64 `json:"p95ResponseTime"`
	MemoryUtilization float64 `json:"memoryUtilization"`
	SLACompliance     float64 `json:"slaCompliance"`
}

// RuntimeDetector evaluates an exported metrics snapshot. A missing
// snapshot is treated as healthy.
type RuntimeDetector struct {
	MetricsFile string
}

func (RuntimeDetector) Channel() string { return ChannelRuntime }

func (d RuntimeDetector) Detect(_ context.Context, env *Env) ([]Incident, error) {
	file := d.MetricsFile
	if file == "" {
		file = DefaultRuntimeMetricsFile
	}
	m, err := loadRuntimeMetrics(env.path(file))
	if err != nil {
		return nil, err
	}

	var out []Incident
	if env.enabled(ChannelRuntime, "error_rate_spike") {
		threshold := env.Config.ThresholdValue(ChannelRuntime, "error_rate_spike", defaultErrorRate)
		if m.ErrorRate > threshold {
			out = append(out, Incident{
				Channel:  ChannelRuntime,
				Severity: SeverityCritical,
				Title:    fmt.Sprintf("Error rate spike: %.2f%%", m.ErrorRate*100),
				Description: fmt.Sprintf("Error rate (%.2f%%) exceeds threshold (%g%%). This indicates a production issue.",
					m.ErrorRate*100, threshold*100),
				Detection: Detection{Detector: "error_rate_spike", Method: "threshold", Confidence: 0.9},
				Metrics:   map[string]any{"error_rate": m.ErrorRate, "threshold": threshold},
				Impact:    &Impact{UserImpact: "critical", BusinessImpact: "Users experiencing errors in production"},
			})
		}
	}
	if m.P95ResponseTime > p95ThresholdMillis && env.enabled(ChannelRuntime, "response_time_degradation") {
		out = append(out, Incident{
			Channel:  ChannelRuntime,
			Severity: SeverityHigh,
			Title:    fmt.Sprintf("Response time degradation: p95 %gms", m.P95ResponseTime),
			Description: fmt.Sprintf("P95 response time (%gms) exceeds %gms threshold. Performance degradation detected.",
				m.P95ResponseTime, p95ThresholdMillis),
			Detection: Detection{Detector: "response_time_degradation", Method: "threshold", Confidence: 0.85},
			Metrics:   map[string]any{"p95_response_time": m.P95ResponseTime, "threshold": p95ThresholdMillis},
		})
	}
	if m.MemoryUtilization > memoryThreshold && env.enabled(ChannelRuntime, "memory_leak_detector") {
		out = append(out, Incident{
			Channel:  ChannelRuntime,
			Severity: SeverityCritical,
			Title:    fmt.Sprintf("Memory utilization critical: %.1f%%", m.MemoryUtilization*100),
			Description: fmt.Sprintf("Memory utilization (%.1f%%) exceeds %g%%. Possible memory leak or resource exhaustion.",
				m.MemoryUtilization*100, memoryThreshold*100),
			Detection: Detection{Detector: "memory_leak_detector", Method: "threshold", Confidence: 0.8},
			Metrics:   map[string]any{"memory_utilization": m.MemoryUtilization, "threshold": memoryThreshold},
			Impact:    &Impact{UserImpact: "high", BusinessImpact: "Service may crash due to memory exhaustion"},
		})
	}
	if env.enabled(ChannelRuntime, "sla_violation_detector") {
		target := env.Config.ThresholdValue(ChannelRuntime, "sla_violation_detector", defaultSLATarget)
		if m.SLACompliance < target {
			out = append(out, Incident{
				Channel:  ChannelRuntime,
				Severity: SeverityCritical,
				Title:    fmt.Sprintf("SLA violation: %.2f%% compliance", m.SLACompliance*100),
				Description: fmt.Sprintf("SLA compliance (%.2f%%) is below target (%g%%). Service level agreement violated.",
					m.SLACompliance*100, target*100),
				Detection: Detection{Detector: "sla_violation_detector", Method: "threshold", Confidence: 1},
				Metrics:   map[string]any{"sla_compliance": m.SLACompliance, "threshold": target},
				Impact:    &Impact{UserImpact: "critical", BusinessImpact: "SLA breach may have contractual implications"},
			})
		}
	}
	return out, nil
}

func loadRuntimeMetrics(path string) (runtimeMetrics, error) {
	m := runtimeMetrics{SLACompliance: 1}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return m, fmt.Errorf("runtime metrics: %w", err)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("runtime metrics %s: %w", path, err)
	}
	return m, nil
}
