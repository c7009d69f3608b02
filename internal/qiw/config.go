// Package qiw runs the quality-integrity watchdog detectors for the build,
// lint, test, deployment and runtime channels and records what they find in
// an append-only incident log.
package qiw

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ChannelBuild      = "build"
	ChannelLint       = "lint"
	ChannelTest       = "test"
	ChannelDeployment = "deployment"
	ChannelRuntime    = "runtime"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

type Config struct {
	Version     string                   `json:"version" yaml:"version"`
	Repository  string                   `json:"repository" yaml:"repository"`
	Enabled     bool                     `json:"qiw_enabled" yaml:"qiw_enabled"`
	Channels    map[string]ChannelConfig `json:"channels" yaml:"channels"`
	SeveritySLA map[string]SLAConfig     `json:"severity_sla" yaml:"severity_sla"`
}

type ChannelConfig struct {
	Enabled       bool                      `json:"enabled" yaml:"enabled"`
	Description   string                    `json:"description" yaml:"description"`
	Triggers      []string                  `json:"triggers" yaml:"triggers"`
	Detectors     []DetectorConfig          `json:"detectors" yaml:"detectors"`
	Metrics       []string                  `json:"metrics" yaml:"metrics"`
	BlockingRules map[Severity]BlockingRule `json:"blocking_rules" yaml:"blocking_rules"`
}

type DetectorConfig struct {
	Name        string           `json:"name" yaml:"name"`
	Type        string           `json:"type" yaml:"type"`
	Enabled     bool             `json:"enabled" yaml:"enabled"`
	Threshold   *ThresholdConfig `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Pattern     string           `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Severity    Severity         `json:"severity,omitempty" yaml:"severity,omitempty"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
}

type ThresholdConfig struct {
	Metric   string   `json:"metric" yaml:"metric"`
	Operator string   `json:"operator" yaml:"operator"`
	Value    *float64 `json:"value,omitempty" yaml:"value,omitempty"`
	Baseline string   `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Window   string   `json:"window,omitempty" yaml:"window,omitempty"`
	Severity Severity `json:"severity,omitempty" yaml:"severity,omitempty"`
}

type BlockingRule struct {
	BlockMerge              bool `json:"block_merge,omitempty" yaml:"block_merge,omitempty"`
	BlockDeployment         bool `json:"block_deployment,omitempty" yaml:"block_deployment,omitempty"`
	BlockMergeToMain        bool `json:"block_merge_to_main,omitempty" yaml:"block_merge_to_main,omitempty"`
	TriggerRollback         bool `json:"trigger_rollback,omitempty" yaml:"trigger_rollback,omitempty"`
	RequireImmediateFix     bool `json:"require_immediate_fix,omitempty" yaml:"require_immediate_fix,omitempty"`
	RequireRemediationPlan  bool `json:"require_remediation_plan,omitempty" yaml:"require_remediation_plan,omitempty"`
	CreateTrackingIssue     bool `json:"create_tracking_issue,omitempty" yaml:"create_tracking_issue,omitempty"`
	LogOnly                 bool `json:"log_only,omitempty" yaml:"log_only,omitempty"`
	TriggerIncident         bool `json:"trigger_incident,omitempty" yaml:"trigger_incident,omitempty"`
	EscalateToOncall        bool `json:"escalate_to_oncall,omitempty" yaml:"escalate_to_oncall,omitempty"`
	BlockFurtherDeployments bool `json:"block_further_deployments,omitempty" yaml:"block_further_deployments,omitempty"`
}

type SLAConfig struct {
	MTTRTarget          string   `json:"mttr_target" yaml:"mttr_target"`
	EscalationThreshold string   `json:"escalation_threshold" yaml:"escalation_threshold"`
	Notification        []string `json:"notification" yaml:"notification"`
}

// LoadConfig reads a JSON or YAML config, chosen by file extension.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qiw config: %w", err)
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &cfg)
	default:
		err = json.Unmarshal(raw, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("qiw config %s: %w", path, err)
	}
	return &cfg, nil
}

// ChannelEnabled requires both the global switch and the channel switch.
func (c *Config) ChannelEnabled(channel string) bool {
	ch, ok := c.Channels[channel]
	return c.Enabled && ok && ch.Enabled
}

// Detector returns the named detector of channel when it exists and is enabled.
func (c *Config) Detector(channel, name string) (DetectorConfig, bool) {
	ch, ok := c.Channels[channel]
	if !ok {
		return DetectorConfig{}, false
	}
	for _, d := range ch.Detectors {
		if d.Name == name {
			return d, d.Enabled
		}
	}
	return DetectorConfig{}, false
}

// ThresholdValue returns the configured threshold of a detector or def.
func (c *Config) ThresholdValue(channel, name string, def float64) float64 {
	d, ok := c.Detector(channel, name)
	if !ok || d.Threshold == nil || d.Threshold.Value == nil {
		return def
	}
	return *d.Threshold.Value
}

func (c *Config) BlockingRule(channel string, sev Severity) (BlockingRule, bool) {
	ch, ok := c.Channels[channel]
	if !ok {
		return BlockingRule{}, false
	}
	r, ok := ch.BlockingRules[sev]
	return r, ok
}

func (c *Config) ShouldBlockMerge(channel string, sev Severity) bool {
	r, _ := c.BlockingRule(channel, sev)
	return r.BlockMerge || r.BlockMergeToMain
}

// Blocks reports whether an incident of sev on channel fails the run.
// Deployment incidents block on deployment and rollback rules, the build
// channel additionally on merge rules. Runtime incidents never block.
func (c *Config) Blocks(channel string, sev Severity) bool {
	r, _ := c.BlockingRule(channel, sev)
	switch channel {
	case ChannelRuntime:
		return false
	case ChannelDeployment:
		return r.BlockDeployment || r.TriggerRollback
	case ChannelBuild:
		return r.BlockMerge || r.BlockMergeToMain || r.BlockDeployment
	default:
		return r.BlockMerge || r.BlockMergeToMain
	}
}
