package qiw

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
)

const vercelConfig = "vercel.json"

// DeploymentDetector validates the deployment config and probes a health URL.
type DeploymentDetector struct {
	HealthURL string
}

func (DeploymentDetector) Channel() string { return ChannelDeployment }

func (d DeploymentDetector) Detect(ctx context.Context, env *Env) ([]Incident, error) {
	var out []Incident

	if err := validateJSONFile(env.path(vercelConfig)); err != nil && env.enabled(ChannelDeployment, "deployment_failure_rate") {
		out = append(out, Incident{
			Channel:     ChannelDeployment,
			Severity:    SeverityHigh,
			Title:       "Deployment failure detected",
			Description: "Deployment configuration is invalid: " + err.Error(),
			Detection:   Detection{Detector: "deployment_failure_detector", Method: "threshold", Confidence: 0.7},
			Metrics:     map[string]any{"success": false},
			Impact:      &Impact{UserImpact: "high", BusinessImpact: "Service deployment blocked"},
		})
	}

	if d.HealthURL != "" && env.enabled(ChannelDeployment, "post_deployment_health_check_failure") {
		if err := probe(ctx, env.HTTP, d.HealthURL); err != nil {
			out = append(out, Incident{
				Channel:     ChannelDeployment,
				Severity:    SeverityCritical,
				Title:       "Post-deployment health checks failed",
				Description: "Health checks failed after deployment. Service may be unhealthy.",
				Detection:   Detection{Detector: "post_deployment_health_check_failure", Method: "pattern", Confidence: 1},
				Evidence:    &Evidence{Logs: []string{err.Error()}},
				Impact:      &Impact{UserImpact: "critical", BusinessImpact: "Service health compromised"},
			})
		}
	}
	return out, nil
}

// validateJSONFile accepts a missing file.
func validateJSONFile(path string) error {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("%s: %w", vercelConfig, err)
	}
	return nil
}

func probe(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health check %s returned %d", url, resp.StatusCode)
	}
	return nil
}
