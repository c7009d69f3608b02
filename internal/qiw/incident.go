package qiw

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

type Detection struct {
	Detector   string  `json:"detector"`
	Method     string  `json:"detection_method"`
	Confidence float64 `json:"confidence"`
}

type Evidence struct {
	Logs       []string `json:"logs,omitempty"`
	Commits    []string `json:"commits,omitempty"`
	PRNumbers  []int    `json:"pr_numbers,omitempty"`
	CIRunURLs  []string `json:"ci_run_urls,omitempty"`
	Screenshot []string `json:"screenshots,omitempty"`
}

type Impact struct {
	AffectedComponents []string `json:"affected_components,omitempty"`
	AffectedBranches   []string `json:"affected_branches,omitempty"`
	UserImpact         string   `json:"user_impact,omitempty"`
	BusinessImpact     string   `json:"business_impact,omitempty"`
}

// Incident is what a detector reports.
type Incident struct {
	Channel     string         `json:"channel"`
	Severity    Severity       `json:"severity"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Detection   Detection      `json:"detection"`
	Metrics     map[string]any `json:"metrics,omitempty"`
	Evidence    *Evidence      `json:"evidence,omitempty"`
	Impact      *Impact        `json:"impact,omitempty"`
}

type RecordMetadata struct {
	CreatedBy        string   `json:"created_by"`
	UpdatedAt        string   `json:"updated_at"`
	Tags             []string `json:"tags"`
	RelatedIncidents []string `json:"related_incidents,omitempty"`
}

// Record is an incident as persisted in the events file.
type Record struct {
	ID        string `json:"incident_id"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	Incident
	Metadata RecordMetadata `json:"metadata"`
}

// IncidentID builds QIW-<CHANNEL>-<unixms>-<HASH8>.
func IncidentID(channel string, now time.Time) string {
	ms := now.UnixMilli()
	salt := make([]byte, 8)
	_, _ = rand.Read(salt)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d-%x", channel, ms, salt)))
	hash := strings.ToUpper(hex.EncodeToString(sum[:])[:8])
	return fmt.Sprintf("QIW-%s-%d-%s", strings.ToUpper(channel), ms, hash)
}

func newRecord(inc Incident, now time.Time) Record {
	ts := now.UTC().Format(time.RFC3339Nano)
	return Record{
		ID:        IncidentID(inc.Channel, now),
		Timestamp: ts,
		Status:    "detected",
		Incident:  inc,
		Metadata:  RecordMetadata{CreatedBy: "system", UpdatedAt: ts, Tags: []string{}},
	}
}
