package postgres

import (
	"testing"
	"time"

	"github.com/partpulse/partpulse/internal/core/domain"
	"github.com/partpulse/partpulse/internal/core/ports"
)

func TestLikeEscape(t *testing.T) {
	if got := likeEscape(`invitation_email_`); got != `invitation\_email\_` {
		t.Fatalf("unexpected escape %q", got)
	}
	if got := likeEscape(`50%\`); got != `50\%\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}

func TestRecordWhere(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	w := recordWhere(ports.RecordFilter{Status: "pending", Technician: "ann", From: from}, "t.")

	want := " WHERE t.status = $1 AND t.technician_name ILIKE $2 AND t.created_at >= $3"
	if got := w.sql(); got != want {
		t.Fatalf("where = %q\nwant   %q", got, want)
	}
	if len(w.args) != 3 || w.args[1] != "%ann%" {
		t.Fatalf("unexpected args %v", w.args)
	}

	page := recordPage(w, ports.RecordFilter{Limit: 10, Offset: 20})
	if page != " LIMIT $4 OFFSET $5" {
		t.Fatalf("unexpected page clause %q", page)
	}
}

func TestRecordOrder(t *testing.T) {
	tests := []struct {
		f    ports.RecordFilter
		want string
	}{
		{ports.RecordFilter{}, " ORDER BY c.created_at DESC, c.id DESC"},
		{ports.RecordFilter{SortBy: "technician", SortOrder: "asc"}, " ORDER BY c.technician_name ASC, c.id ASC"},
		{ports.RecordFilter{SortBy: "created_at; DROP TABLE users"}, " ORDER BY c.created_at DESC, c.id DESC"},
	}
	for _, tc := range tests {
		if got := recordOrder(tc.f, "c."); got != tc.want {
			t.Errorf("recordOrder(%+v) = %q, want %q", tc.f, got, tc.want)
		}
	}
}

func TestSystemLogWhere(t *testing.T) {
	ok := true
	w := systemLogWhere(ports.SystemLogFilter{EventType: domain.EventAuth, ActionSuffix: "_sent", Success: &ok})
	want := " WHERE event_type = $1 AND action LIKE $2 AND success = $3"
	if got := w.sql(); got != want {
		t.Fatalf("where = %q\nwant   %q", got, want)
	}
	if w.args[1] != `%\_sent` {
		t.Fatalf("unexpected pattern %v", w.args[1])
	}
}
