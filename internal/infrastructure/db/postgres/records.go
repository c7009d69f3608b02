package postgres

import (
	"github.com/partpulse/partpulse/internal/core/ports"
)

var sortColumns = map[string]string{
	"createdAt":  "created_at",
	"technician": "technician_name",
	"status":     "status",
}

// recordWhere translates the shared list filter. alias prefixes column names.
func recordWhere(f ports.RecordFilter, alias string) *whereBuilder {
	w := &whereBuilder{}
	if f.Status != "" {
		w.add(alias+"status = ?", f.Status)
	}
	if f.Technician != "" {
		w.add(alias+`technician_name ILIKE ?`, "%"+likeEscape(f.Technician)+"%")
	}
	if !f.From.IsZero() {
		w.add(alias+"created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		w.add(alias+"created_at <= ?", f.To)
	}
	return w
}

func recordOrder(f ports.RecordFilter, alias string) string {
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if f.SortOrder == "asc" {
		dir = "ASC"
	}
	return " ORDER BY " + alias + col + " " + dir + ", " + alias + "id " + dir
}

func recordPage(w *whereBuilder, f ports.RecordFilter) string {
	out := ""
	if f.Limit > 0 {
		out += " LIMIT " + w.next(f.Limit)
	}
	if f.Offset > 0 {
		out += " OFFSET " + w.next(f.Offset)
	}
	return out
}
