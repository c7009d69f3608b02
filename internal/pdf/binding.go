package pdf

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	FormatDate   = "date"
	FormatNumber = "number"
	FormatText   = "text"
)

// ToData converts a record into the generic form templates bind against.
func ToData(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode template data: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode template data: %w", err)
	}
	return out, nil
}

// Lookup resolves a dot path such as "technician.name" or "items.0.partNo".
// Missing keys resolve to nil.
func Lookup(data any, path string) any {
	if path == "" {
		return nil
	}
	cur := data
	for _, key := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

// Format renders a bound value for display.
func Format(v any, format string) string {
	if v == nil {
		return ""
	}
	switch format {
	case FormatDate:
		return formatDate(v)
	default:
		return formatScalar(v)
	}
}

func formatDate(v any) string {
	switch d := v.(type) {
	case time.Time:
		return d.Format(time.DateOnly)
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
			if t, err := time.Parse(layout, d); err == nil {
				return t.Format(time.DateOnly)
			}
		}
		return d
	case float64:
		return time.UnixMilli(int64(d)).UTC().Format(time.DateOnly)
	}
	return formatScalar(v)
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// truthy follows the loose rules templates expect from stamp and checkbox bindings.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "false"
	case float64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	return true
}
