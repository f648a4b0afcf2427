package httpapi

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultLimit is applied to GET /api/data/:model when the caller
	// sends no explicit limit.
	DefaultLimit = 100
	// MaxLimit caps how many rows a single list request can request.
	MaxLimit = 1000
)

// listParams is the parsed query-string controls for GET /api/data/:model
// (spec.md §6's stat/access/pick plus limit/offset paging).
type listParams struct {
	Limit  int
	Offset int
	Stat   bool
	Access bool
	Pick   []string
}

func parseListParams(r *http.Request) listParams {
	q := r.URL.Query()
	p := listParams{Limit: DefaultLimit, Stat: true, Access: true}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			if n > MaxLimit {
				n = MaxLimit
			}
			p.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	if v := q.Get("stat"); v != "" {
		p.Stat = parseBoolParam(v, true)
	}
	if v := q.Get("access"); v != "" {
		p.Access = parseBoolParam(v, true)
	}
	if v := q.Get("pick"); v != "" {
		p.Pick = strings.Split(v, ",")
	}
	return p
}

func parseBoolParam(v string, fallback bool) bool {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}

// applyPick extracts a projection from data.a,data.b-style dotted paths
// rooted at "data" (spec.md §6: "pick=data.a,data.b extracts a
// projection from the payload"). Non-"data"-rooted paths and paths
// deeper than one segment below "data" are left to the caller's
// top-level keys as-is, since record payloads are flat.
func applyPick(rec map[string]any, pick []string) map[string]any {
	if len(pick) == 0 {
		return rec
	}
	out := make(map[string]any, len(pick))
	for _, path := range pick {
		key := strings.TrimPrefix(path, "data.")
		if v, ok := rec[key]; ok {
			out[key] = v
		}
	}
	return out
}
