package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/pkg/filter"
	"github.com/ianzepp/monk-api/pkg/schema"
)

// handleAggregate is POST /api/aggregate/:model: grouped SUM/AVG/MIN/
// MAX/COUNT/DISTINCT over a Model's rows (spec.md §4.3's
// `toAggregateSQL`). Unlike the create/update/delete surfaces this
// never touches pkg/record.Pipeline — it's a pure read, so it only
// needs a Schema lookup (to confirm the model exists) before lowering
// straight to SQL.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	var req filter.AggregateRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInvalidBody, err.Error()))
		return
	}

	adapter := adapterFromContext(r.Context())
	if _, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	table, err := schema.QuoteIdentifier(modelName)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	query, args, err := filter.ToAggregateSQL(table, req)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	rows, err := adapter.Query(r.Context(), dbadapter.Rebind(adapter, query), args...)
	if err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "running aggregate query"))
		return
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		row, err := dbadapter.ScanMap(rows)
		if err != nil {
			RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "reading aggregate result"))
			return
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "reading aggregate results"))
		return
	}

	RespondOK(w, http.StatusOK, out)
}
