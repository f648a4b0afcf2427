package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/pkg/filter"
	"github.com/ianzepp/monk-api/pkg/record"
)

// handleFind is POST /api/find/:model: a full filter.Document body
// (select/where/order/limit/offset/options) run through the filter
// engine (spec.md §6's advanced-query surface, distinct from the plain
// paginated GET /api/data/:model listing).
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	var doc filter.Document
	if err := decodeJSON(r, &doc); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInvalidBody, err.Error()))
		return
	}
	if doc.Limit == nil {
		limit := DefaultLimit
		doc.Limit = &limit
	} else if *doc.Limit > MaxLimit {
		capped := MaxLimit
		doc.Limit = &capped
	}

	adapter := adapterFromContext(r.Context())
	sudo := sudoFlag(r.Context())
	recs, err := s.pipeline.SelectAny(r.Context(), adapter, s.tenantID(r), modelName, doc, sudo)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	params := parseListParams(r)
	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		stripped := record.StripBase(rec, record.StripBaseOption{Stat: params.Stat, Access: params.Access})
		out[i] = applyPick(stripped, params.Pick)
	}
	RespondOK(w, http.StatusOK, out)
}
