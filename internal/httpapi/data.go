package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/pkg/filter"
	"github.com/ianzepp/monk-api/pkg/record"
)

// dataCreateRequest accepts either a single record object or a batch
// array (spec.md §6: "POST accepts one object or an array of objects").
type dataCreateRequest struct {
	single map[string]any
	batch  []map[string]any
}

func (d *dataCreateRequest) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		return json.Unmarshal(b, &d.batch)
	}
	var single map[string]any
	if err := json.Unmarshal(b, &single); err != nil {
		return err
	}
	d.single = single
	return nil
}

func (d *dataCreateRequest) payloads() []map[string]any {
	if d.batch != nil {
		return d.batch
	}
	return []map[string]any{d.single}
}

func (s *Server) handleDataCreate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	var req dataCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInvalidBody, err.Error()))
		return
	}

	adapter := adapterFromContext(r.Context())
	sudo := sudoFlag(r.Context())
	created, err := s.pipeline.CreateAll(r.Context(), adapter, s.tenantID(r), modelName, req.payloads(), sudo)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	params := parseListParams(r)
	out := make([]record.Record, len(created))
	for i, rec := range created {
		out[i] = record.StripBase(rec, record.StripBaseOption{Stat: params.Stat, Access: params.Access})
	}
	if req.batch == nil {
		if len(out) == 0 {
			RespondOK(w, http.StatusCreated, nil)
			return
		}
		RespondOK(w, http.StatusCreated, applyPick(out[0], params.Pick))
		return
	}
	RespondOK(w, http.StatusCreated, out)
}

// handleDataList is GET /api/data/:model, an all-rows read through the
// filter engine bounded by the limit/offset query controls (spec.md §6).
func (s *Server) handleDataList(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	params := parseListParams(r)
	limit := params.Limit
	offset := params.Offset

	doc := filter.Document{Limit: &limit, Offset: &offset}
	adapter := adapterFromContext(r.Context())
	sudo := sudoFlag(r.Context())
	recs, err := s.pipeline.SelectAny(r.Context(), adapter, s.tenantID(r), modelName, doc, sudo)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	out := make([]map[string]any, len(recs))
	for i, rec := range recs {
		stripped := record.StripBase(rec, record.StripBaseOption{Stat: params.Stat, Access: params.Access})
		out[i] = applyPick(stripped, params.Pick)
	}
	RespondOK(w, http.StatusOK, out)
}

func (s *Server) handleDataRead(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	id, err := parseRecordID(r)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	adapter := adapterFromContext(r.Context())
	sudo := sudoFlag(r.Context())
	doc := filter.Document{Where: map[string]any{"id": id}}
	rec, err := s.pipeline.Select404(r.Context(), adapter, s.tenantID(r), modelName, doc, sudo, "")
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	if rec.IsTrashed() {
		RespondErr(w, s.Logger, apperr.Newf(apperr.CodeTrashedRecord, "record %s is trashed", id))
		return
	}

	params := parseListParams(r)
	stripped := record.StripBase(rec, record.StripBaseOption{Stat: params.Stat, Access: params.Access})
	RespondOK(w, http.StatusOK, applyPick(stripped, params.Pick))
}

func (s *Server) handleDataUpdate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	id, err := parseRecordID(r)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	var changes map[string]any
	if err := decodeJSON(r, &changes); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInvalidBody, err.Error()))
		return
	}

	adapter := adapterFromContext(r.Context())
	sudo := sudoFlag(r.Context())
	updated, err := s.pipeline.UpdateAll(r.Context(), adapter, s.tenantID(r), modelName,
		[]record.Update{{ID: id, Changes: changes}}, sudo)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	params := parseListParams(r)
	stripped := record.StripBase(updated[0], record.StripBaseOption{Stat: params.Stat, Access: params.Access})
	RespondOK(w, http.StatusOK, applyPick(stripped, params.Pick))
}

func (s *Server) handleDataDelete(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	id, err := parseRecordID(r)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	adapter := adapterFromContext(r.Context())
	sudo := sudoFlag(r.Context())
	deleted, err := s.pipeline.DeleteAll(r.Context(), adapter, s.tenantID(r), modelName, []uuid.UUID{id}, sudo)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	RespondOK(w, http.StatusOK, record.StripBase(deleted[0], record.StripBaseOption{Stat: true, Access: true}))
}

func parseRecordID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Newf(apperr.CodeValidation, "invalid record id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}
