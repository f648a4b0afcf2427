package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/dbadapter"
)

// jsonUnmarshalLoose unmarshals raw jsonb/json-as-text bytes into dst,
// treating an empty column as an empty object rather than an error.
func jsonUnmarshalLoose(b []byte, dst *map[string]any) error {
	if len(b) == 0 {
		*dst = map[string]any{}
		return nil
	}
	return json.Unmarshal(b, dst)
}

// changeEntry is one row of the `tracked` table (spec.md §3's Change
// entity), the shape GET /api/history/:model/:id returns.
type changeEntry struct {
	ChangeID  int64           `json:"change_id"`
	ModelName string          `json:"model_name"`
	RecordID  string          `json:"record_id"`
	Operation string          `json:"operation"`
	Changes   map[string]any  `json:"changes"`
	CreatedBy *string         `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	Metadata  map[string]any  `json:"metadata"`
}

const changeColumns = `change_id, model_name, record_id, operation, changes, created_by, created_at, metadata`

func scanChange(row dbadapter.Row) (changeEntry, error) {
	var c changeEntry
	var createdBy *uuid.UUID
	var changes, metadata []byte
	if err := row.Scan(&c.ChangeID, &c.ModelName, &c.RecordID, &c.Operation, &changes, &createdBy, &c.CreatedAt, &metadata); err != nil {
		return changeEntry{}, err
	}
	if createdBy != nil {
		s := createdBy.String()
		c.CreatedBy = &s
	}
	if err := jsonUnmarshalLoose(changes, &c.Changes); err != nil {
		return changeEntry{}, err
	}
	if err := jsonUnmarshalLoose(metadata, &c.Metadata); err != nil {
		return changeEntry{}, err
	}
	return c, nil
}

// handleHistoryList is GET /api/history/:model/:id: every Change entry
// recorded for one record, newest first.
func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondErr(w, s.Logger, apperr.Newf(apperr.CodeValidation, "invalid record id %q", chi.URLParam(r, "id")))
		return
	}

	adapter := adapterFromContext(r.Context())
	query := `SELECT ` + changeColumns + ` FROM tracked WHERE model_name = $1 AND record_id = $2 ORDER BY change_id DESC`
	rows, err := adapter.Query(r.Context(), dbadapter.Rebind(adapter, query), modelName, recordID)
	if err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "listing change history"))
		return
	}
	defer rows.Close()

	var out []changeEntry
	for rows.Next() {
		c, err := scanChange(rows)
		if err != nil {
			RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "reading change history"))
			return
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "reading change history"))
		return
	}
	RespondOK(w, http.StatusOK, out)
}

// handleHistoryRead is GET /api/history/:model/:id/:change_id: a single
// Change entry.
func (s *Server) handleHistoryRead(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondErr(w, s.Logger, apperr.Newf(apperr.CodeValidation, "invalid record id %q", chi.URLParam(r, "id")))
		return
	}
	changeID, err := strconv.ParseInt(chi.URLParam(r, "change_id"), 10, 64)
	if err != nil {
		RespondErr(w, s.Logger, apperr.Newf(apperr.CodeValidation, "invalid change id %q", chi.URLParam(r, "change_id")))
		return
	}

	adapter := adapterFromContext(r.Context())
	query := `SELECT ` + changeColumns + ` FROM tracked WHERE model_name = $1 AND record_id = $2 AND change_id = $3`
	row := adapter.QueryRow(r.Context(), dbadapter.Rebind(adapter, query), modelName, recordID, changeID)
	c, err := scanChange(row)
	if err != nil {
		if err == dbadapter.ErrNoRows {
			RespondErr(w, s.Logger, apperr.Newf(apperr.CodeNotFound, "change %d not found for record %s", changeID, recordID))
			return
		}
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "reading change entry"))
		return
	}
	RespondOK(w, http.StatusOK, c)
}
