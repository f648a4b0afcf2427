package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/internal/dbadapter"
	"github.com/ianzepp/monk-api/pkg/schema"
	"github.com/ianzepp/monk-api/pkg/tenant"
)

// modelSummary is what GET /api/describe/:model and the list endpoint
// return: Model attributes without Fields (spec.md §6: "Read Model
// (Fields excluded)").
type modelSummary struct {
	ModelName   string `json:"model_name"`
	Status      string `json:"status"`
	Sudo        bool   `json:"sudo"`
	Frozen      bool   `json:"frozen"`
	Immutable   bool   `json:"immutable"`
	External    bool   `json:"external"`
	Description string `json:"description"`
}

func toModelSummary(m schema.Model) modelSummary {
	return modelSummary{
		ModelName: m.ModelName, Status: string(m.Status), Sudo: m.Sudo,
		Frozen: m.Frozen, Immutable: m.Immutable, External: m.External, Description: m.Description,
	}
}

// handleDescribeList is the supplemental GET /api/describe (spec.md
// §6's per-model describe endpoints imply a listing sibling exists).
func (s *Server) handleDescribeList(w http.ResponseWriter, r *http.Request) {
	adapter := adapterFromContext(r.Context())
	models, err := schema.ListModels(r.Context(), adapter)
	if err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "listing models"))
		return
	}
	out := make([]modelSummary, len(models))
	for i, m := range models {
		out[i] = toModelSummary(m)
	}
	RespondOK(w, http.StatusOK, out)
}

type modelCreateRequest struct {
	Description string `json:"description"`
	Sudo        bool   `json:"sudo"`
	Frozen      bool   `json:"frozen"`
	Immutable   bool   `json:"immutable"`
	External    bool   `json:"external"`
	Fields      []fieldCreateRequest `json:"fields"`
}

// handleModelCreate materializes a new Model: inserts pending metadata,
// renders and executes the CREATE TABLE, then activates it (spec.md
// §3: "pending → active on first successful DDL"). Fields supplied
// inline in the body are created as part of the same table DDL.
func (s *Server) handleModelCreate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	var req modelCreateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	adapter := adapterFromContext(r.Context())
	if err := s.registry.CheckModelNameAvailable(r.Context(), adapter, modelName); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	m, err := schema.InsertModel(r.Context(), adapter, schema.CreateModelRequest{
		ModelName: modelName, Description: req.Description,
		Sudo: req.Sudo, Frozen: req.Frozen, Immutable: req.Immutable, External: req.External,
	})
	if err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "creating model"))
		return
	}

	fields := make([]schema.Field, 0, len(req.Fields))
	for _, fr := range req.Fields {
		f := fr.toField(modelName)
		inserted, err := schema.InsertField(r.Context(), adapter, f)
		if err != nil {
			RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "creating field"))
			return
		}
		fields = append(fields, inserted)
	}

	ddl, err := schema.CreateTableDDL(m, fields, adapter.Dialect())
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	if _, err := adapter.Exec(r.Context(), ddl); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "materializing model table"))
		return
	}
	if err := schema.ActivateModel(r.Context(), adapter, modelName); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "activating model"))
		return
	}

	s.invalidateSchema(r, modelName)
	m.Status = schema.StatusActive
	RespondOK(w, http.StatusCreated, toModelSummary(m))
}

func (s *Server) handleModelRead(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	adapter := adapterFromContext(r.Context())
	sc, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	RespondOK(w, http.StatusOK, toModelSummary(sc.Model))
}

type modelUpdateRequest struct {
	Description *string `json:"description"`
	Frozen      *bool   `json:"frozen"`
	Immutable   *bool   `json:"immutable"`
	External    *bool   `json:"external"`
}

func (s *Server) handleModelUpdate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	var req modelUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	adapter := adapterFromContext(r.Context())
	if _, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	changes := map[string]any{}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.Frozen != nil {
		changes["frozen"] = *req.Frozen
	}
	if req.Immutable != nil {
		changes["immutable"] = *req.Immutable
	}
	if req.External != nil {
		changes["external"] = *req.External
	}
	if err := schema.UpdateModelMetadata(r.Context(), adapter, modelName, changes); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "updating model"))
		return
	}

	s.invalidateSchema(r, modelName)
	sc, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	RespondOK(w, http.StatusOK, toModelSummary(sc.Model))
}

// handleModelDelete soft-deletes the Model's metadata and drops its
// backing table (spec.md §6: "Soft-delete Model (drops backing table)").
func (s *Server) handleModelDelete(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	adapter := adapterFromContext(r.Context())
	if _, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	ddl, err := schema.DropTableDDL(modelName)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	if _, err := adapter.Exec(r.Context(), ddl); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "dropping model table"))
		return
	}
	if err := schema.TrashModel(r.Context(), adapter, modelName); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	s.invalidateSchema(r, modelName)
	RespondOK(w, http.StatusOK, map[string]bool{"deleted": true})
}

// fieldCreateRequest is the wire shape of POST /api/describe/:model/:field
// (spec.md §6 "field spec"; field types enumerated per §6's "Field
// types (wire)" list).
type fieldCreateRequest struct {
	Type        string   `json:"type" validate:"required,oneof=text integer decimal numeric boolean timestamp date uuid jsonb binary bigserial"`
	IsArray     bool     `json:"is_array"`
	Required    bool     `json:"required"`
	Default     *string  `json:"default"`
	Description string   `json:"description"`
	Minimum     *float64 `json:"minimum"`
	Maximum     *float64 `json:"maximum"`
	Pattern     *string  `json:"pattern"`
	EnumValues  []string `json:"enum_values"`
	Unique      bool     `json:"unique"`
	Index       bool     `json:"index"`
	Searchable  bool     `json:"searchable"`
	Immutable   bool     `json:"immutable"`
	Sudo        bool     `json:"sudo"`
	Tracked     bool     `json:"tracked"`
	Transform   *string  `json:"transform"`
}

func (fr fieldCreateRequest) toField(modelName string) schema.Field {
	return schema.Field{
		ModelName: modelName, Type: schema.FieldType(fr.Type), IsArray: fr.IsArray,
		Required: fr.Required, Default: fr.Default, Description: fr.Description,
		Minimum: fr.Minimum, Maximum: fr.Maximum, Pattern: fr.Pattern, EnumValues: fr.EnumValues,
		Unique: fr.Unique, Index: fr.Index, Searchable: fr.Searchable, Immutable: fr.Immutable,
		Sudo: fr.Sudo, Tracked: fr.Tracked, Transform: fr.Transform,
	}
}

// handleFieldCreate inserts a Field's metadata and ALTER TABLEs it onto
// the Model's backing table (spec.md §6: "Create Field (and ALTER
// TABLE)").
func (s *Server) handleFieldCreate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	fieldName := chi.URLParam(r, "field")
	var req fieldCreateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	adapter := adapterFromContext(r.Context())
	if _, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	f := req.toField(modelName)
	f.FieldName = fieldName
	inserted, err := schema.InsertField(r.Context(), adapter, f)
	if err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "creating field"))
		return
	}

	tableEmpty, err := tableIsEmpty(r.Context(), adapter, modelName)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	ddl, err := schema.AddColumnDDL(modelName, inserted, adapter.Dialect(), tableEmpty)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	if _, err := adapter.Exec(r.Context(), ddl); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "altering model table"))
		return
	}

	s.invalidateSchema(r, modelName)
	RespondOK(w, http.StatusCreated, inserted)
}

func (s *Server) handleFieldRead(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	fieldName := chi.URLParam(r, "field")
	adapter := adapterFromContext(r.Context())
	sc, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	f, ok := sc.FieldByName(fieldName)
	if !ok {
		RespondErr(w, s.Logger, apperr.Newf(apperr.CodeFieldNotFound, "field %q not found on model %q", fieldName, modelName))
		return
	}
	RespondOK(w, http.StatusOK, f)
}

type fieldUpdateRequest struct {
	Type        *string  `json:"type" validate:"omitempty,oneof=text integer decimal numeric boolean timestamp date uuid jsonb binary bigserial"`
	Description *string  `json:"description"`
	Required    *bool    `json:"required"`
	Default     *string  `json:"default"`
	Minimum     *float64 `json:"minimum"`
	Maximum     *float64 `json:"maximum"`
	Pattern     *string  `json:"pattern"`
	Unique      *bool    `json:"unique"`
	Index       *bool    `json:"index"`
	Searchable  *bool    `json:"searchable"`
	Immutable   *bool    `json:"immutable"`
	Sudo        *bool    `json:"sudo"`
	Tracked     *bool    `json:"tracked"`
	Transform   *string  `json:"transform"`
}

// handleFieldUpdate applies a partial Field metadata change. A type
// change is only honored once CountNonNull confirms it's safe (spec.md
// §9's open-question resolution); an empty body is a no-op, logged at
// DEBUG per the same resolution.
func (s *Server) handleFieldUpdate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	fieldName := chi.URLParam(r, "field")
	var req fieldUpdateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	adapter := adapterFromContext(r.Context())
	sc, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	existing, ok := sc.FieldByName(fieldName)
	if !ok {
		RespondErr(w, s.Logger, apperr.Newf(apperr.CodeFieldNotFound, "field %q not found on model %q", fieldName, modelName))
		return
	}

	changes := map[string]any{}
	if req.Description != nil {
		changes["description"] = *req.Description
	}
	if req.Required != nil {
		changes["required"] = *req.Required
	}
	if req.Default != nil {
		changes["default_value"] = *req.Default
	}
	if req.Minimum != nil {
		changes["minimum"] = *req.Minimum
	}
	if req.Maximum != nil {
		changes["maximum"] = *req.Maximum
	}
	if req.Pattern != nil {
		changes["pattern"] = *req.Pattern
	}
	if req.Unique != nil {
		changes["is_unique"] = *req.Unique
	}
	if req.Index != nil {
		changes["is_index"] = *req.Index
	}
	if req.Searchable != nil {
		changes["searchable"] = *req.Searchable
	}
	if req.Immutable != nil {
		changes["immutable"] = *req.Immutable
	}
	if req.Sudo != nil {
		changes["sudo"] = *req.Sudo
	}
	if req.Tracked != nil {
		changes["tracked"] = *req.Tracked
	}
	if req.Transform != nil {
		changes["transform"] = *req.Transform
	}

	if req.Type != nil && string(existing.Type) != *req.Type {
		n, err := schema.CountNonNull(r.Context(), adapter, modelName, fieldName)
		if err != nil {
			RespondErr(w, s.Logger, err)
			return
		}
		if n > 0 {
			RespondErr(w, s.Logger, apperr.Newf(apperr.CodeValidation,
				"field %q has %d non-null values; cannot change type", fieldName, n))
			return
		}
		existing.Type = schema.FieldType(*req.Type)
		ddl, err := schema.AlterColumnTypeDDL(modelName, existing, adapter.Dialect())
		if err != nil {
			RespondErr(w, s.Logger, err)
			return
		}
		if _, err := adapter.Exec(r.Context(), ddl); err != nil {
			RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "altering field column type"))
			return
		}
		changes["type"] = *req.Type
	}

	if len(changes) == 0 {
		s.Logger.Debug("field update: empty body, no-op", "model", modelName, "field", fieldName)
	} else if err := schema.UpdateFieldMetadata(r.Context(), adapter, modelName, fieldName, changes); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "updating field"))
		return
	}

	s.invalidateSchema(r, modelName)
	updated, err := schema.GetField(r.Context(), adapter, modelName, fieldName)
	if err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "reading updated field"))
		return
	}
	RespondOK(w, http.StatusOK, updated)
}

func (s *Server) handleFieldDelete(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	fieldName := chi.URLParam(r, "field")
	adapter := adapterFromContext(r.Context())
	sc, err := s.registry.ToSchema(r.Context(), s.tenantID(r), modelName, adapter)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	if _, ok := sc.FieldByName(fieldName); !ok {
		RespondErr(w, s.Logger, apperr.Newf(apperr.CodeFieldNotFound, "field %q not found on model %q", fieldName, modelName))
		return
	}

	ddl, err := schema.DropColumnDDL(modelName, fieldName)
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	if _, err := adapter.Exec(r.Context(), ddl); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "dropping field column"))
		return
	}
	if err := schema.DropField(r.Context(), adapter, modelName, fieldName); err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "dropping field metadata"))
		return
	}
	s.invalidateSchema(r, modelName)
	RespondOK(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) tenantID(r *http.Request) string {
	if t := tenant.FromContext(r.Context()); t != nil {
		return t.ID.String()
	}
	return ""
}

func (s *Server) invalidateSchema(r *http.Request, modelName string) {
	s.registry.Invalidate(s.tenantID(r), modelName)
}

// tableIsEmpty reports whether a Model's backing table currently has
// zero rows, which lets AddColumnDDL skip the NOT NULL/DEFAULT dance
// required when adding a required column to a populated table.
func tableIsEmpty(ctx context.Context, adapter dbadapter.Adapter, modelName string) (bool, error) {
	table, err := schema.QuoteIdentifier(modelName)
	if err != nil {
		return false, err
	}
	row := adapter.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s LIMIT 1)`, table))
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, apperr.Wrap(err, apperr.CodeInternal, "checking table emptiness")
	}
	return !exists, nil
}
