package httpapi

import (
	"net/http"

	"github.com/ianzepp/monk-api/internal/apperr"
	"github.com/ianzepp/monk-api/pkg/tenant"
)

// tenantCreateRequest is the body of POST /sudo/tenant (spec.md §6's
// root-only provisioning endpoint).
type tenantCreateRequest struct {
	Name          string `json:"name" validate:"required"`
	DBType        string `json:"db_type" validate:"omitempty,oneof=relational-shared relational-file"`
	OwnerUsername string `json:"owner_username"`
	Description   string `json:"description"`
}

type tenantResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	DBType   string `json:"db_type"`
	Database string `json:"database"`
	Schema   string `json:"schema"`
	IsActive bool   `json:"is_active"`
}

func toTenantResponse(t *tenant.Tenant) tenantResponse {
	return tenantResponse{
		ID: t.ID.String(), Name: t.Name, DBType: string(t.DBType),
		Database: t.Database, Schema: t.Schema, IsActive: t.IsActive,
	}
}

// handleTenantCreate provisions a new tenant namespace (spec.md §4.1's
// five-step provisioning sequence, delegated entirely to
// pkg/tenant.Manager.CreateTenant).
func (s *Server) handleTenantCreate(w http.ResponseWriter, r *http.Request) {
	var req tenantCreateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		RespondErr(w, s.Logger, err)
		return
	}

	result, err := s.manager.CreateTenant(r.Context(), tenant.CreateParams{
		Name: req.Name, DBType: tenant.DBType(req.DBType),
		OwnerUsername: req.OwnerUsername, Description: req.Description,
	})
	if err != nil {
		RespondErr(w, s.Logger, err)
		return
	}
	RespondOK(w, http.StatusCreated, toTenantResponse(result.Tenant))
}

// handleTenantList lists every non-deleted tenant.
func (s *Server) handleTenantList(w http.ResponseWriter, r *http.Request) {
	tenants, err := s.manager.ListTenants(r.Context())
	if err != nil {
		RespondErr(w, s.Logger, apperr.Wrap(err, apperr.CodeInternal, "listing tenants"))
		return
	}
	out := make([]tenantResponse, len(tenants))
	for i, t := range tenants {
		out[i] = toTenantResponse(t)
	}
	RespondOK(w, http.StatusOK, out)
}
