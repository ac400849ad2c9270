package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "usagelens/internal/db"
)

type createAPIKeyRequest struct {
	Name          string `json:"name"`
	CompanyID     string `json:"company_id,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`
}

type createAPIKeyResponse struct {
	// Token is the full bearer credential, returned exactly once.
	Token         string `json:"token"`
	KeyID         string `json:"key_id"`
	Name          string `json:"name"`
	TenantID      string `json:"tenant_id"`
	CompanyID     string `json:"company_id,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`
}

// CreateAPIKeyHandler mints an additional API key for the authenticated
// key's tenant. A company-bound caller can only issue keys scoped to its
// own company.
func CreateAPIKeyHandler(gdb *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustAPIKey(ctx)
		if !ok {
			return
		}

		var payload createAPIKeyRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "key name is required")
			return
		}
		if payload.RetentionDays < 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "retention_days must not be negative")
			return
		}

		company := payload.CompanyID
		if key.CompanyID != "" {
			company = key.CompanyID
		}

		token, created, err := dbpkg.CreateAPIKey(gdb, key.TenantID, company, payload.Name, payload.RetentionDays)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create API key")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, createAPIKeyResponse{
			Token:         token,
			KeyID:         created.KeyID,
			Name:          created.Name,
			TenantID:      created.TenantID,
			CompanyID:     created.CompanyID,
			RetentionDays: created.RetentionDays,
		})
	}
}
