package handlers

import (
	"encoding/json"
	"strconv"

	"github.com/valyala/fasthttp"

	"usagelens/internal/analytics"
)

// IngestEvent is one reported request in an ingest batch. Timestamps are
// assigned by the store at insert time, so no client timestamp is accepted.
type IngestEvent struct {
	Path       string  `json:"path"`
	Method     string  `json:"method,omitempty"`
	Status     int     `json:"status,omitempty"`
	DurationMs float64 `json:"duration_ms"`

	UserID    string `json:"user_id,omitempty"`
	CompanyID string `json:"company_id,omitempty"`

	RequestSizeBytes  int64  `json:"request_size_bytes,omitempty"`
	ResponseSizeBytes int64  `json:"response_size_bytes,omitempty"`
	UserAgent         string `json:"user_agent,omitempty"`
	RemoteIP          string `json:"remote_ip,omitempty"`
}

type ingestRequest struct {
	Events []IngestEvent `json:"events"`
}

// IngestHandler accepts a batch of request events and logs each one under
// the authenticated key's tenant. Persistence is best-effort, so the batch
// is always accepted once it parses.
func IngestHandler(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustAPIKey(ctx)
		if !ok {
			return
		}

		var payload ingestRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if len(payload.Events) == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "no events provided")
			return
		}

		accepted := 0
		for _, ev := range payload.Events {
			if ev.Path == "" {
				continue
			}
			// An omitted status means a plain success; anything outside
			// the HTTP range is a reporter bug and is dropped.
			if ev.Status == 0 {
				ev.Status = fasthttp.StatusOK
			}
			if ev.Status < 100 || ev.Status > 599 {
				continue
			}

			company := ev.CompanyID
			if key.CompanyID != "" {
				company = key.CompanyID
			}

			svc.LogUsage(ctx, key.TenantID, analytics.RequestSample{
				CompanyID:         company,
				UserID:            ev.UserID,
				APIKeyID:          key.KeyID,
				Endpoint:          ev.Path,
				Method:            ev.Method,
				StatusCode:        ev.Status,
				ResponseTimeMs:    ev.DurationMs,
				RequestSizeBytes:  ev.RequestSizeBytes,
				ResponseSizeBytes: ev.ResponseSizeBytes,
				UserAgent:         ev.UserAgent,
				IPAddress:         ev.RemoteIP,
			})
			accepted++
		}

		if accepted == 0 {
			errResponse(ctx, fasthttp.StatusBadRequest, "no valid events after validation")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"accepted","count":` + strconv.Itoa(accepted) + `}`)
	}
}
