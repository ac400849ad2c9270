package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"usagelens/internal/analytics"
)

type recordMetricRequest struct {
	Name  string         `json:"name"`
	Value float64        `json:"value"`
	Unit  string         `json:"unit,omitempty"`
	Tags  map[string]any `json:"tags,omitempty"`
}

// RecordMetricHandler appends one custom metric for the authenticated
// key's tenant. Recording is best-effort, so a parsed request is always
// accepted.
func RecordMetricHandler(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustAPIKey(ctx)
		if !ok {
			return
		}

		var payload recordMetricRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}
		if payload.Name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "metric name is required")
			return
		}

		svc.RecordMetric(ctx, key.TenantID, payload.Name, payload.Value, payload.Unit, payload.Tags)

		ctx.SetStatusCode(fasthttp.StatusAccepted)
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`{"status":"accepted"}`)
	}
}

// CustomMetricsHandler returns the raw time series for one metric name.
func CustomMetricsHandler(svc *analytics.Service) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		key, ok := MustAPIKey(ctx)
		if !ok {
			return
		}

		name := string(ctx.QueryArgs().Peek("name"))
		if name == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "missing name query parameter")
			return
		}
		start, end := parseWindow(ctx)

		points, err := svc.GetCustomMetrics(ctx, key.TenantID, name, start, end)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to query custom metrics")
			return
		}
		jsonResponse(ctx, map[string]any{"metrics": points})
	}
}
