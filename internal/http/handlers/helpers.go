package handlers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	dbpkg "usagelens/internal/db"
	httpctx "usagelens/internal/http/ctx"
)

// MustAPIKey returns the resolved API key from context, or sends 401 and
// returns (nil, false).
func MustAPIKey(ctx *fasthttp.RequestCtx) (*dbpkg.APIKey, bool) {
	key, ok := httpctx.APIKeyFromCtx(ctx)
	if !ok || key == nil {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return nil, false
	}
	return key, true
}

// parseWindow reads the query window: "start"/"end" as RFC 3339, or a
// relative "hours" (float, e.g. 0.5 or 6). Defaults to the last 24 hours
// ending now.
func parseWindow(ctx *fasthttp.RequestCtx) (start, end time.Time) {
	now := time.Now()
	end = now
	if v := string(ctx.QueryArgs().Peek("end")); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			end = t
		}
	}

	if v := string(ctx.QueryArgs().Peek("start")); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t, end
		}
	}
	if h := string(ctx.QueryArgs().Peek("hours")); h != "" {
		if f, err := strconv.ParseFloat(h, 64); err == nil && f > 0 {
			return end.Add(-time.Duration(f * float64(time.Hour))), end
		}
	}
	return end.Add(-24 * time.Hour), end
}

// companyScope resolves the company filter: a key bound to one company is
// always scoped to it, otherwise the "company" query parameter applies.
func companyScope(ctx *fasthttp.RequestCtx, key *dbpkg.APIKey) string {
	if key.CompanyID != "" {
		return key.CompanyID
	}
	return string(ctx.QueryArgs().Peek("company"))
}

func jsonResponse(ctx *fasthttp.RequestCtx, data any) {
	ctx.SetContentType("application/json")
	body, _ := json.Marshal(data)
	ctx.SetBody(body)
}

func errResponse(ctx *fasthttp.RequestCtx, code int, msg string) {
	ctx.SetStatusCode(code)
	ctx.SetBodyString(msg)
}
