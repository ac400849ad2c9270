package middleware

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"

	"usagelens/internal/analytics"
)

// UsageLogger is the fire-and-forget sink the reporting hook hands completed
// request samples to.
type UsageLogger interface {
	LogUsage(ctx context.Context, tenant string, sample analytics.RequestSample)
}

// UsageReporting intercepts each request/response cycle, measures elapsed
// time and byte sizes, and hands the sample to the logger on a separate
// goroutine once the handler has produced its response. The hook runs on
// both normal and panicking exit paths and never delays or fails the
// request it is measuring. If tenant is empty the hook does nothing.
func UsageReporting(logger UsageLogger, tenant string) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if tenant == "" {
		return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
			return next
		}
	}

	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			requestSize := int64(len(ctx.Request.Body()))

			defer func() {
				path := string(ctx.Path())
				if path == "/healthz" || path == "/v1/metrics/prometheus" {
					return
				}

				sample := analytics.RequestSample{
					Endpoint:          path,
					Method:            string(ctx.Method()),
					StatusCode:        ctx.Response.StatusCode(),
					ResponseTimeMs:    float64(time.Since(start).Microseconds()) / 1000.0,
					RequestSizeBytes:  requestSize,
					ResponseSizeBytes: int64(len(ctx.Response.Body())),
					UserAgent:         string(ctx.Request.Header.UserAgent()),
					IPAddress:         ctx.RemoteAddr().String(),
				}

				go logger.LogUsage(context.Background(), tenant, sample)
			}()

			next(ctx)
		}
	}
}
