package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"usagelens/internal/analytics"
)

type captureLogger struct {
	mu      sync.Mutex
	tenants []string
	samples []analytics.RequestSample
}

func (c *captureLogger) LogUsage(_ context.Context, tenant string, sample analytics.RequestSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tenants = append(c.tenants, tenant)
	c.samples = append(c.samples, sample)
}

func (c *captureLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.samples)
}

func newRequestCtx(method, uri string) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	return ctx
}

func TestUsageReporting_LogsCompletedRequest(t *testing.T) {
	logger := &captureLogger{}

	handler := UsageReporting(logger, "acme")(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusTeapot)
		ctx.SetBodyString("short and stout")
	})

	ctx := newRequestCtx("GET", "/api/orders?limit=5")
	ctx.Request.Header.SetUserAgent("curl/8.0")
	ctx.Request.SetBodyString("hello")
	handler(ctx)

	// The handler must not wait on the logger.
	require.Eventually(t, func() bool { return logger.count() == 1 }, time.Second, 5*time.Millisecond)

	logger.mu.Lock()
	defer logger.mu.Unlock()
	assert.Equal(t, "acme", logger.tenants[0])
	sample := logger.samples[0]
	assert.Equal(t, "/api/orders", sample.Endpoint)
	assert.Equal(t, "GET", sample.Method)
	assert.Equal(t, fasthttp.StatusTeapot, sample.StatusCode)
	assert.Equal(t, "curl/8.0", sample.UserAgent)
	assert.Equal(t, int64(5), sample.RequestSizeBytes)
	assert.Equal(t, int64(len("short and stout")), sample.ResponseSizeBytes)
	assert.GreaterOrEqual(t, sample.ResponseTimeMs, 0.0)
}

func TestUsageReporting_LogsOnPanicExit(t *testing.T) {
	logger := &captureLogger{}

	handler := UsageReporting(logger, "acme")(func(ctx *fasthttp.RequestCtx) {
		panic("handler exploded")
	})

	assert.Panics(t, func() { handler(newRequestCtx("POST", "/api/orders")) })
	require.Eventually(t, func() bool { return logger.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestUsageReporting_SkipsOperationalPaths(t *testing.T) {
	logger := &captureLogger{}

	handler := UsageReporting(logger, "acme")(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
	})

	handler(newRequestCtx("GET", "/healthz"))
	handler(newRequestCtx("GET", "/v1/metrics/prometheus"))

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, logger.count())
}

func TestUsageReporting_DisabledWithoutTenant(t *testing.T) {
	logger := &captureLogger{}
	called := false

	handler := UsageReporting(logger, "")(func(ctx *fasthttp.RequestCtx) {
		called = true
	})
	handler(newRequestCtx("GET", "/api/orders"))

	assert.True(t, called)
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, logger.count())
}
