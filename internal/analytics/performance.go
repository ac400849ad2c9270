package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// PerformanceMetrics holds nearest-rank latency percentiles and the error
// and request totals for one tenant and window. All latency fields are in
// milliseconds and zero when the window is empty.
type PerformanceMetrics struct {
	P50 float64 `json:"p50_ms"`
	P95 float64 `json:"p95_ms"`
	P99 float64 `json:"p99_ms"`
	Max float64 `json:"max_ms"`
	Min float64 `json:"min_ms"`

	TotalErrors   int64 `json:"total_errors"`
	TotalRequests int64 `json:"total_requests"`
}

// GetPerformanceMetrics fetches every matching record's response time,
// sorts ascending and selects percentiles by nearest rank. The error total
// is counted by the store independently of the sorted slice.
func (s *Service) GetPerformanceMetrics(ctx context.Context, tenant string, start, end time.Time, company string) (*PerformanceMetrics, error) {
	var (
		times      []float64
		errorCount int64
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).
			Pluck("response_time_ms", &times).Error
	})
	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).
			Where("status_code >= ?", 400).
			Count(&errorCount).Error
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("performance metrics query: %w", err)
	}

	sort.Float64s(times)

	n := len(times)
	if n == 0 {
		return &PerformanceMetrics{TotalErrors: errorCount}, nil
	}

	return &PerformanceMetrics{
		P50:           nearestRank(times, 0.50),
		P95:           nearestRank(times, 0.95),
		P99:           nearestRank(times, 0.99),
		Max:           times[n-1],
		Min:           times[0],
		TotalErrors:   errorCount,
		TotalRequests: int64(n),
	}, nil
}

// nearestRank selects the element at index floor(n*q) of the ascending
// slice, clamped to the last element. No interpolation between ranks.
func nearestRank(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * q)
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}
