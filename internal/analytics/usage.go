package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"usagelens/internal/db"
)

// topEndpointsLimit caps the endpoint ranking returned by GetUsageAnalytics.
const topEndpointsLimit = 10

// EndpointStat is one (endpoint, method) pair with its request count and
// mean response time.
type EndpointStat struct {
	Endpoint            string  `json:"endpoint"`
	Method              string  `json:"method"`
	Count               int64   `json:"count"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
}

// HourlyStat is the request count and mean response time for one hour of
// day (0-23). Hours with no records are omitted entirely.
type HourlyStat struct {
	Hour                int     `json:"hour"`
	Count               int64   `json:"count"`
	AverageResponseTime float64 `json:"average_response_time_ms"`
}

// UsageAnalytics is the aggregate view over one tenant's records in a
// time window.
type UsageAnalytics struct {
	TotalRequests       int64   `json:"total_requests"`
	AverageResponseTime float64 `json:"average_response_time_ms"`

	// ErrorRate is the percentage (0-100) of requests with a status
	// code >= 400. Zero when there are no requests.
	ErrorRate float64 `json:"error_rate"`

	// TopEndpoints holds at most 10 entries ordered by count descending;
	// equal counts are ordered by endpoint then method, ascending.
	TopEndpoints []EndpointStat `json:"top_endpoints"`

	// StatusCodeDistribution maps each status code present in the window
	// to its count. Absent codes are not zero-filled.
	StatusCodeDistribution map[int]int64 `json:"status_code_distribution"`

	// HourlyDistribution is sorted ascending by hour.
	HourlyDistribution []HourlyStat `json:"hourly_distribution"`
}

type statusCodeCount struct {
	StatusCode int
	Count      int64
}

// GetUsageAnalytics computes the aggregate view for one tenant over the
// inclusive [start, end] window, optionally narrowed to one company. The
// independent store queries are issued concurrently and the result is
// assembled once all have returned.
//
// The hourly distribution cannot be pushed down to a store group-by, so the
// matching rows (timestamp and response time only) are materialized and
// folded in memory. On very large windows that materialization is the
// dominant memory cost of this call.
func (s *Service) GetUsageAnalytics(ctx context.Context, tenant string, start, end time.Time, company string) (*UsageAnalytics, error) {
	var (
		total      int64
		avgTime    float64
		errorCount int64
		top        []EndpointStat
		statusRows []statusCodeCount
		records    []db.UsageRecord
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).Count(&total).Error
	})
	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).
			Select("COALESCE(AVG(response_time_ms), 0)").
			Scan(&avgTime).Error
	})
	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).
			Where("status_code >= ?", 400).
			Count(&errorCount).Error
	})
	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).
			Select("endpoint, method, count(*) AS count, AVG(response_time_ms) AS average_response_time").
			Group("endpoint, method").
			Order("count(*) DESC, endpoint ASC, method ASC").
			Limit(topEndpointsLimit).
			Scan(&top).Error
	})
	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).
			Select("status_code, count(*) AS count").
			Group("status_code").
			Scan(&statusRows).Error
	})
	g.Go(func() error {
		return s.scoped(gctx, tenant, start, end, company).
			Select("created_at", "response_time_ms").
			Find(&records).Error
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("usage analytics query: %w", err)
	}

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(errorCount) / float64(total) * 100
	}

	statusDist := make(map[int]int64, len(statusRows))
	for _, row := range statusRows {
		statusDist[row.StatusCode] = row.Count
	}

	return &UsageAnalytics{
		TotalRequests:          total,
		AverageResponseTime:    avgTime,
		ErrorRate:              errorRate,
		TopEndpoints:           top,
		StatusCodeDistribution: statusDist,
		HourlyDistribution:     s.foldHourly(records),
	}, nil
}

// foldHourly buckets records by hour-of-day in the service's pinned zone,
// accumulating (count, sum of response time) per hour and deriving the mean
// at the end. Hours with no records never appear in the result.
func (s *Service) foldHourly(records []db.UsageRecord) []HourlyStat {
	type accum struct {
		count int64
		sum   float64
	}
	byHour := make(map[int]accum)
	for _, rec := range records {
		h := rec.CreatedAt.In(s.loc).Hour()
		a := byHour[h]
		a.count++
		a.sum += rec.ResponseTimeMs
		byHour[h] = a
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	out := make([]HourlyStat, 0, len(hours))
	for _, h := range hours {
		a := byHour[h]
		out = append(out, HourlyStat{
			Hour:                h,
			Count:               a.count,
			AverageResponseTime: a.sum / float64(a.count),
		})
	}
	return out
}
