package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"usagelens/internal/db"
)

// MetricPoint is one custom-metric observation in a time series.
type MetricPoint struct {
	Timestamp time.Time      `json:"timestamp"`
	Value     float64        `json:"value"`
	Unit      string         `json:"unit"`
	Tags      map[string]any `json:"tags,omitempty"`
}

// RecordMetric appends one custom metric for the tenant. Tags are persisted
// as JSON. Same best-effort contract as LogUsage: failures are logged and
// suppressed, never returned to the caller.
func (s *Service) RecordMetric(ctx context.Context, tenant, name string, value float64, unit string, tags map[string]any) {
	metric := db.CustomMetric{
		TenantID:   tenant,
		MetricName: name,
		Value:      value,
		Unit:       unit,
	}
	if len(tags) > 0 {
		metric.Tags = datatypes.JSONMap(tags)
	}

	if err := s.db.WithContext(ctx).Create(&metric).Error; err != nil {
		s.log.Error("failed to record custom metric",
			zap.String("tenant", tenant),
			zap.String("metric", name),
			zap.Error(err))
	}
}

// GetCustomMetrics returns the raw time series for one metric name within
// the inclusive [start, end] window, ordered ascending by timestamp. Tags
// are deserialized back into a map, or omitted when none were recorded.
func (s *Service) GetCustomMetrics(ctx context.Context, tenant, name string, start, end time.Time) ([]MetricPoint, error) {
	var rows []db.CustomMetric
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND metric_name = ?", tenant, name).
		Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("custom metrics query: %w", err)
	}

	points := make([]MetricPoint, 0, len(rows))
	for _, row := range rows {
		p := MetricPoint{
			Timestamp: row.CreatedAt,
			Value:     row.Value,
			Unit:      row.Unit,
		}
		if len(row.Tags) > 0 {
			p.Tags = map[string]any(row.Tags)
		}
		points = append(points, p)
	}
	return points, nil
}
