package db

import (
	"time"

	"gorm.io/datatypes"
)

// UsageRecord is one row per completed request. Records are append-only:
// written once at ingestion time, never updated, and removed only in bulk
// by retention cleanup.
type UsageRecord struct {
	ID uint `gorm:"primaryKey"`

	// CreatedAt is the instant of completion, set by the store at
	// insert time rather than by the caller.
	CreatedAt time.Time `gorm:"index"`

	// TenantID is the isolation boundary. Every record belongs to
	// exactly one tenant; queries never aggregate across tenants.
	TenantID string `gorm:"size:64;index;not null"`

	// CompanyID, UserID and APIKeyID are opaque sub-scope identifiers
	// supplied by the caller. Any of them may be empty.
	CompanyID string `gorm:"size:64;index"`
	UserID    string `gorm:"size:64;index"`
	APIKeyID  string `gorm:"size:64;index"`

	Endpoint   string `gorm:"size:255;index"`
	Method     string `gorm:"size:16"`
	StatusCode int

	ResponseTimeMs    float64
	RequestSizeBytes  int64
	ResponseSizeBytes int64

	UserAgent string `gorm:"size:255"`
	IPAddress string `gorm:"size:64"`
}

// CustomMetric is an application-defined measurement, independent of the
// request log. Tags are stored as JSON so callers can attach arbitrary
// dimensions (e.g. region, plan) without schema changes.
type CustomMetric struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index"`

	TenantID   string `gorm:"size:64;index;not null"`
	MetricName string `gorm:"size:128;index;not null"`

	Value float64 `gorm:"not null"`
	Unit  string  `gorm:"size:32"`

	Tags datatypes.JSONMap `gorm:"type:json"`
}

// APIKey is a bearer credential for ingesting and reading a tenant's data.
// The presented token has the form "<key id>.<secret>"; only a bcrypt hash
// of the secret is kept at rest.
type APIKey struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time
	UpdatedAt time.Time

	// KeyID is the public lookup half of the token.
	KeyID string `gorm:"uniqueIndex;size:64;not null"`

	// SecretHash is the bcrypt hash of the token's secret half.
	SecretHash string `gorm:"size:255;not null"`

	// TenantID is the tenant this key writes to and reads from.
	TenantID string `gorm:"size:64;index;not null"`

	// CompanyID optionally narrows the key to one company.
	CompanyID string `gorm:"size:64"`

	// Name is a human-friendly identifier for this key (e.g. "payments-api").
	Name string `gorm:"size:128;not null"`

	// RetentionDays optionally shortens the retention window for usage
	// records ingested with this key. 0 means "use the global default";
	// values at or above the global window are clamped to it.
	RetentionDays int `gorm:"not null;default:0"`

	// Active indicates whether this key is currently enabled.
	Active bool `gorm:"default:true"`
}
