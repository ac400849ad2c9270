package db

import (
	"errors"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"usagelens/internal/config"
)

// Connect opens a GORM database connection using APP_DATABASE_URL (PostgreSQL URL).
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return nil, errors.New("APP_DATABASE_URL is required (PostgreSQL URL)")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return nil, errors.New("APP_DATABASE_URL must be a postgres:// or postgresql:// URL")
	}

	// PrepareStmt: true prevents the GORM postgres migrator from forcing simple protocol
	// for "SELECT * FROM table LIMIT 1", which would otherwise trigger "insufficient arguments".
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{PrepareStmt: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(gdb); err != nil {
		return nil, err
	}

	return gdb, nil
}

// Migrate auto-migrates the core tables.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&UsageRecord{}, &CustomMetric{}, &APIKey{})
}

// EnsureBootstrapAPIKey makes sure the bootstrap tenant has an API key
// matching the configured token. The token is used both by external
// reporters during first setup and by this instance's own usage-reporting
// hook. If a key with the token's key id already exists it is updated in
// place so a changed secret or tenant in config takes effect.
func EnsureBootstrapAPIKey(gdb *gorm.DB, cfg *config.Config) error {
	if cfg.BootstrapTenant == "" || cfg.BootstrapAPIKey == "" {
		return nil
	}

	keyID, secret, ok := strings.Cut(cfg.BootstrapAPIKey, ".")
	if !ok || keyID == "" || secret == "" {
		return errors.New("APP_BOOTSTRAP_API_KEY must be of the form <key id>.<secret>")
	}

	hash, err := hashSecret(secret)
	if err != nil {
		return err
	}

	var existing APIKey
	err = gdb.Where("key_id = ?", keyID).Limit(1).Find(&existing).Error
	if err != nil {
		return err
	}
	if existing.ID != 0 {
		existing.SecretHash = hash
		existing.TenantID = cfg.BootstrapTenant
		existing.Active = true
		return gdb.Save(&existing).Error
	}

	key := &APIKey{
		KeyID:         keyID,
		SecretHash:    hash,
		TenantID:      cfg.BootstrapTenant,
		Name:          "usagelens",
		RetentionDays: cfg.RetentionDays,
		Active:        true,
	}
	return gdb.Create(key).Error
}
