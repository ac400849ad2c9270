package db

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidAPIKey is returned when a presented token is malformed, unknown,
// inactive, or its secret does not match.
var ErrInvalidAPIKey = errors.New("invalid API key")

// CreateAPIKey issues a new key for the tenant and returns the full bearer
// token. The token is shown exactly once; only the secret's bcrypt hash is
// persisted.
func CreateAPIKey(gdb *gorm.DB, tenant, company, name string, retentionDays int) (string, *APIKey, error) {
	keyID := uuid.NewString()
	secret := uuid.NewString()

	hash, err := hashSecret(secret)
	if err != nil {
		return "", nil, err
	}

	key := &APIKey{
		KeyID:         keyID,
		SecretHash:    hash,
		TenantID:      tenant,
		CompanyID:     company,
		Name:          name,
		RetentionDays: retentionDays,
		Active:        true,
	}
	if err := gdb.Create(key).Error; err != nil {
		return "", nil, err
	}

	return keyID + "." + secret, key, nil
}

// ResolveAPIKey validates a bearer token of the form "<key id>.<secret>"
// and returns the matching active key.
func ResolveAPIKey(gdb *gorm.DB, token string) (*APIKey, error) {
	keyID, secret, ok := strings.Cut(token, ".")
	if !ok || keyID == "" || secret == "" {
		return nil, ErrInvalidAPIKey
	}

	var key APIKey
	if err := gdb.Where("key_id = ? AND active = ?", keyID, true).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAPIKey
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)) != nil {
		return nil, ErrInvalidAPIKey
	}

	return &key, nil
}

func hashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
