package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const csrfTokenTTL = time.Hour

func CreateCSRFToken(db *sql.DB) (string, error) {
	token := uuid.New().String()
	expiresAt := time.Now().Add(csrfTokenTTL).Unix()

	_, err := db.Exec(`INSERT INTO csrf_tokens (token, expires_at) VALUES (?, ?)`, token, expiresAt)
	if err != nil {
		return "", fmt.Errorf("failed to create CSRF token: %w", err)
	}

	return token, nil
}

// ValidateCSRFToken consumes the token; each token is good for one request.
func ValidateCSRFToken(db *sql.DB, token string) error {
	var exists int
	err := db.QueryRow(`SELECT 1 FROM csrf_tokens WHERE token = ? AND expires_at > ?`, token, time.Now().Unix()).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("CSRF token not found or expired")
		}
		return fmt.Errorf("failed to validate CSRF token: %w", err)
	}

	if _, err := db.Exec(`DELETE FROM csrf_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete used CSRF token: %w", err)
	}

	return nil
}

func CleanupExpiredCSRFTokens(db *sql.DB) error {
	_, err := db.Exec(`DELETE FROM csrf_tokens WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to cleanup expired CSRF tokens: %w", err)
	}
	return nil
}
