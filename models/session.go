package models

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// SessionToken represents a signed-in browser session.
type SessionToken struct {
	Token      string    `json:"token"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	LastUsedAt time.Time `json:"last_used_at"`
}

const SessionTokenDuration = 30 * 24 * time.Hour // 1 month

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrExpiredSession = errors.New("session token expired")
)

// GenerateRandomKey returns length random bytes, URL-safe base64 encoded.
func GenerateRandomKey(length int) (string, error) {
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(key), nil
}

// CreateSessionToken generates a new session token for a user
func CreateSessionToken(username string) (string, error) {
	token, err := GenerateRandomKey(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(SessionTokenDuration)

	_, err = db.Exec(`
	INSERT INTO session_tokens (token, username, created_at, expires_at, last_used_at)
	VALUES (?, ?, ?, ?, ?)
	`, token, username, now.Unix(), expiresAt.Unix(), now.Unix())
	if err != nil {
		return "", fmt.Errorf("failed to store session token: %w", err)
	}

	return token, nil
}

// ValidateSessionToken returns the username owning token and bumps last_used_at.
func ValidateSessionToken(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}

	var username string
	var expiresAt int64
	err := db.QueryRow(`
	SELECT username, expires_at
	FROM session_tokens
	WHERE token = ?
	`, token).Scan(&username, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrInvalidSession
		}
		return "", fmt.Errorf("failed to validate token: %w", err)
	}

	if time.Now().Unix() > expiresAt {
		if err := DeleteSessionToken(token); err != nil {
			log.Warnf("failed to delete expired session: %v", err)
		}
		return "", ErrExpiredSession
	}

	if _, err := db.Exec(`
	UPDATE session_tokens
	SET last_used_at = ?
	WHERE token = ?
	`, time.Now().Unix(), token); err != nil {
		log.Warnf("failed to update last_used_at: %v", err)
	}

	return username, nil
}

// DeleteSessionToken removes a session token from the database
func DeleteSessionToken(token string) error {
	if _, err := db.Exec(`DELETE FROM session_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

// DeleteAllUserSessions removes all session tokens for a specific user
func DeleteAllUserSessions(username string) error {
	if _, err := db.Exec(`DELETE FROM session_tokens WHERE username = ?`, username); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes all expired session tokens and reports how
// many were removed.
func CleanupExpiredSessions() (int64, error) {
	result, err := db.Exec(`DELETE FROM session_tokens WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// GetUserSessions retrieves all active sessions for a user
func GetUserSessions(username string) ([]SessionToken, error) {
	rows, err := db.Query(`
	SELECT token, username, created_at, expires_at, last_used_at
	FROM session_tokens
	WHERE username = ? AND expires_at > ?
	ORDER BY last_used_at DESC
	`, username, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to get user sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionToken
	for rows.Next() {
		var session SessionToken
		var createdAt, expiresAt, lastUsedAt int64
		if err := rows.Scan(&session.Token, &session.Username, &createdAt, &expiresAt, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		session.CreatedAt = time.Unix(createdAt, 0)
		session.ExpiresAt = time.Unix(expiresAt, 0)
		session.LastUsedAt = time.Unix(lastUsedAt, 0)
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// CountActiveSessions returns the number of unexpired sessions.
func CountActiveSessions() (int64, error) {
	return CountRecords(`SELECT COUNT(*) FROM session_tokens WHERE expires_at > ?`, time.Now().Unix())
}
