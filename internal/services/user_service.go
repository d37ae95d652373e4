package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/AnshRaj112/salvioris-chat/internal/database"
	"github.com/AnshRaj112/salvioris-chat/internal/models"
)

// GetUsernameByID retrieves a username by user id. Inactive users resolve
// to an empty username.
func GetUsernameByID(ctx context.Context, userID string) (string, error) {
	parsedID, err := uuid.Parse(userID)
	if err != nil {
		return "", err
	}

	var username string
	err = database.PostgresDB.QueryRowContext(ctx, `
		SELECT username FROM users WHERE id = $1 AND is_active = TRUE
	`, parsedID).Scan(&username)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return username, nil
}

// GetUserIDByUsername retrieves a user id by username (case-insensitive).
func GetUserIDByUsername(ctx context.Context, username string) (string, error) {
	var userID uuid.UUID
	err := database.PostgresDB.QueryRowContext(ctx, `
		SELECT id FROM users WHERE LOWER(username) = $1 AND is_active = TRUE
	`, strings.ToLower(username)).Scan(&userID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return userID.String(), nil
}

// ListContacts returns every active user except the caller, with live
// presence attached. The product has no friend graph; anyone can message
// anyone.
func ListContacts(ctx context.Context, currentUserID uuid.UUID) ([]models.Contact, error) {
	rows, err := database.PostgresDB.QueryContext(ctx, `
		SELECT id, username FROM users
		WHERE is_active = TRUE AND id != $1
		ORDER BY username ASC
	`, currentUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.Username); err != nil {
			return nil, err
		}
		c.Status = UserStatus(ctx, c.ID)
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
