package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/orderdesk/internal/apperr"
	"github.com/01moynul/orderdesk/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SaveUser inserts u, or updates the account with the same email.
// A zero ID is assigned before insert.
func (s *SQLStore) SaveUser(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	ts := now()

	existing, err := s.GetUserByEmail(ctx, u.Email)
	switch {
	case err == nil:
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
		u.UpdatedAt = ts
		_, err = s.DB.ExecContext(ctx, `
			UPDATE users SET name = ?, password_hash = ?, is_admin = ?, updated_at = ?
			WHERE id = ?`,
			u.Name, u.PasswordHash, u.IsAdmin, u.UpdatedAt, u.ID.Hex())
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	case !apperr.Is(err, apperr.KindNotFound):
		return err
	}

	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.CreatedAt, u.UpdatedAt = ts, ts
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID.Hex(), u.Name, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.getUser(ctx, "id = ?", id.Hex())
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *SQLStore) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	var id string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, is_admin, created_at, updated_at
		FROM users WHERE `+where, arg).
		Scan(&id, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("user id %q: %w", id, err)
	}
	return &u, nil
}
