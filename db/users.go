package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/padraicbc/nflodds/models"
)

// CreateUser inserts u. A taken email returns ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if _, err := s.db.NewInsert().Model(u).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SaveUser inserts u or, when the email exists, replaces its name, role and password.
func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	_, err := s.db.NewInsert().Model(u).
		On("CONFLICT (email) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("role = EXCLUDED.role").
		Set("password_hash = EXCLUDED.password_hash").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// UserByEmail returns ErrNotFound when no user has email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := s.db.NewSelect().Model(u).Where("email = ?", normalizeEmail(email)).Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// UserByID returns ErrNotFound when no user has id.
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := s.db.NewSelect().Model(u).Where("user_id = ?", id).Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
