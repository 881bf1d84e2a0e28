package repository

import (
	"context"
	"errors"
	"fmt"

	"travel-booking/internal/data/entity"
	"travel-booking/pkg/database"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type UserRepository interface {
	// Ensure inserts the user unless it already exists and reports whether a
	// row was created.
	Ensure(ctx context.Context, username string) (bool, error)
	FindByUsername(ctx context.Context, username string, lock bool) (*entity.User, error)
}

type userRepository struct {
	db  database.Querier
	log *zap.Logger
}

func NewUserRepository(db database.Querier, log *zap.Logger) UserRepository {
	return &userRepository{
		db:  db,
		log: log.With(zap.String("repository", "user")),
	}
}

func (ur *userRepository) Ensure(ctx context.Context, username string) (bool, error) {
	query := `
		INSERT INTO users (username, created_at)
		VALUES ($1, NOW())
		ON CONFLICT (username) DO NOTHING
	`

	result, err := ur.db.Exec(ctx, query, username)
	if err != nil {
		ur.log.Error("Failed to ensure user",
			zap.Error(err),
			zap.String("username", username),
		)
		return false, fmt.Errorf("ensure user %s: %w", username, err)
	}

	return result.RowsAffected() == 1, nil
}

func (ur *userRepository) FindByUsername(ctx context.Context, username string, lock bool) (*entity.User, error) {
	query := `
		SELECT username, created_at
		FROM users
		WHERE username = $1
	`
	if lock {
		query += " FOR UPDATE"
	}

	var user entity.User
	err := ur.db.QueryRow(ctx, query, username).Scan(
		&user.Username,
		&user.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		ur.log.Error("Failed to find user by username",
			zap.Error(err),
			zap.String("username", username),
		)
		return nil, fmt.Errorf("find user by username %s: %w", username, err)
	}

	return &user, nil
}
