package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/dbx"
	"github.com/filegilla/filegateway/internal/server/models"
)

// PostgresRepository implements user storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// InsertIfAbsent inserts the user row, relying on the database's own
// conditional-insert primitive instead of a check-then-insert round trip, so
// two concurrent first-provisioning runs cannot both insert.
func (r *PostgresRepository) InsertIfAbsent(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_id, creation_date, phash, locked)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		user.UserID, user.CreationDate, user.PasswordHash, user.Locked)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT user_id, creation_date, phash, locked FROM users
		WHERE user_id = $1
	`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID, &user.CreationDate, &user.PasswordHash, &user.Locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
