package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/dbx"
	"github.com/filegilla/filegateway/internal/server/models"
)

// PostgresRepository implements credential storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, cred *models.AccessCredential) error {
	query := `
		INSERT INTO credentials (user_id, token, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		cred.UserID, cred.Token, cred.StartTime, cred.EndTime).Scan(&cred.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.AccessCredential, error) {
	query := `
		SELECT id, user_id, token, start_time, end_time FROM credentials
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT 1
	`

	cred := &models.AccessCredential{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&cred.ID, &cred.UserID, &cred.Token, &cred.StartTime, &cred.EndTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}
