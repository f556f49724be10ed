package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/dbx"
	"github.com/filegilla/filegateway/internal/server/models"
)

// PostgresRepository implements the share ledger over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, rec *models.ShareRecord) error {
	query := `
		INSERT INTO shares (uuid, share_name, public_url, user_id, creation_date, source_etag, operation)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.UUID, rec.ShareName, rec.PublicURL, rec.UserID, rec.CreationDate, rec.SourceETag, rec.Operation)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUUID(ctx context.Context, uuid string) (*models.ShareRecord, error) {
	query := `
		SELECT uuid, share_name, public_url, user_id, creation_date, source_etag, operation
		FROM shares
		WHERE uuid = $1
	`

	rec := &models.ShareRecord{}
	err := r.db.QueryRowContext(ctx, query, uuid).Scan(
		&rec.UUID, &rec.ShareName, &rec.PublicURL, &rec.UserID,
		&rec.CreationDate, &rec.SourceETag, &rec.Operation)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rec, nil
}

func (r *PostgresRepository) ListByUserID(ctx context.Context, userID string) ([]*models.ShareRecord, error) {
	query := `
		SELECT uuid, share_name, public_url, user_id, creation_date, source_etag, operation
		FROM shares
		WHERE user_id = $1
		ORDER BY creation_date DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.ShareRecord
	for rows.Next() {
		var rec models.ShareRecord
		if err := rows.Scan(&rec.UUID, &rec.ShareName, &rec.PublicURL, &rec.UserID,
			&rec.CreationDate, &rec.SourceETag, &rec.Operation); err != nil {
			return nil, err
		}
		result = append(result, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
