package shares

import (
	"context"

	"github.com/filegilla/filegateway/internal/server/models"
)

type Repository interface {
	// Insert writes one immutable share ledger row.
	Insert(ctx context.Context, rec *models.ShareRecord) error

	GetByUUID(ctx context.Context, uuid string) (*models.ShareRecord, error)

	// ListByUserID returns a user's share rows, newest first.
	ListByUserID(ctx context.Context, userID string) ([]*models.ShareRecord, error)
}
