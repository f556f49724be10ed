package credentials

import (
	"context"

	"github.com/filegilla/filegateway/internal/server/models"
)

type Repository interface {
	// Append persists a new credential row. The table is append-only: a
	// retried provisioning run after a crash may add a second row for the
	// same tenant, which is accepted as a bounded anomaly.
	Append(ctx context.Context, cred *models.AccessCredential) error

	// GetByUserID returns the tenant's credential. When several rows exist
	// the one with the latest start_time wins.
	GetByUserID(ctx context.Context, userID string) (*models.AccessCredential, error)
}
