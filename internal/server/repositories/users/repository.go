package users

import (
	"context"

	"github.com/filegilla/filegateway/internal/server/models"
)

type Repository interface {
	// InsertIfAbsent creates the user row unless one already exists for the
	// same user_id. Re-entry from a retried or concurrent provisioning run is
	// a no-op, never an error.
	InsertIfAbsent(ctx context.Context, user *models.User) error

	Get(ctx context.Context, userID string) (*models.User, error)
}
