// Package tenants provisions per-user storage namespaces on first touch:
// the metadata row, the tenant's container and its delegated access
// credential are all created lazily by the first operation that needs them.
package tenants

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/dbx"
	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/auth"
	"github.com/filegilla/filegateway/internal/server/blobstore"
	"github.com/filegilla/filegateway/internal/server/metrics"
	"github.com/filegilla/filegateway/internal/server/models"
	"github.com/filegilla/filegateway/internal/server/repositories/repomanager"
)

// ContainerName derives the tenant's container from the user id. Container
// names are lowercase by backend rule, so mixed-case ids map to one
// namespace.
func ContainerName(userID string) string {
	return "user-" + strings.ToLower(userID)
}

type Service struct {
	db      dbx.DBTX
	repo    repomanager.RepositoryManager
	store   blobstore.ObjectStore
	issuer  *auth.Issuer
	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewService(db dbx.DBTX, repo repomanager.RepositoryManager, store blobstore.ObjectStore,
	issuer *auth.Issuer, logger logging.Logger, m *metrics.Metrics) *Service {
	return &Service{db: db, repo: repo, store: store, issuer: issuer, logger: logger, metrics: m}
}

// EnsureTenant makes sure the user's namespace exists, creating the metadata
// row, container and access credential when it does not. It is safe to call
// concurrently for the same user: the row insert is idempotent and a lost
// container-creation race is treated as success. Returns the container name
// and whether this call created the container.
//
// The user id is lowercased before anything is stored or looked up, so
// mixed-case spellings of the same id resolve to one tenant in both the
// metadata store and the object store.
func (s *Service) EnsureTenant(ctx context.Context, userID string) (string, bool, error) {
	if userID == "" {
		return "", false, fmt.Errorf("%w: empty user id", common.ErrorValidation)
	}
	userID = strings.ToLower(userID)
	container := ContainerName(userID)

	exists, err := s.store.BucketExists(ctx, container)
	if err != nil {
		return "", false, err
	}
	if exists {
		return container, false, nil
	}

	user := &models.User{UserID: userID, CreationDate: time.Now().UTC()}
	if err := s.repo.Users(s.db).InsertIfAbsent(ctx, user); err != nil {
		return "", false, err
	}

	created := true
	if err := s.store.CreateBucket(ctx, container); err != nil {
		// A concurrent provisioning run won the race; the namespace exists,
		// which is all the caller needs.
		if !errors.Is(err, common.ErrorConflict) {
			return "", false, err
		}
		created = false
	}
	if created && s.metrics != nil {
		s.metrics.TenantsProvisioned.Inc()
	}

	if err := s.ensureCredential(ctx, userID, container); err != nil {
		return "", false, err
	}

	s.logger.Info(ctx, "tenant provisioned", "userId", userID, "container", container, "created", created)
	return container, created, nil
}

// Credential returns the tenant's stored access credential. The lookup uses
// the same lowercased id the provisioning path stores under.
func (s *Service) Credential(ctx context.Context, userID string) (*models.AccessCredential, error) {
	return s.repo.Credentials(s.db).GetByUserID(ctx, strings.ToLower(userID))
}

func (s *Service) ensureCredential(ctx context.Context, userID, container string) error {
	creds := s.repo.Credentials(s.db)
	if _, err := creds.GetByUserID(ctx, userID); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	token, start, end, err := s.issuer.Issue(container)
	if err != nil {
		return err
	}
	return creds.Append(ctx, &models.AccessCredential{
		UserID:    userID,
		Token:     token,
		StartTime: start,
		EndTime:   end,
	})
}
