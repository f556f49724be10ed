// Package transfer orchestrates the multi-step object movements the backend
// has no primitive for: rename inside a tenant's container and publishing a
// file into the shared container. Both are copy-based sequences; the
// intermediate states they can be left in by a crash are documented on each
// operation.
package transfer

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/dbx"
	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/blobstore"
	"github.com/filegilla/filegateway/internal/server/models"
	"github.com/filegilla/filegateway/internal/server/repositories/repomanager"
	"github.com/filegilla/filegateway/internal/server/services/tenants"
)

// ShareRequest carries one share operation. Every field is required.
type ShareRequest struct {
	UserID    string `json:"userId"`
	UUID      string `json:"uuid"`
	ShareName string `json:"shareName"`
	BlobURL   string `json:"blobUrl"`
	Operation string `json:"operation"`
}

type Service struct {
	db           dbx.DBTX
	repo         repomanager.RepositoryManager
	store        blobstore.ObjectStore
	sharedBucket string
	logger       logging.Logger
}

func NewService(db dbx.DBTX, repo repomanager.RepositoryManager, store blobstore.ObjectStore,
	sharedBucket string, logger logging.Logger) *Service {
	return &Service{db: db, repo: repo, store: store, sharedBucket: sharedBucket, logger: logger}
}

// Rename gives the object a new name via server-side copy followed by a
// delete of the source. The sequence is not atomic: a failed copy leaves the
// source untouched, and a failed delete leaves both names pointing at the
// same content, which a retry resolves.
func (s *Service) Rename(ctx context.Context, userID, oldName, newName string) error {
	if userID == "" || oldName == "" || newName == "" {
		return fmt.Errorf("%w: userId, oldFileName and newFileName are required", common.ErrorValidation)
	}
	if oldName == newName {
		return fmt.Errorf("%w: old and new file names are identical", common.ErrorValidation)
	}
	container := tenants.ContainerName(userID)

	if _, err := s.store.Head(ctx, container, oldName); err != nil {
		return err
	}
	if err := s.store.Copy(ctx, container, oldName, container, newName); err != nil {
		return err
	}
	if _, err := s.store.Delete(ctx, container, oldName); err != nil {
		s.logger.Warn(ctx, "rename left source behind after copy",
			"userId", userID, "oldFileName", oldName, "newFileName", newName, "error", err)
		return err
	}

	s.logger.Info(ctx, "file renamed", "userId", userID, "oldFileName", oldName, "newFileName", newName)
	return nil
}

// Share copies the referenced file into the shared container under the share
// name and records the operation in the share ledger. Create and edit follow
// the same path: the copy overwrites any previous shared object and a new
// immutable ledger row is written. Returns the completed record, public URL
// included.
func (s *Service) Share(ctx context.Context, req *ShareRequest) (*models.ShareRecord, error) {
	if err := validateShare(req); err != nil {
		return nil, err
	}

	sourceKey, err := sourceKeyFromURL(req.BlobURL)
	if err != nil {
		return nil, err
	}
	container := tenants.ContainerName(req.UserID)

	src, err := s.store.Head(ctx, container, sourceKey)
	if err != nil {
		return nil, err
	}

	shareKey := req.ShareName + path.Ext(sourceKey)
	if err := s.store.Copy(ctx, container, sourceKey, s.sharedBucket, shareKey); err != nil {
		return nil, err
	}

	rec := &models.ShareRecord{
		UUID:         req.UUID,
		ShareName:    req.ShareName,
		PublicURL:    s.store.ObjectURL(s.sharedBucket, shareKey),
		UserID:       req.UserID,
		CreationDate: time.Now().UTC(),
		SourceETag:   src.ContentHash,
		Operation:    req.Operation,
	}
	if err := s.repo.Shares(s.db).Insert(ctx, rec); err != nil {
		// The shared object exists but the ledger row does not; a retried
		// request overwrites the copy and records it.
		return nil, err
	}

	s.logger.Info(ctx, "file shared", "userId", req.UserID, "shareName", req.ShareName,
		"operation", req.Operation, "uuid", req.UUID)
	return rec, nil
}

func validateShare(req *ShareRequest) error {
	switch {
	case req == nil:
		return fmt.Errorf("%w: empty request", common.ErrorValidation)
	case req.UserID == "", req.UUID == "", req.ShareName == "", req.BlobURL == "":
		return fmt.Errorf("%w: userId, uuid, shareName and blobUrl are required", common.ErrorValidation)
	case req.Operation != models.ShareOpCreate && req.Operation != models.ShareOpEdit:
		return fmt.Errorf("%w: operation must be %q or %q", common.ErrorValidation,
			models.ShareOpCreate, models.ShareOpEdit)
	}
	if _, err := uuid.Parse(req.UUID); err != nil {
		return fmt.Errorf("%w: malformed uuid", common.ErrorValidation)
	}
	return nil
}

// sourceKeyFromURL extracts the object name from a stored blob URL, dropping
// the credential query string the listing appended.
func sourceKeyFromURL(blobURL string) (string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", fmt.Errorf("%w: malformed blobUrl", common.ErrorValidation)
	}
	// u.Path is already percent-decoded.
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" || strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("%w: blobUrl has no file name", common.ErrorValidation)
	}
	return name, nil
}
