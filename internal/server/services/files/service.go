// Package files implements the per-tenant file lifecycle: upload, listing,
// property retrieval, deletion and credentialed content access. Every write
// path provisions the tenant's namespace first, so a brand-new user can
// upload without any prior setup call.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/auth"
	"github.com/filegilla/filegateway/internal/server/blobstore"
	"github.com/filegilla/filegateway/internal/server/models"
	"github.com/filegilla/filegateway/internal/server/services/tenants"
)

type Service struct {
	tenants    *tenants.Service
	store      blobstore.ObjectStore
	issuer     *auth.Issuer
	logger     logging.Logger
	publicBase string
}

func NewService(t *tenants.Service, store blobstore.ObjectStore, issuer *auth.Issuer,
	logger logging.Logger, publicBase string) *Service {
	return &Service{tenants: t, store: store, issuer: issuer, logger: logger, publicBase: publicBase}
}

// Upload stores the file in the tenant's container, overwriting any previous
// object with the same name. The namespace is provisioned on first touch.
func (s *Service) Upload(ctx context.Context, userID, fileName, contentType string, body io.Reader) error {
	if err := validateNames(userID, fileName); err != nil {
		return err
	}
	container, _, err := s.tenants.EnsureTenant(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, container, fileName, contentType, body); err != nil {
		return err
	}
	s.logger.Info(ctx, "file uploaded", "userId", userID, "fileName", fileName)
	return nil
}

// List enumerates the tenant's files with full properties. Each URL carries
// the tenant's access credential so the client can fetch content directly.
// A user whose namespace was never provisioned gets an empty listing, not an
// error.
func (s *Service) List(ctx context.Context, userID string) ([]models.FileInfo, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", common.ErrorValidation)
	}
	container := tenants.ContainerName(userID)

	exists, err := s.store.BucketExists(ctx, container)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []models.FileInfo{}, nil
	}

	token, err := s.credentialToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	objects, err := s.store.List(ctx, container)
	if err != nil {
		return nil, err
	}
	infos := make([]models.FileInfo, 0, len(objects))
	for _, o := range objects {
		infos = append(infos, s.fileInfo(userID, token, &o))
	}
	return infos, nil
}

// Get returns one file's properties. Unlike List, the URL carries no
// credential; single-file lookups serve metadata, not content access.
func (s *Service) Get(ctx context.Context, userID, fileName string) (*models.FileInfo, error) {
	if err := validateNames(userID, fileName); err != nil {
		return nil, err
	}
	container := tenants.ContainerName(userID)

	obj, err := s.store.Head(ctx, container, fileName)
	if err != nil {
		return nil, err
	}
	info := s.fileInfo(userID, "", obj)
	return &info, nil
}

// Delete removes the file if present and reports whether anything was
// removed. Deleting a file that does not exist is not an error.
func (s *Service) Delete(ctx context.Context, userID, fileName string) (bool, error) {
	if err := validateNames(userID, fileName); err != nil {
		return false, err
	}
	deleted, err := s.store.Delete(ctx, tenants.ContainerName(userID), fileName)
	if err != nil {
		return false, err
	}
	s.logger.Info(ctx, "file delete", "userId", userID, "fileName", fileName, "deleted", deleted)
	return deleted, nil
}

// Open verifies the presented credential against the tenant's container and,
// when valid, opens the object content for streaming.
func (s *Service) Open(ctx context.Context, userID, fileName, token string) (io.ReadCloser, *blobstore.ObjectInfo, error) {
	if err := validateNames(userID, fileName); err != nil {
		return nil, nil, err
	}
	container := tenants.ContainerName(userID)
	if err := s.issuer.Verify(token, container, auth.PermRead); err != nil {
		return nil, nil, err
	}
	return s.store.Get(ctx, container, fileName)
}

// credentialToken returns the tenant's stored credential in query-string
// form, or the empty string when none was ever issued.
func (s *Service) credentialToken(ctx context.Context, userID string) (string, error) {
	cred, err := s.tenants.Credential(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil
		}
		return "", err
	}
	return cred.Token, nil
}

func (s *Service) fileInfo(userID, token string, o *blobstore.ObjectInfo) models.FileInfo {
	return models.FileInfo{
		Name:         o.Name,
		SizeInBytes:  o.Size,
		ContentType:  o.ContentType,
		LastModified: o.LastModified,
		BlobURL:      s.fileURL(userID, o.Name) + token,
		Metadata:     o.Metadata,
		MD5Hash:      o.ContentHash,
	}
}

func (s *Service) fileURL(userID, fileName string) string {
	return s.publicBase + "/api/content/" + url.PathEscape(userID) + "/" + url.PathEscape(fileName)
}

func validateNames(userID, fileName string) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", common.ErrorValidation)
	}
	if fileName == "" {
		return fmt.Errorf("%w: empty file name", common.ErrorValidation)
	}
	return nil
}
