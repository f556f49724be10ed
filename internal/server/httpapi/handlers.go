// Package httpapi exposes the gateway's HTTP surface: file lifecycle
// endpoints, credential-verified content download, the share and rename
// operations, and the debugging endpoints. Handlers translate between
// HTTP and the service layer; business rules live in the services.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/auth"
	"github.com/filegilla/filegateway/internal/server/repositories/adhoc"
	"github.com/filegilla/filegateway/internal/server/services/files"
	"github.com/filegilla/filegateway/internal/server/services/transfer"
)

type Handlers struct {
	files    *files.Service
	transfer *transfer.Service
	adhoc    adhoc.Repository
	logger   logging.Logger
}

func NewHandlers(f *files.Service, t *transfer.Service, a adhoc.Repository, logger logging.Logger) *Handlers {
	return &Handlers{files: f, transfer: t, adhoc: a, logger: logger}
}

// userField is the JSON payload of the multipart userId form field.
type userField struct {
	UserID string `json:"userId"`
}

// Upload accepts a multipart form with a file part and a userId field
// holding a small JSON document. The tenant's namespace is provisioned on
// first upload.
func (h *Handlers) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: missing file part", common.ErrorValidation))
		return
	}

	var u userField
	if err := json.Unmarshal([]byte(c.PostForm("userId")), &u); err != nil || u.UserID == "" {
		abortWithError(c, fmt.Errorf("%w: malformed userId field", common.ErrorValidation))
		return
	}

	f, err := header.Open()
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: unreadable file part", common.ErrorValidation))
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if err := h.files.Upload(c.Request.Context(), u.UserID, header.Filename, contentType, f); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, header.Filename+" uploaded successfully")
}

// GetFile returns one file's properties, credentialed URL included.
func (h *Handlers) GetFile(c *gin.Context) {
	userID := c.Query("userId")
	fileName := c.Query("fileName")

	info, err := h.files.Get(c.Request.Context(), userID, fileName)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// ListFiles enumerates the tenant's files. Unknown tenants get an empty
// listing.
func (h *Handlers) ListFiles(c *gin.Context) {
	infos, err := h.files.List(c.Request.Context(), c.Param("userId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": infos, "count": len(infos)})
}

type deleteRequest struct {
	UserID   string `json:"userId"`
	BlobName string `json:"blobName"`
}

// DeleteFile removes the named file. Deleting a file that does not exist
// reports 404, though the outcome is the same.
func (h *Handlers) DeleteFile(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: malformed request body", common.ErrorValidation))
		return
	}

	deleted, err := h.files.Delete(c.Request.Context(), req.UserID, req.BlobName)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if !deleted {
		abortWithError(c, fmt.Errorf("%w: %s", common.ErrorNotFound, req.BlobName))
		return
	}
	ok(c, req.BlobName+" deleted successfully")
}

type renameRequest struct {
	UserID      string `json:"userId"`
	OldFileName string `json:"oldFileName"`
	NewFileName string `json:"newFileName"`
}

// RenameFile renames a file inside the tenant's container.
func (h *Handlers) RenameFile(c *gin.Context) {
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: malformed request body", common.ErrorValidation))
		return
	}

	if err := h.transfer.Rename(c.Request.Context(), req.UserID, req.OldFileName, req.NewFileName); err != nil {
		abortWithError(c, err)
		return
	}
	ok(c, req.OldFileName+" renamed to "+req.NewFileName)
}

// ShareOperation publishes a file into the shared container and records the
// operation.
func (h *Handlers) ShareOperation(c *gin.Context) {
	var req transfer.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: malformed request body", common.ErrorValidation))
		return
	}

	rec, err := h.transfer.Share(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"shareUrl":  rec.PublicURL,
		"shareName": rec.ShareName,
		"uuid":      rec.UUID,
		"operation": rec.Operation,
	})
}

// Content streams a file to a holder of a valid access credential. The
// credential arrives as the token query parameter the listing appended to
// the URL.
func (h *Handlers) Content(c *gin.Context) {
	userID := c.Param("userId")
	fileName := strings.TrimPrefix(c.Param("fileName"), "/")
	token := c.Query(auth.TokenParam)

	rc, info, err := h.files.Open(c.Request.Context(), userID, fileName, token)
	if err != nil {
		abortWithError(c, err)
		return
	}
	defer rc.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", info.Name),
	}
	c.DataFromReader(http.StatusOK, info.Size, info.ContentType, rc, extraHeaders)
}

// AdHocQuery runs a constrained SELECT over a named table. Debug facility;
// always behind the function key.
func (h *Handlers) AdHocQuery(c *gin.Context) {
	table := c.Query("table")
	column := c.Query("column")
	condition := c.Query("condition")
	if table == "" || column == "" || condition == "" {
		abortWithError(c, fmt.Errorf("%w: table, column and condition are required", common.ErrorValidation))
		return
	}

	rows, err := h.adhoc.RunQuery(c.Request.Context(), table, column, condition)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// CurrentTime reports the server's clock.
func (h *Handlers) CurrentTime(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"currentTime": time.Now().UTC().Format(time.RFC3339)})
}

// Health is the liveness probe.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
