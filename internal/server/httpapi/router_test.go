package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/filegilla/filegateway/internal/common"
	"github.com/filegilla/filegateway/internal/dbx"
	"github.com/filegilla/filegateway/internal/logging"
	"github.com/filegilla/filegateway/internal/server/auth"
	"github.com/filegilla/filegateway/internal/server/blobstore"
	"github.com/filegilla/filegateway/internal/server/metrics"
	"github.com/filegilla/filegateway/internal/server/models"
	"github.com/filegilla/filegateway/internal/server/repositories/adhoc"
	"github.com/filegilla/filegateway/internal/server/repositories/credentials"
	"github.com/filegilla/filegateway/internal/server/repositories/shares"
	"github.com/filegilla/filegateway/internal/server/repositories/users"
	"github.com/filegilla/filegateway/internal/server/services/files"
	"github.com/filegilla/filegateway/internal/server/services/tenants"
	"github.com/filegilla/filegateway/internal/server/services/transfer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct{ rows map[string]*models.User }

func (f *fakeUsers) InsertIfAbsent(_ context.Context, u *models.User) error {
	if _, ok := f.rows[u.UserID]; !ok {
		f.rows[u.UserID] = u
	}
	return nil
}

func (f *fakeUsers) Get(_ context.Context, userID string) (*models.User, error) {
	u, ok := f.rows[userID]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", common.ErrorNotFound, userID)
	}
	return u, nil
}

type fakeCredentials struct{ rows []*models.AccessCredential }

func (f *fakeCredentials) Append(_ context.Context, c *models.AccessCredential) error {
	c.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, c)
	return nil
}

func (f *fakeCredentials) GetByUserID(_ context.Context, userID string) (*models.AccessCredential, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if f.rows[i].UserID == userID {
			return f.rows[i], nil
		}
	}
	return nil, fmt.Errorf("%w: credential for %s", common.ErrorNotFound, userID)
}

type fakeShares struct{ rows []*models.ShareRecord }

func (f *fakeShares) Insert(_ context.Context, rec *models.ShareRecord) error {
	f.rows = append(f.rows, rec)
	return nil
}

func (f *fakeShares) GetByUUID(_ context.Context, uuid string) (*models.ShareRecord, error) {
	for _, r := range f.rows {
		if r.UUID == uuid {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: share %s", common.ErrorNotFound, uuid)
}

func (f *fakeShares) ListByUserID(_ context.Context, userID string) ([]*models.ShareRecord, error) {
	var out []*models.ShareRecord
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAdHoc struct{ rows []map[string]any }

func (f *fakeAdHoc) RunQuery(_ context.Context, table, column, condition string) ([]map[string]any, error) {
	if table == "nope" {
		return nil, fmt.Errorf("%w: invalid table name", common.ErrorValidation)
	}
	return f.rows, nil
}

type fakeManager struct {
	users  *fakeUsers
	creds  *fakeCredentials
	shares *fakeShares
	adhoc  *fakeAdHoc
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeManager) Users(dbx.DBTX) users.Repository             { return f.users }
func (f *fakeManager) Credentials(dbx.DBTX) credentials.Repository { return f.creds }
func (f *fakeManager) Shares(dbx.DBTX) shares.Repository           { return f.shares }
func (f *fakeManager) AdHoc(dbx.DBTX) adhoc.Repository             { return f.adhoc }

type testEnv struct {
	router *gin.Engine
	store  *blobstore.MemoryStore
	ledger *fakeShares
}

func newTestEnv(t *testing.T, functionKeyHash string) *testEnv {
	t.Helper()

	mgr := &fakeManager{
		users:  &fakeUsers{rows: map[string]*models.User{}},
		creds:  &fakeCredentials{},
		shares: &fakeShares{},
		adhoc:  &fakeAdHoc{rows: []map[string]any{{"user_id": "alice"}}},
	}
	store := blobstore.NewMemoryStore()
	if err := store.CreateBucket(context.Background(), "shares"); err != nil {
		t.Fatalf("create shared bucket: %v", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour)

	tsvc := tenants.NewService(nil, mgr, store, issuer, logger, m)
	fsvc := files.NewService(tsvc, store, issuer, logger, "")
	xsvc := transfer.NewService(nil, mgr, store, "shares", logger)

	h := NewHandlers(fsvc, xsvc, mgr.adhoc, logger)
	return &testEnv{
		router: NewRouter(h, m, reg, logger, functionKeyHash),
		store:  store,
		ledger: mgr.shares,
	}
}

func multipartUpload(t *testing.T, userID, fileName, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.WriteField("userId", fmt.Sprintf(`{"userId":%q}`, userID)); err != nil {
		t.Fatalf("write userId field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func doJSON(router *gin.Engine, method, target string, payload any) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLifecycle_UploadListDownloadRenameDelete(t *testing.T) {
	env := newTestEnv(t, "")

	// Upload provisions the namespace on first touch.
	body, contentType := multipartUpload(t, "alice", "report.pdf", "application/pdf", "pdf bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body.String())
	}
	var uploadResp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &uploadResp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if !uploadResp.Success || uploadResp.Message == "" {
		t.Fatalf("upload must report {success, message}: %s", rec.Body.String())
	}

	// List returns the file with a credentialed URL.
	rec = doJSON(env.router, http.MethodGet, "/api/files/alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	var listing struct {
		Files []models.FileInfo `json:"files"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Count != 1 || listing.Files[0].Name != "report.pdf" {
		t.Fatalf("unexpected listing: %+v", listing)
	}
	blobURL := listing.Files[0].BlobURL
	if !strings.Contains(blobURL, "?token=") {
		t.Fatalf("listed URL must carry the credential: %q", blobURL)
	}

	// The listed URL downloads the content.
	rec = doJSON(env.router, http.MethodGet, blobURL, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "pdf bytes" {
		t.Fatalf("download: %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type: %q", ct)
	}

	// A forged credential is rejected.
	rec = doJSON(env.router, http.MethodGet, "/api/content/alice/report.pdf?token=forged", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged token: %d", rec.Code)
	}

	// Rename.
	rec = doJSON(env.router, http.MethodPut, "/api/renameFile", renameRequest{
		UserID: "alice", OldFileName: "report.pdf", NewFileName: "q3-report.pdf",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("rename: %d %s", rec.Code, rec.Body.String())
	}

	// Delete reports 404 once the file is gone.
	rec = doJSON(env.router, http.MethodDelete, "/api/deleteFile", deleteRequest{
		UserID: "alice", BlobName: "q3-report.pdf",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(env.router, http.MethodDelete, "/api/deleteFile", deleteRequest{
		UserID: "alice", BlobName: "q3-report.pdf",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("repeat delete: %d %s", rec.Code, rec.Body.String())
	}
	var failResp struct {
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &failResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if failResp.Success == nil || *failResp.Success || failResp.Error == "" {
		t.Fatalf("error body must report success=false with a reason: %s", rec.Body.String())
	}
}

func TestGetFile_Properties(t *testing.T) {
	env := newTestEnv(t, "")

	body, contentType := multipartUpload(t, "alice", "notes.txt", "text/plain", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	rec = doJSON(env.router, http.MethodGet, "/api/getFile?userId=alice&fileName=notes.txt", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("getFile: %d %s", rec.Code, rec.Body.String())
	}
	var info models.FileInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.SizeInBytes != int64(len("hello")) || info.MD5Hash == "" {
		t.Fatalf("unexpected info: %+v", info)
	}

	rec = doJSON(env.router, http.MethodGet, "/api/getFile?userId=alice&fileName=ghost.txt", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing file: %d", rec.Code)
	}
}

func TestShareOperation(t *testing.T) {
	env := newTestEnv(t, "")

	body, contentType := multipartUpload(t, "alice", "doc.pdf", "application/pdf", "doc body")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	rec = doJSON(env.router, http.MethodPost, "/api/shareOperation", transfer.ShareRequest{
		UserID:    "alice",
		UUID:      "3f1d9a60-0c1e-4b58-9a7e-1d2f3a4b5c6d",
		ShareName: "public-doc",
		BlobURL:   "/api/content/alice/doc.pdf?token=abc",
		Operation: models.ShareOpCreate,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("share: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ShareURL string `json:"shareUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.ShareURL == "" {
		t.Fatalf("share response: %v %s", err, rec.Body.String())
	}
	if _, err := env.store.Head(context.Background(), "shares", "public-doc.pdf"); err != nil {
		t.Fatalf("shared copy missing: %v", err)
	}
	if len(env.ledger.rows) != 1 {
		t.Fatalf("ledger rows: %d", len(env.ledger.rows))
	}

	// Invalid operation is rejected before anything happens.
	rec = doJSON(env.router, http.MethodPost, "/api/shareOperation", transfer.ShareRequest{
		UserID:    "alice",
		UUID:      "3f1d9a60-0c1e-4b58-9a7e-1d2f3a4b5c6d",
		ShareName: "public-doc",
		BlobURL:   "/api/content/alice/doc.pdf",
		Operation: "delete",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid operation: %d", rec.Code)
	}
}

func TestFunctionKeyGate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("the-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	env := newTestEnv(t, string(hash))

	rec := doJSON(env.router, http.MethodGet, "/api/files/alice", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files/alice", nil)
	req.Header.Set("X-Functions-Key", "the-key")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("header key: %d %s", rr.Code, rr.Body.String())
	}

	rec = doJSON(env.router, http.MethodGet, "/api/files/alice?code=the-key", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("query key: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(env.router, http.MethodGet, "/api/files/alice?code=wrong", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: %d", rec.Code)
	}

	// Health and metrics stay open.
	rec = doJSON(env.router, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health behind key: %d", rec.Code)
	}
}

func TestAdHocQuery(t *testing.T) {
	env := newTestEnv(t, "")

	rec := doJSON(env.router, http.MethodGet, "/api/bron?table=users&column=user_id&condition=alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bron: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Rows  []map[string]any `json:"rows"`
		Count int              `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Count != 1 {
		t.Fatalf("bron response: %v %s", err, rec.Body.String())
	}

	rec = doJSON(env.router, http.MethodGet, "/api/bron?table=users", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing params: %d", rec.Code)
	}
}

func TestTimeAndHealth(t *testing.T) {
	env := newTestEnv(t, "")

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		rec := doJSON(env.router, method, "/api/time", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s /api/time: %d", method, rec.Code)
		}
		var resp struct {
			CurrentTime string `json:"currentTime"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, err := time.Parse(time.RFC3339, resp.CurrentTime); err != nil {
			t.Fatalf("currentTime not RFC3339: %q", resp.CurrentTime)
		}
	}

	rec := doJSON(env.router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics: %d", rec.Code)
	}
}

func TestUploadValidation(t *testing.T) {
	env := newTestEnv(t, "")

	// Missing file part.
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	_ = w.WriteField("userId", `{"userId":"alice"}`)
	_ = w.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file part: %d", rec.Code)
	}

	// Malformed userId field.
	body, contentType := multipartUpload(t, "alice", "a.txt", "text/plain", "x")
	broken := bytes.Replace(body.Bytes(), []byte(`{"userId":"alice"}`), []byte(`not json ------`), 1)
	req = httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader(broken))
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed userId: %d", rec.Code)
	}
}
