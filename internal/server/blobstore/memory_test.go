package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/filegilla/filegateway/internal/common"
)

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	if err := m.CreateBucket(ctx, "user-alice"); err != nil {
		t.Fatalf("create bucket: %v", err)
	}
	if err := m.Put(ctx, "user-alice", "report.pdf", "application/pdf", strings.NewReader("pdf")); err != nil {
		t.Fatalf("put: %v", err)
	}

	deleted, err := m.Delete(ctx, "user-alice", "report.pdf")
	if err != nil || !deleted {
		t.Fatalf("first delete: deleted=%v err=%v", deleted, err)
	}
	deleted, err = m.Delete(ctx, "user-alice", "report.pdf")
	if err != nil || deleted {
		t.Fatalf("second delete must be (false, nil), got deleted=%v err=%v", deleted, err)
	}
}

func TestMemoryStore_ContentHashChangesOnOverwrite(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.CreateBucket(ctx, "user-alice")
	_ = m.Put(ctx, "user-alice", "a.txt", "text/plain", strings.NewReader("one"))

	first, err := m.Head(ctx, "user-alice", "a.txt")
	if err != nil {
		t.Fatalf("head: %v", err)
	}

	_ = m.Put(ctx, "user-alice", "a.txt", "text/plain", strings.NewReader("two"))
	second, err := m.Head(ctx, "user-alice", "a.txt")
	if err != nil {
		t.Fatalf("head: %v", err)
	}

	if first.ContentHash == second.ContentHash {
		t.Fatalf("hash must change when content changes")
	}
}

func TestMemoryStore_CopyIsDeep(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	_ = m.CreateBucket(ctx, "user-alice")
	_ = m.CreateBucket(ctx, "shares")
	_ = m.Put(ctx, "user-alice", "summary.pdf", "application/pdf", strings.NewReader("v1"))

	if err := m.Copy(ctx, "user-alice", "summary.pdf", "shares", "q3-summary.pdf"); err != nil {
		t.Fatalf("copy: %v", err)
	}

	// Overwriting the source must not affect the copy.
	_ = m.Put(ctx, "user-alice", "summary.pdf", "application/pdf", strings.NewReader("v2"))

	rc, info, err := m.Get(ctx, "shares", "q3-summary.pdf")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "v1" {
		t.Fatalf("copy shares state with source: %q", data)
	}
	if info.ContentType != "application/pdf" {
		t.Fatalf("content type not carried over: %q", info.ContentType)
	}
}

func TestMemoryStore_SentinelErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	if _, err := m.Head(ctx, "user-ghost", "x"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound for missing bucket, got %v", err)
	}

	_ = m.CreateBucket(ctx, "user-alice")
	if err := m.CreateBucket(ctx, "user-alice"); !errors.Is(err, common.ErrorConflict) {
		t.Fatalf("want ErrorConflict for duplicate bucket, got %v", err)
	}
}
