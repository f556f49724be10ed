package repomanager

import (
	"context"
	"database/sql"

	"github.com/filegilla/filegateway/internal/dbx"
	"github.com/filegilla/filegateway/internal/server/repositories/adhoc"
	"github.com/filegilla/filegateway/internal/server/repositories/credentials"
	"github.com/filegilla/filegateway/internal/server/repositories/shares"
	"github.com/filegilla/filegateway/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Shares(db dbx.DBTX) shares.Repository
	AdHoc(db dbx.DBTX) adhoc.Repository
}
