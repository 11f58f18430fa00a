package repomanager

import (
	"context"
	"database/sql"

	"github.com/medpoint/authsvc/internal/dbx"
	"github.com/medpoint/authsvc/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
