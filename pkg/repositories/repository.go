package repositories

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/database"
)

// NotFound returns a 404-flavored error with a descriptive message.
func NotFound(format string, args ...any) error {
	return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err is a NotFound error produced by this package.
func IsNotFound(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound
}

// Repository provides the DB handle and logger shared by every
// table-specific repository.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new base repository.
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

// DB returns the database handle.
func (r *Repository) DB() database.DB {
	return r.db
}
