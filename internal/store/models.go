// Package store provides SQL-backed persistence for the users backend.
// It is the reference server side of the edit engine: the HTTP backend
// serves it, and it can also be handed to the coordinator directly.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kittclouds/usergrid/pkg/records"
)

// UserVersion is one row of a user's history.
// Uses the temporal table pattern: every update closes the current row and
// inserts the next version.
type UserVersion struct {
	records.Record
	Version   int   `json:"version"`
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`

	ValidFrom    int64  `json:"validFrom"`
	ValidTo      *int64 `json:"validTo,omitempty"`
	IsCurrent    bool   `json:"isCurrent"`
	ChangeReason string `json:"changeReason,omitempty"`
}

// Change reasons recorded on new versions.
const (
	ReasonCreate = "create"
	ReasonUpdate = "update"
	ReasonBulk   = "bulk"
	ReasonImport = "import"
)

// ErrBulkUnsupported is returned by UpdateBulk while the bulk endpoint is
// switched off, which is the default.
var ErrBulkUnsupported = errors.New("store: bulk update is not implemented")

// ErrNotFound is returned when a user id has no current row.
type ErrNotFound struct {
	ID int
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("store: user %d not found", e.ID)
}

// Storer defines the interface for user persistence.
// SQLStore is the sole implementation.
type Storer interface {
	// RecordService side
	FetchAll(ctx context.Context) ([]records.Record, error)
	Update(ctx context.Context, r records.Record) (records.Record, error)
	UpdateBulk(ctx context.Context, users map[int]records.Record) (map[int]records.Record, error)

	// Users
	CreateUser(ctx context.Context, r records.Record) error
	GetUser(ctx context.Context, id int) (*UserVersion, error)
	ListUserVersions(ctx context.Context, id int) ([]*UserVersion, error)
	CountUsers(ctx context.Context) (int, error)
	Seed(ctx context.Context, users []records.Record) (int, error)

	// Bulk endpoint switch
	SetBulkEnabled(enabled bool)
	BulkEnabled() bool

	// Export/Import
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, data []byte) error

	// Lifecycle
	Close() error
}
