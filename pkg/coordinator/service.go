package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/kittclouds/usergrid/pkg/records"
)

// RecordService is the remote side of the edit engine.
// Implementations: userapi.Client (HTTP) and store.SQLStore (local).
type RecordService interface {
	FetchAll(ctx context.Context) ([]records.Record, error)
	Update(ctx context.Context, r records.Record) (records.Record, error)
	UpdateBulk(ctx context.Context, drafts map[int]records.Record) (map[int]records.Record, error)
}

// Service operation names carried by TransportError.
const (
	OpFetchAll   = "fetchAll"
	OpUpdate     = "update"
	OpUpdateBulk = "updateBulk"
)

// TransportError wraps any failure reported by a RecordService.
// The coordinator does not look at what kind of failure it is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("coordinator: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func transportError(op string, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
