package records

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record id does not exist in the store.
var ErrNotFound = errors.New("focus record not found")

// ErrDuplicateID is returned when inserting a record whose id already
// exists in the store.
var ErrDuplicateID = errors.New("focus record id already exists")

// Repository is the persisted FocusRecord store: appended-to by the
// session completion handler, read by the statistics and intelligence
// engines, amended once with a self-report, and deletable by the user.
type Repository interface {
	Add(ctx context.Context, record FocusRecord) error
	Get(ctx context.Context, id string) (FocusRecord, error)
	List(ctx context.Context) ([]FocusRecord, error)
	AttachSelfReport(ctx context.Context, id string, report SelfReport) error
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) error
}
