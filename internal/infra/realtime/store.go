// Package realtime is the port to the hosted realtime document store.
package realtime

import (
	"context"
	"errors"

	"sneakhead/internal/domain/common"
)

var (
	ErrNotFound       = errors.New("realtime: document not found")
	ErrReadAfterWrite = errors.New("realtime: transaction reads must happen before writes")
	ErrInvalidKey     = errors.New("realtime: empty collection or document id")
)

// Doc is one stored document. Data holds the raw field values as the store returns them.
type Doc struct {
	ID   string
	Data map[string]any
}

// Cond is an equality filter on a top-level field.
type Cond struct {
	Field string
	Value any
}

// Eq builds an equality filter.
func Eq(field string, value any) Cond { return Cond{Field: field, Value: value} }

// Snapshot is the state of a query after a change. Docs are ordered by ID.
type Snapshot struct {
	Docs []Doc
	Err  error
}

// DocSnapshot is the state of a single document after a change. Doc is nil when missing.
type DocSnapshot struct {
	Doc *Doc
	Err error
}

// Store is the remote store used by the repository adapters.
type Store interface {
	// NewKey reserves a fresh document id in coll.
	NewKey(coll string) string

	Set(ctx context.Context, coll, id string, data map[string]any) error
	// Update writes only the given fields. A missing document is ErrNotFound.
	Update(ctx context.Context, coll, id string, fields map[string]any) error
	Remove(ctx context.Context, coll, id string) error

	Get(ctx context.Context, coll, id string) (Doc, error)
	Find(ctx context.Context, coll string, conds ...Cond) ([]Doc, error)

	// Watch calls fn with the current result and again after every change,
	// until the subscription is closed or ctx ends.
	Watch(ctx context.Context, coll string, fn func(Snapshot), conds ...Cond) common.Subscription
	WatchDoc(ctx context.Context, coll, id string, fn func(DocSnapshot)) common.Subscription

	// RunTx runs fn atomically. fn may be retried and must not have side effects outside tx.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the transactional view of the store. All reads must precede writes.
type Tx interface {
	Get(coll, id string) (Doc, error)
	Find(coll string, conds ...Cond) ([]Doc, error)
	Set(coll, id string, data map[string]any) error
	Update(coll, id string, fields map[string]any) error
	Remove(coll, id string) error
}
