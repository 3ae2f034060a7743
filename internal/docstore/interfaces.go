package docstore

import "context"

// Reader reads single documents.
type Reader interface {
	// Get returns ErrNotFound together with a non-existing snapshot when the
	// document is missing.
	Get(ctx context.Context, ref Ref) (Snapshot, error)
}

// Finder queries a collection.
type Finder interface {
	Find(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error)
}

// Tx is the view of the store inside RunTransaction. Reads and writes made
// through it commit or roll back together.
type Tx interface {
	Reader
	Finder
	Set(ctx context.Context, ref Ref, data Fields) error
	Update(ctx context.Context, ref Ref, data Fields) error
}

// Store is a document store with live subscriptions.
type Store interface {
	Reader
	// Set creates or overwrites a document.
	Set(ctx context.Context, ref Ref, data Fields) error
	// Update merges fields into an existing document. Returns ErrNotFound if
	// the document is missing.
	Update(ctx context.Context, ref Ref, data Fields) error
	Delete(ctx context.Context, ref Ref) error
	Finder
	// Watch delivers the current snapshot immediately and again on every change.
	Watch(ctx context.Context, ref Ref) (*Subscription, error)
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
