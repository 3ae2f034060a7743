package mocks

import (
	"context"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/ganot/timekeep/internal/domain/activity"
	"github.com/stretchr/testify/mock"
)

// Store is a mock for docstore.Store. Transactions run fn against the mock
// itself so expectations on Get, Set and Update apply inside them too.
type Store struct {
	mock.Mock
}

func (m *Store) Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	args := m.Called(ctx, ref)
	snap, _ := args.Get(0).(docstore.Snapshot)
	return snap, args.Error(1)
}

func (m *Store) Set(ctx context.Context, ref docstore.Ref, data docstore.Fields) error {
	args := m.Called(ctx, ref, data)
	return args.Error(0)
}

func (m *Store) Update(ctx context.Context, ref docstore.Ref, data docstore.Fields) error {
	args := m.Called(ctx, ref, data)
	return args.Error(0)
}

func (m *Store) Delete(ctx context.Context, ref docstore.Ref) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *Store) Find(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Snapshot, error) {
	args := m.Called(ctx, collection, filters)
	if snaps, ok := args.Get(0).([]docstore.Snapshot); ok {
		return snaps, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) Watch(ctx context.Context, ref docstore.Ref) (*docstore.Subscription, error) {
	args := m.Called(ctx, ref)
	if sub, ok := args.Get(0).(*docstore.Subscription); ok {
		return sub, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, userID string, entry *activity.ActivityEntry) error {
	args := m.Called(ctx, userID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, userID string, opts activity.ListActivityOptions) ([]activity.ActivityEntry, error) {
	args := m.Called(ctx, userID, opts)
	if list, ok := args.Get(0).([]activity.ActivityEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
