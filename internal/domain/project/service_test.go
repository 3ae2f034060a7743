package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/ganot/timekeep/internal/docstore/mocks"
	"github.com/ganot/timekeep/internal/domain/project"
	"github.com/ganot/timekeep/internal/sqlite/sqlitetest"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProjectService_CreateGetList(t *testing.T) {
	ctx := context.Background()
	store := sqlitetest.NewStore(t, nil)
	svc := project.NewService(store, nil)

	b, err := svc.Create(ctx, "user1", project.CreateRequest{Name: "beta", HourlyRate: 50})
	require.NoError(t, err)
	require.NotEmpty(t, b.ID)
	_, err = svc.Create(ctx, "user1", project.CreateRequest{ID: "a", Name: "Alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, "user2", project.CreateRequest{Name: "Gamma"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, "user1", b.ID)
	require.NoError(t, err)
	require.Equal(t, "beta", got.Name)
	require.Equal(t, 50.0, got.HourlyRate)
	require.Nil(t, got.LastTrackedTime)

	list, err := svc.List(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "Alpha", list[0].Name)
	require.Equal(t, "beta", list[1].Name)
}

func TestProjectService_GetOtherUsersProject(t *testing.T) {
	ctx := context.Background()
	svc := project.NewService(sqlitetest.NewStore(t, nil), nil)

	p, err := svc.Create(ctx, "user1", project.CreateRequest{Name: "Mine"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "user2", p.ID)
	require.ErrorIs(t, err, project.ErrProjectNotFound)
	_, err = svc.Get(ctx, "user1", "missing")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestProjectService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := project.NewService(&mocks.Store{}, nil)

	_, err := svc.Create(ctx, "user1", project.CreateRequest{Name: ""})
	require.ErrorIs(t, err, project.ErrInvalidInput)
	_, err = svc.Create(ctx, "user1", project.CreateRequest{Name: "x", HourlyRate: -1})
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_CreateStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := &mocks.Store{}
	store.On("Set", ctx, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := project.NewService(store, nil).Create(ctx, "user1", project.CreateRequest{Name: "x"})
	require.ErrorContains(t, err, "disk full")
}

func TestTouchLastTracked_OnlyMovesForward(t *testing.T) {
	ctx := context.Background()
	store := sqlitetest.NewStore(t, nil)
	svc := project.NewService(store, nil)
	p, err := svc.Create(ctx, "user1", project.CreateRequest{Name: "P"})
	require.NoError(t, err)

	later := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	touch := func(at time.Time) {
		err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			_, err := project.TouchLastTracked(ctx, tx, "user1", p.ID, at)
			return err
		})
		require.NoError(t, err)
	}

	touch(later)
	touch(earlier)

	got, err := svc.Get(ctx, "user1", p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastTrackedTime)
	require.True(t, got.LastTrackedTime.Equal(later))
}

func TestProject_Earnings(t *testing.T) {
	p := &project.Project{HourlyRate: 60}
	require.InDelta(t, 65.0, p.Earnings(3900), 1e-9)
	require.Zero(t, (*project.Project)(nil).Earnings(100))
	require.Zero(t, p.Earnings(-5))
}
