package profile_test

import (
	"context"
	"testing"
	"time"

	"github.com/ganot/timekeep/internal/docstore"
	"github.com/ganot/timekeep/internal/domain/profile"
	"github.com/ganot/timekeep/internal/sqlite/sqlitetest"
	"github.com/stretchr/testify/require"
)

func TestWeekStart(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	cases := map[string]time.Time{
		"monday midnight": monday,
		"monday evening":  monday.Add(20 * time.Hour),
		"wednesday":       time.Date(2026, 3, 4, 13, 5, 0, 0, time.UTC),
		"sunday night":    time.Date(2026, 3, 8, 23, 59, 0, 0, time.UTC),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, monday, profile.WeekStart(in))
		})
	}
	require.Equal(t, monday.AddDate(0, 0, 7), profile.WeekStart(time.Date(2026, 3, 9, 0, 0, 1, 0, time.UTC)))
}

func TestAddTracked_SameWeekAccumulates(t *testing.T) {
	var p profile.Profile
	p.AddTracked(10, time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC))
	p.AddTracked(5, time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC))

	require.Equal(t, int64(15), p.TotalTrackedTime)
	require.Equal(t, int64(15), p.WeeklyTrackedTime)
}

func TestAddTracked_NewWeekResetsWeekly(t *testing.T) {
	priorMonday := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	p := profile.Profile{TotalTrackedTime: 300, WeeklyTrackedTime: 120, WeekStart: &priorMonday}

	stop := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	p.AddTracked(2, stop)

	require.Equal(t, int64(302), p.TotalTrackedTime)
	require.Equal(t, int64(2), p.WeeklyTrackedTime)
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *p.WeekStart)
}

func TestWeeklyAt(t *testing.T) {
	wed := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	var p profile.Profile
	require.Zero(t, p.WeeklyAt(wed))

	p.AddTracked(45, wed)
	require.Equal(t, int64(45), p.WeeklyAt(wed.Add(24*time.Hour)))
	require.Zero(t, p.WeeklyAt(wed.Add(7*24*time.Hour)))
	require.Equal(t, int64(45), p.TotalTrackedTime)
}

func TestAddTrackedTx_PersistsAndService(t *testing.T) {
	ctx := context.Background()
	store := sqlitetest.NewStore(t, nil)
	at := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

	for range 2 {
		err := store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			_, err := profile.AddTrackedTx(ctx, tx, "user1", 3, at)
			return err
		})
		require.NoError(t, err)
	}

	p, err := profile.NewService(store, nil).Get(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(6), p.TotalTrackedTime)
	require.Equal(t, int64(6), p.WeeklyTrackedTime)
	require.NotNil(t, p.WeekStart)
	require.True(t, p.WeekStart.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestService_GetMissingIsZero(t *testing.T) {
	p, err := profile.NewService(sqlitetest.NewStore(t, nil), nil).Get(context.Background(), "nobody")
	require.NoError(t, err)
	require.Equal(t, "nobody", p.UserID)
	require.Zero(t, p.TotalTrackedTime)
	require.Nil(t, p.WeekStart)
}
