package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lumostories/telemetry-api/internal/models"
)

func setupClaimsStore(t *testing.T) ClaimsStore {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	return NewClaimsStore(redis.NewClient(&redis.Options{Addr: mini.Addr()}))
}

func TestClaimsStoreRoundTrip(t *testing.T) {
	store := setupClaimsStore(t)
	ctx := context.Background()

	expires := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	claims := models.UserClaims{
		Role: "user",
		Sanction: &models.SanctionState{
			Kind:      models.SanctionMute,
			Reason:    models.ReasonSpam,
			Duration:  models.Duration24h,
			ExpiresAt: &expires,
			AppliedBy: "admin-1",
			AppliedAt: expires.Add(-24 * time.Hour),
		},
	}

	require.NoError(t, store.Set(ctx, "uid-1", claims))

	loaded, err := store.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, "user", loaded.Role)
	require.NotNil(t, loaded.Sanction)
	require.Equal(t, models.SanctionMute, loaded.Sanction.Kind)
	require.True(t, expires.Equal(*loaded.Sanction.ExpiresAt))
}

func TestClaimsStoreUnknownUser(t *testing.T) {
	store := setupClaimsStore(t)

	_, err := store.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestClaimsStoreClearSanction(t *testing.T) {
	store := setupClaimsStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "uid-1", models.UserClaims{
		Role:     "user",
		Sanction: &models.SanctionState{Kind: models.SanctionBan, Reason: models.ReasonAbuse, Duration: models.DurationPermanent},
	}))
	require.NoError(t, store.Set(ctx, "uid-1", models.UserClaims{Role: "user"}))

	loaded, err := store.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.Nil(t, loaded.Sanction)
}

func TestClaimsStoreRejectsEmptyUID(t *testing.T) {
	store := setupClaimsStore(t)

	_, err := store.Get(context.Background(), "  ")
	require.Error(t, err)
	require.Error(t, store.Set(context.Background(), "", models.UserClaims{}))
}
