package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/serviceportal/internal/adapters/cache"
	"github.com/zatekoja/serviceportal/internal/adapters/database"
	"github.com/zatekoja/serviceportal/internal/application/services"
	"github.com/zatekoja/serviceportal/internal/infrastructure/migrations"
	"github.com/zatekoja/serviceportal/internal/testutil"
)

func TestCacheWarmingService_WarmCache(t *testing.T) {
	ctx := context.Background()
	client := testutil.NewSQLiteClient(t)
	base := database.NewServiceAdapter(client)
	require.NoError(t, services.NewBootstrapService(migrations.New(client), base).Run(ctx))

	store := cache.NewMemoryAdapter()
	warmer := services.NewCacheWarmingService(database.NewCachedServiceAdapter(base, store))

	n, err := warmer.WarmCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(services.DefaultCatalog), n)

	for _, key := range []string{"services:list", "service:id:1", "service:name:Plumbing", "service:name:Fire Fighter"} {
		ok, err := store.Exists(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok, "expected %s to be cached", key)
	}
}

func TestCacheWarmingService_EmptyCatalog(t *testing.T) {
	client := testutil.NewSQLiteClient(t)
	store := cache.NewMemoryAdapter()
	warmer := services.NewCacheWarmingService(database.NewCachedServiceAdapter(database.NewServiceAdapter(client), store))

	n, err := warmer.WarmCache(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
