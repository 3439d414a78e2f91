package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emeraldmc/appeals-api/internal/models"
	appErrors "github.com/emeraldmc/appeals-api/pkg/errors"
)

// memoryCacheRepo is an in-process CacheRepository used to exercise the
// caching paths without a redis instance.
type memoryCacheRepo struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{
		entries: make(map[string][]byte),
		ttls:    make(map[string]time.Duration),
	}
}

func (r *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := r.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.entries[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range r.entries {
		if strings.HasPrefix(key, prefix) {
			delete(r.entries, key)
		}
	}
	return nil
}

// countingStore tracks how often the backing store is consulted so cache
// hits can be asserted.
type countingStore struct {
	appealStoreStub
	statsCalls int
	listCalls  int
}

func (s *countingStore) Stats(ctx context.Context) (*models.AppealStats, error) {
	s.statsCalls++
	return s.appealStoreStub.Stats(ctx)
}

func (s *countingStore) List(ctx context.Context, filter models.AppealFilter) ([]models.Appeal, error) {
	s.listCalls++
	return s.appealStoreStub.List(ctx, filter)
}

func newCachedAppealService(store *countingStore) (*AppealService, *memoryCacheRepo) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, 5*time.Minute, zap.NewNop(), true)
	return NewAppealService(store, nil, cache, nil, nil, zap.NewNop(), 7, 30*time.Second), repo
}

func TestCacheServiceNilAndDisabledAreNoops(t *testing.T) {
	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, nilSvc.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, nilSvc.Invalidate(context.Background(), "k*"))

	disabled := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), false)
	assert.False(t, disabled.Enabled())
	hit, err = disabled.Get(context.Background(), "k", nil)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceMissThenHit(t *testing.T) {
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, zap.NewNop(), true)

	var out string
	hit, err := cache.Get(context.Background(), "greeting", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(context.Background(), "greeting", "hello", 0))

	hit, err = cache.Get(context.Background(), "greeting", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "hello", out)
}

func TestStatsServedFromCacheUntilWriteInvalidates(t *testing.T) {
	store := &countingStore{}
	store.stats = &models.AppealStats{Total: 4, Pending: 2, Approved: 1, Denied: 1}
	svc, _ := newCachedAppealService(store)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, store.statsCalls)

	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, store.statsCalls, "second read should come from cache")

	require.NoError(t, svc.Delete(context.Background(), "appeal-1"))

	_, err = svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, store.statsCalls, "delete should invalidate the cached stats")
}

func TestUnfilteredListCachedFilteredListIsNot(t *testing.T) {
	store := &countingStore{}
	store.listItems = []models.Appeal{{ID: "appeal-1"}}
	svc, _ := newCachedAppealService(store)

	_, err := svc.List(context.Background(), models.AppealFilter{})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.AppealFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.listCalls)

	_, err = svc.List(context.Background(), models.AppealFilter{Status: models.AppealStatusPending})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.AppealFilter{Status: models.AppealStatusPending})
	require.NoError(t, err)
	assert.Equal(t, 3, store.listCalls, "filtered listings always hit the store")
}

func TestListAndStatsCarryDistinctTTLs(t *testing.T) {
	store := &countingStore{}
	store.listItems = []models.Appeal{{ID: "appeal-1"}}
	store.stats = &models.AppealStats{Total: 1, Pending: 1}
	svc, repo := newCachedAppealService(store)

	_, err := svc.List(context.Background(), models.AppealFilter{})
	require.NoError(t, err)
	_, err = svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, repo.ttls["appeals:list:all"])
	// Stats defer to the cache-wide default TTL.
	assert.Equal(t, 5*time.Minute, repo.ttls["appeals:stats"])
}

func TestSubmitInvalidatesListCache(t *testing.T) {
	store := &countingStore{}
	store.listItems = []models.Appeal{{ID: "appeal-1"}}
	svc, repo := newCachedAppealService(store)

	_, err := svc.List(context.Background(), models.AppealFilter{})
	require.NoError(t, err)
	assert.Contains(t, repo.entries, "appeals:list:all")

	_, err = svc.Submit(context.Background(), validSubmission(), "", "ua")
	require.NoError(t, err)
	assert.NotContains(t, repo.entries, "appeals:list:all")
}
