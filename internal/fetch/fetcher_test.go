package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuhaojin/astock-screener/internal/cache"
	"github.com/yuhaojin/astock-screener/internal/provider"
	"github.com/yuhaojin/astock-screener/internal/ratelimit"
)

func newTestFetcher(t *testing.T, upstream provider.Provider, opts Options) *Fetcher {
	t.Helper()
	store, err := cache.New(t.TempDir())
	require.NoError(t, err)
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	f := New(store, ratelimit.NewWindow(1000, time.Minute), upstream, opts)
	f.sleep = func(time.Duration) {} // no real delays in tests
	return f
}

func quoteTable(price string) *provider.Table {
	return &provider.Table{
		Columns: []string{provider.FieldCode, provider.FieldPrice},
		Rows:    []provider.Row{{provider.FieldCode: "600519", provider.FieldPrice: price}},
	}
}

func TestFetcher_CachesAfterFirstFetch(t *testing.T) {
	fake := provider.NewFake()
	fake.Register(provider.DatasetQuote, quoteTable("1800"), "600519")
	f := newTestFetcher(t, fake, Options{})

	ctx := context.Background()
	first := f.Fetch(ctx, provider.DatasetQuote, "600519")
	second := f.Fetch(ctx, provider.DatasetQuote, "600519")

	assert.Equal(t, "1800", first.Rows[0][provider.FieldPrice])
	assert.Equal(t, "1800", second.Rows[0][provider.FieldPrice])
	assert.Equal(t, 1, fake.Calls(provider.DatasetQuote, "600519"), "second read must come from cache")
}

func TestFetcher_ExhaustedRetriesDegradeToEmpty(t *testing.T) {
	fake := provider.NewFake()
	fake.Fail(provider.DatasetDividends, errors.New("upstream timeout"), "000001")
	f := newTestFetcher(t, fake, Options{MaxAttempts: 3})

	table := f.Fetch(context.Background(), provider.DatasetDividends, "000001")

	require.NotNil(t, table, "per-entity fetches never return nil")
	assert.True(t, table.Empty())
	assert.Equal(t, 3, fake.Calls(provider.DatasetDividends, "000001"))
}

func TestFetcher_CorruptCacheEntryRefetches(t *testing.T) {
	fake := provider.NewFake()
	fake.Register(provider.DatasetQuote, quoteTable("42"), "000002")

	store, err := cache.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Put(Key(provider.DatasetQuote, "000002"), []byte("{broken json")))

	f := New(store, ratelimit.NewWindow(1000, time.Minute), fake, Options{MaxAttempts: 1})
	f.sleep = func(time.Duration) {}

	table := f.Fetch(context.Background(), provider.DatasetQuote, "000002")
	require.False(t, table.Empty())
	assert.Equal(t, "42", table.Rows[0][provider.FieldPrice])
	assert.Equal(t, 1, fake.Calls(provider.DatasetQuote, "000002"), "corrupt entry must trigger a refetch")
}

func TestFetcher_StockListFailureEscalates(t *testing.T) {
	fake := provider.NewFake()
	fake.Fail(provider.DatasetStockList, errors.New("connection reset"))
	f := newTestFetcher(t, fake, Options{MaxAttempts: 2})

	_, err := f.StockList(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUniverseUnavailable)
}

func TestFetcher_StockListSnapshotFallback(t *testing.T) {
	fake := provider.NewFake()
	fake.Fail(provider.DatasetStockList, errors.New("connection reset"))

	snapshot := &provider.Table{
		Columns: []string{provider.FieldCode, provider.FieldName},
		Rows: []provider.Row{
			{provider.FieldCode: "600519", provider.FieldName: "贵州茅台"},
			{provider.FieldCode: "000001", provider.FieldName: "平安银行"},
		},
	}
	data, err := snapshot.Encode()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "stocklist_snapshot.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f := newTestFetcher(t, fake, Options{MaxAttempts: 2, SnapshotPath: path})

	table, err := f.StockList(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestFetcher_StockListUsesCache(t *testing.T) {
	fake := provider.NewFake()
	fake.Register(provider.DatasetStockList, &provider.Table{
		Columns: []string{provider.FieldCode, provider.FieldName},
		Rows:    []provider.Row{{provider.FieldCode: "600519", provider.FieldName: "贵州茅台"}},
	})
	f := newTestFetcher(t, fake, Options{})

	ctx := context.Background()
	_, err := f.StockList(ctx)
	require.NoError(t, err)
	_, err = f.StockList(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls(provider.DatasetStockList))

	_, ok := f.LastModified(provider.DatasetStockList)
	assert.True(t, ok)
}

func TestFetcher_TTLOverride(t *testing.T) {
	f := newTestFetcher(t, provider.NewFake(), Options{
		TTLs: map[provider.Dataset]time.Duration{provider.DatasetQuote: 2 * time.Hour},
	})
	assert.Equal(t, 2*time.Hour, f.TTL(provider.DatasetQuote))
	assert.Equal(t, 12*time.Hour, f.TTL(provider.DatasetProfitStatement))
}
