// Package fetch layers cache-first retrieval, bounded retry and circuit
// breaking over a swappable upstream provider. One Fetcher instance is
// shared by every pipeline worker; it holds no mutable state beyond the
// cache store and the rate limiter.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/yuhaojin/astock-screener/internal/cache"
	"github.com/yuhaojin/astock-screener/internal/metrics"
	"github.com/yuhaojin/astock-screener/internal/provider"
	"github.com/yuhaojin/astock-screener/internal/ratelimit"
)

// ErrUniverseUnavailable signals that the foundational stock-list dataset
// could not be obtained from cache, upstream or the static snapshot. A run
// must fail on this rather than screen an empty universe to zero.
var ErrUniverseUnavailable = errors.New("stock universe unavailable")

// Dataset TTLs. Quotes go stale fastest; statements change once a quarter.
var defaultTTLs = map[provider.Dataset]time.Duration{
	provider.DatasetStockList:        24 * time.Hour,
	provider.DatasetQuote:            6 * time.Hour,
	provider.DatasetKline:            4 * time.Hour,
	provider.DatasetProfitStatement:  12 * time.Hour,
	provider.DatasetBalanceSheet:     12 * time.Hour,
	provider.DatasetCashflow:         12 * time.Hour,
	provider.DatasetDividends:        24 * time.Hour,
	provider.DatasetShareholders:     24 * time.Hour,
	provider.DatasetControllers:      24 * time.Hour,
	provider.DatasetPledges:          24 * time.Hour,
	provider.DatasetBuybacks:         12 * time.Hour,
	provider.DatasetIssuance:         24 * time.Hour,
	provider.DatasetConvertibleBonds: 24 * time.Hour,
}

// Options configures retry policy, TTL overrides and the stock-list
// snapshot fallback.
type Options struct {
	MaxAttempts  int
	Delay        time.Duration
	TTLs         map[provider.Dataset]time.Duration
	SnapshotPath string
}

// Fetcher resolves dataset fetches cache-first, then upstream under the
// shared rate limiter, with bounded fixed-delay retries. Reentrant and safe
// for concurrent use.
type Fetcher struct {
	store    *cache.Store
	limiter  *ratelimit.Window
	upstream provider.Provider
	breaker  *gobreaker.CircuitBreaker

	attempts     int
	delay        time.Duration
	ttls         map[provider.Dataset]time.Duration
	snapshotPath string

	sleep func(time.Duration)
}

// New builds a Fetcher around the given store, limiter and upstream.
func New(store *cache.Store, limiter *ratelimit.Window, upstream provider.Provider, opts Options) *Fetcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	ttls := make(map[provider.Dataset]time.Duration, len(defaultTTLs))
	for ds, ttl := range defaultTTLs {
		ttls[ds] = ttl
	}
	for ds, ttl := range opts.TTLs {
		ttls[ds] = ttl
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    upstream.Name(),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).Stringer("from", from).Stringer("to", to).Msg("upstream breaker state change")
		},
	})

	return &Fetcher{
		store:        store,
		limiter:      limiter,
		upstream:     upstream,
		breaker:      breaker,
		attempts:     opts.MaxAttempts,
		delay:        opts.Delay,
		ttls:         ttls,
		snapshotPath: opts.SnapshotPath,
		sleep:        time.Sleep,
	}
}

// Key derives the deterministic cache key for a dataset and its arguments.
func Key(ds provider.Dataset, args ...string) string {
	if len(args) == 0 {
		return string(ds)
	}
	return string(ds) + "_" + strings.Join(args, "_")
}

// TTL returns the freshness bound for a dataset.
func (f *Fetcher) TTL(ds provider.Dataset) time.Duration {
	if ttl, ok := f.ttls[ds]; ok {
		return ttl
	}
	return 24 * time.Hour
}

// Fetch returns the dataset, consulting the cache first. On upstream
// exhaustion it degrades to an empty table and never returns an error;
// data unavailability for per-entity datasets must not abort a run.
func (f *Fetcher) Fetch(ctx context.Context, ds provider.Dataset, args ...string) *provider.Table {
	key := Key(ds, args...)
	if table, ok := f.cached(ds, key); ok {
		return table
	}

	table, err := f.fetchUpstream(ctx, ds, args...)
	if err != nil {
		metrics.RetriesExhausted.WithLabelValues(string(ds)).Inc()
		log.Warn().Err(err).Str("dataset", string(ds)).Strs("args", args).Msg("fetch degraded to empty payload")
		return &provider.Table{}
	}
	f.cachePut(key, table)
	return table
}

// StockList returns the screening universe. Unlike every other dataset this
// escalates on exhaustion, after trying the packaged static snapshot.
func (f *Fetcher) StockList(ctx context.Context) (*provider.Table, error) {
	key := Key(provider.DatasetStockList)
	if table, ok := f.cached(provider.DatasetStockList, key); ok {
		return table, nil
	}

	table, err := f.fetchUpstream(ctx, provider.DatasetStockList)
	if err == nil && !table.Empty() {
		f.cachePut(key, table)
		return table, nil
	}
	log.Error().Err(err).Msg("stock list fetch exhausted, trying snapshot fallback")

	if snap, snapErr := f.snapshot(); snapErr == nil && !snap.Empty() {
		log.Warn().Int("count", snap.Len()).Msg("using static stock list snapshot")
		return snap, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUniverseUnavailable, err)
}

// LastModified reports the cache write time for a dataset, if any.
func (f *Fetcher) LastModified(ds provider.Dataset, args ...string) (time.Time, bool) {
	return f.store.LastModified(Key(ds, args...))
}

func (f *Fetcher) cached(ds provider.Dataset, key string) (*provider.Table, bool) {
	data, ok := f.store.Get(key, f.TTL(ds))
	if !ok {
		metrics.CacheMisses.WithLabelValues(string(ds)).Inc()
		return nil, false
	}
	table, err := provider.DecodeTable(data)
	if err != nil {
		// Corrupt entry: a miss, never an error.
		metrics.CacheMisses.WithLabelValues(string(ds)).Inc()
		log.Warn().Err(err).Str("key", key).Msg("corrupt cache entry, refetching")
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(string(ds)).Inc()
	return table, true
}

func (f *Fetcher) cachePut(key string, table *provider.Table) {
	data, err := table.Encode()
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := f.store.Put(key, data); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// fetchUpstream acquires the shared rate limiter and calls the provider
// through the circuit breaker, retrying with a fixed delay.
func (f *Fetcher) fetchUpstream(ctx context.Context, ds provider.Dataset, args ...string) (*provider.Table, error) {
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f.limiter.Acquire()
		metrics.UpstreamCalls.WithLabelValues(string(ds)).Inc()

		result, err := f.breaker.Execute(func() (interface{}, error) {
			return f.upstream.Fetch(ctx, ds, args...)
		})
		if err == nil {
			return result.(*provider.Table), nil
		}
		lastErr = err
		metrics.UpstreamErrors.WithLabelValues(string(ds)).Inc()
		log.Warn().Err(err).Str("dataset", string(ds)).Int("attempt", attempt).Int("max", f.attempts).Msg("upstream fetch failed")
		if attempt < f.attempts {
			f.sleep(f.delay)
		}
	}
	return nil, fmt.Errorf("%s failed after %d attempts: %w", ds, f.attempts, lastErr)
}

func (f *Fetcher) snapshot() (*provider.Table, error) {
	if f.snapshotPath == "" {
		return nil, errors.New("no snapshot configured")
	}
	data, err := os.ReadFile(f.snapshotPath)
	if err != nil {
		return nil, err
	}
	return provider.DecodeTable(data)
}
