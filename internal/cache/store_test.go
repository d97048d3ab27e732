package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGet(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put("profit_600519", []byte(`{"columns":[],"rows":[]}`)))

	data, ok := store.Get("profit_600519", time.Hour)
	require.True(t, ok)
	assert.Equal(t, `{"columns":[],"rows":[]}`, string(data))
}

func TestStore_MissingKey(t *testing.T) {
	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, ok := store.Get("never_written", time.Hour)
	assert.False(t, ok)

	_, ok = store.LastModified("never_written")
	assert.False(t, ok)
}

func TestStore_ExpiredEntryIsAbsent(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put("stock_list", []byte("payload")))
	backdate(t, dir, 13*time.Hour)

	// Fresh within a 24h TTL, absent within a 12h one. Expired and missing
	// are indistinguishable on purpose.
	_, ok := store.Get("stock_list", 24*time.Hour)
	assert.True(t, ok)
	_, ok = store.Get("stock_list", 12*time.Hour)
	assert.False(t, ok)
}

func TestStore_CorruptPayloadStillServed(t *testing.T) {
	// The store is payload-agnostic: undecodable bytes come back as-is and
	// the typed layer above treats them as a miss. Get itself must not fail.
	store, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Put("quote_000001", []byte("\x00not json at all")))
	data, ok := store.Get("quote_000001", time.Hour)
	require.True(t, ok)
	assert.Equal(t, []byte("\x00not json at all"), data)
}

func TestStore_PutRefreshesModTime(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, store.Put("dividend_600519", []byte("old")))
	backdate(t, dir, 48*time.Hour)
	_, ok := store.Get("dividend_600519", time.Hour)
	require.False(t, ok)

	require.NoError(t, store.Put("dividend_600519", []byte("new")))
	data, ok := store.Get("dividend_600519", time.Hour)
	require.True(t, ok)
	assert.Equal(t, "new", string(data))

	mod, ok := store.LastModified("dividend_600519")
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), mod, time.Minute)
}

// backdate shifts every blob's mtime into the past to simulate aging.
func backdate(t *testing.T, dir string, age time.Duration) {
	t.Helper()
	blobs, err := filepath.Glob(filepath.Join(dir, "*.blob"))
	require.NoError(t, err)
	require.NotEmpty(t, blobs)
	past := time.Now().Add(-age)
	for _, blob := range blobs {
		require.NoError(t, os.Chtimes(blob, past, past))
	}
}
