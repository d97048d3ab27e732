// Package cache implements the persistent TTL-bounded payload store.
//
// Layout is a flat directory of opaque blobs: filename = md5 of the logical
// key, file modification time doubles as the freshness clock. There is no
// separate metadata file. An expired entry is indistinguishable from a
// missing one -- both send the caller down the same refetch path.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store is a flat-file keyed blob store. Safe for concurrent use.
type Store struct {
	mu  sync.Mutex
	dir string
}

// New creates the backing directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".blob")
}

// Get returns the stored payload for key if an entry exists and its age is
// within maxAge. Missing, expired and unreadable entries all report absent.
func (s *Store) Get(key string, maxAge time.Duration) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if time.Since(info.ModTime()) > maxAge {
		return nil, false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}
	return data, true
}

// Put writes the payload for key, refreshing its modification time.
func (s *Store) Put(key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LastModified reports when the entry for key was last written, ignoring TTL.
func (s *Store) LastModified(key string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path(key))
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}
