package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Fake is a deterministic in-memory provider for tests and offline runs.
// Tables are registered per dataset (and optionally per leading arg); a
// registered error takes precedence over data.
type Fake struct {
	mu     sync.Mutex
	tables map[string]*Table
	errs   map[string]error
	calls  map[string]int
}

// NewFake returns an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		tables: make(map[string]*Table),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func fakeKey(ds Dataset, args ...string) string {
	if len(args) == 0 {
		return string(ds)
	}
	return string(ds) + ":" + strings.Join(args, ":")
}

func (f *Fake) Name() string { return "fake" }

// Register installs a table for a dataset/args combination.
func (f *Fake) Register(ds Dataset, table *Table, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[fakeKey(ds, args...)] = table
}

// Fail makes every fetch of the dataset/args combination return err.
func (f *Fake) Fail(ds Dataset, err error, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[fakeKey(ds, args...)] = err
}

// Calls reports how many times the dataset/args combination was fetched.
func (f *Fake) Calls(ds Dataset, args ...string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[fakeKey(ds, args...)]
}

func (f *Fake) Fetch(_ context.Context, ds Dataset, args ...string) (*Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := fakeKey(ds, args...)
	f.calls[key]++
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	if t, ok := f.tables[key]; ok {
		return t, nil
	}
	// Fall back to a dataset-wide registration.
	if err, ok := f.errs[string(ds)]; ok {
		return nil, err
	}
	if t, ok := f.tables[string(ds)]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("fake: no data registered for %s", key)
}
