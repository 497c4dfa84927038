package testsupport

import (
	"context"
	"sort"
	"sync"

	"github.com/goliatone/go-contact-cache/cache"
)

var _ cache.Store = (*FlakyStore)(nil)

// StoreHook runs before a FlakyStore operation. A non-nil error is returned to
// the caller instead of touching the data.
type StoreHook func(ctx context.Context, key string) error

// FlakyStore is an in-memory cache.Store that counts calls and fails on demand.
// It does not enforce expiration; the options of every write are recorded.
type FlakyStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	options map[string]cache.EntryOptions

	getErr error
	setErr error
	onGet  StoreHook

	gets    int
	sets    int
	deletes int
}

// NewFlakyStore returns an empty, healthy store.
func NewFlakyStore() *FlakyStore {
	return &FlakyStore{
		data:    make(map[string][]byte),
		options: make(map[string]cache.EntryOptions),
	}
}

// FailGets makes every Get return err. A nil err heals reads.
func (s *FlakyStore) FailGets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

// FailSets makes every Set return err. A nil err heals writes.
func (s *FlakyStore) FailSets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setErr = err
}

// Heal clears injected failures and hooks.
func (s *FlakyStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = nil
	s.setErr = nil
	s.onGet = nil
}

// OnGet installs a hook run on every Get, outside the store lock so it may block.
func (s *FlakyStore) OnGet(hook StoreHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGet = hook
}

// Put seeds raw bytes without counting a Set.
func (s *FlakyStore) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = data
}

func (s *FlakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	s.gets++
	hook, err := s.onGet, s.getErr
	s.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, key); err != nil {
			return nil, false, err
		}
	}
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.data[key]
	return data, ok, nil
}

func (s *FlakyStore) Set(_ context.Context, key string, value []byte, opts cache.EntryOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	s.options[key] = opts
	return nil
}

func (s *FlakyStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	delete(s.data, key)
	delete(s.options, key)
	return nil
}

// Gets returns the number of Get calls, failed ones included.
func (s *FlakyStore) Gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

// Sets returns the number of Set calls, failed ones included.
func (s *FlakyStore) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// Deletes returns the number of Delete calls.
func (s *FlakyStore) Deletes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deletes
}

// Options returns the options of the last successful write to key.
func (s *FlakyStore) Options(key string) (cache.EntryOptions, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	opts, ok := s.options[key]
	return opts, ok
}

// Keys returns the stored keys in sorted order.
func (s *FlakyStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResetCounters zeroes the call counters.
func (s *FlakyStore) ResetCounters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets, s.sets, s.deletes = 0, 0, 0
}
