package testsupport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-contact-cache/cache"
)

func TestLoadFixtureJSON(t *testing.T) {
	path := WriteFixture(t, "contacts.json", []byte(`{"name":"test","items":["a","b"]}`))

	var result struct {
		Name  string   `json:"name"`
		Items []string `json:"items"`
	}
	LoadFixtureJSON(t, path, &result)

	if result.Name != "test" {
		t.Errorf("expected name %q, got %q", "test", result.Name)
	}
	if len(result.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(result.Items))
	}
}

func TestLoadFixture(t *testing.T) {
	path := WriteFixture(t, "raw.txt", []byte("test fixture content"))

	if got := string(LoadFixture(t, path)); got != "test fixture content" {
		t.Errorf("unexpected content %q", got)
	}
}

func TestFixturePath(t *testing.T) {
	if got := FixturePath("contacts.json"); got != "testdata/contacts.json" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestFlakyStore(t *testing.T) {
	ctx := context.Background()
	s := NewFlakyStore()
	opts := cache.EntryOptions{AbsoluteExpiration: time.Minute}

	if err := s.Set(ctx, "b", []byte("2"), opts); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	s.Put("a", []byte("1"))

	data, found, err := s.Get(ctx, "b")
	if err != nil || !found || string(data) != "2" {
		t.Fatalf("Get() = %q, %v, %v", data, found, err)
	}
	if got, ok := s.Options("b"); !ok || got != opts {
		t.Errorf("expected recorded options %+v, got %+v", opts, got)
	}
	if keys := s.Keys(); len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Errorf("unexpected keys %v", keys)
	}

	boom := errors.New("boom")
	s.FailGets(boom)
	s.FailSets(boom)
	if _, _, err := s.Get(ctx, "b"); !errors.Is(err, boom) {
		t.Errorf("expected injected get error, got %v", err)
	}
	if err := s.Set(ctx, "c", nil, opts); !errors.Is(err, boom) {
		t.Errorf("expected injected set error, got %v", err)
	}

	s.Heal()
	if _, found, err := s.Get(ctx, "c"); err != nil || found {
		t.Errorf("failed write must not store data, got found=%v err=%v", found, err)
	}

	if s.Gets() != 3 || s.Sets() != 2 {
		t.Errorf("unexpected counters gets=%d sets=%d", s.Gets(), s.Sets())
	}

	_ = s.Delete(ctx, "a")
	if s.Deletes() != 1 {
		t.Errorf("expected one delete, got %d", s.Deletes())
	}

	s.ResetCounters()
	if s.Gets() != 0 || s.Sets() != 0 || s.Deletes() != 0 {
		t.Error("expected counters to be reset")
	}
}

func TestFlakyStore_OnGet(t *testing.T) {
	s := NewFlakyStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.OnGet(func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if _, _, err := s.Get(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected hook error, got %v", err)
	}
}
