package bunstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-contact-cache/contacts"
	"github.com/goliatone/go-contact-cache/internal/guard"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := Open(Config{
		Driver: DriverSQLite,
		DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	store, err := New(db)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return store
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"postgres", Config{Driver: DriverPostgres, DSN: "postgres://localhost/crm?sslmode=disable"}, false},
		{"unknown driver", Config{Driver: "oracle", DSN: "x"}, true},
		{"missing dsn", Config{Driver: DriverSQLite}, true},
		{"negative pool", Config{Driver: DriverSQLite, DSN: "x", MaxOpenConns: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpen_InvalidConfig(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle", DSN: "x"}); !errors.Is(err, guard.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestNew_NilDB(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, guard.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate() failed: %v", err)
	}
}

func TestStore_Contacts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	branch := &contacts.Branch{ID: uuid.New(), Name: "Leeds"}
	if err := store.InsertBranch(ctx, branch); err != nil {
		t.Fatalf("InsertBranch() failed: %v", err)
	}

	people := []*contacts.Contact{
		{ID: uuid.New(), Title: "Ms", FirstName: "Grace", LastName: "Hopper", BranchID: branch.ID},
		{ID: uuid.New(), Title: "Dr", FirstName: "Ada", LastName: "Lovelace", BranchID: branch.ID},
		{ID: uuid.New(), Title: "Mrs", FirstName: "Ada", LastName: "Byron", BranchID: uuid.New()},
	}
	for _, c := range people {
		if err := store.InsertContact(ctx, c); err != nil {
			t.Fatalf("InsertContact(%s) failed: %v", c.LastName, err)
		}
	}

	got, err := store.GetContact(ctx, people[1].ID)
	if err != nil || got == nil || *got != *people[1] {
		t.Fatalf("GetContact() = %+v, %v", got, err)
	}

	missing, err := store.GetContact(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("expected (nil, nil) for a missing contact, got %+v, %v", missing, err)
	}

	if err := store.InsertContact(ctx, people[0]); !errors.Is(err, contacts.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
	if err := store.InsertBranch(ctx, branch); !errors.Is(err, contacts.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for the branch, got %v", err)
	}

	list, err := store.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts() failed: %v", err)
	}
	want := []string{"Byron", "Hopper", "Lovelace"}
	if len(list) != len(want) {
		t.Fatalf("expected %d contacts, got %d", len(want), len(list))
	}
	for i, name := range want {
		if list[i].LastName != name {
			t.Errorf("position %d: expected %s, got %s", i, name, list[i].LastName)
		}
	}

	b, err := store.GetBranch(ctx, branch.ID)
	if err != nil || b == nil {
		t.Fatalf("GetBranch() = %+v, %v", b, err)
	}
	if b.Name != "Leeds" || len(b.ContactIDs) != 2 {
		t.Errorf("unexpected branch %+v", b)
	}

	branches, err := store.ListBranches(ctx)
	if err != nil || len(branches) != 1 {
		t.Fatalf("ListBranches() = %+v, %v", branches, err)
	}

	none, err := store.GetBranch(ctx, uuid.New())
	if err != nil || none != nil {
		t.Errorf("expected (nil, nil) for a missing branch, got %+v, %v", none, err)
	}
}

func TestStore_ErrorsWrapErrStore(t *testing.T) {
	store := newTestStore(t)
	store.Close()

	if _, err := store.ListContacts(context.Background()); !errors.Is(err, contacts.ErrStore) {
		t.Errorf("expected ErrStore after close, got %v", err)
	}
}
