// Package memstore is an in-process contacts source backed by xsync maps.
// It backs demos and tests; data is lost when the process exits.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-contact-cache/contacts"
	"github.com/goliatone/go-contact-cache/internal/guard"
)

var (
	_ contacts.Repository       = (*Store)(nil)
	_ contacts.BranchRepository = (*Store)(nil)
)

// Option configures a Store.
type Option func(*Store)

// WithDelay makes every operation wait d first, to simulate a remote store.
func WithDelay(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.delay = d
		}
	}
}

// Store keeps contacts and branches in memory. Values are copied in and out.
type Store struct {
	contacts *xsync.MapOf[uuid.UUID, contacts.Contact]
	branches *xsync.MapOf[uuid.UUID, contacts.Branch]
	delay    time.Duration
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		contacts: xsync.NewMapOf[uuid.UUID, contacts.Contact](),
		branches: xsync.NewMapOf[uuid.UUID, contacts.Branch](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed loads branches and contacts, replacing entries with the same id.
func (s *Store) Seed(branches []contacts.Branch, people []contacts.Contact) {
	for _, b := range branches {
		b.ContactIDs = nil
		s.branches.Store(b.ID, b)
	}
	for _, c := range people {
		s.contacts.Store(c.ID, c)
	}
}

func (s *Store) GetContact(ctx context.Context, id uuid.UUID) (*contacts.Contact, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	c, ok := s.contacts.Load(id)
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) InsertContact(ctx context.Context, contact *contacts.Contact) error {
	if err := guard.NotNil(contact, "contact"); err != nil {
		return err
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	if _, loaded := s.contacts.LoadOrStore(contact.ID, *contact); loaded {
		return fmt.Errorf("%w: %s", contacts.ErrDuplicate, contact.ID)
	}
	return nil
}

// ListContacts returns every contact ordered by last name, first name and id.
func (s *Store) ListContacts(ctx context.Context) ([]*contacts.Contact, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	out := make([]*contacts.Contact, 0, s.contacts.Size())
	s.contacts.Range(func(_ uuid.UUID, c contacts.Contact) bool {
		out = append(out, &c)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID.String() < b.ID.String()
	})
	return out, nil
}

func (s *Store) GetBranch(ctx context.Context, id uuid.UUID) (*contacts.Branch, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	b, ok := s.branches.Load(id)
	if !ok {
		return nil, nil
	}
	b.ContactIDs = s.contactIDs(id)
	return &b, nil
}

func (s *Store) InsertBranch(ctx context.Context, branch *contacts.Branch) error {
	if err := guard.NotNil(branch, "branch"); err != nil {
		return err
	}
	if err := s.wait(ctx); err != nil {
		return err
	}
	b := *branch
	b.ContactIDs = nil
	if _, loaded := s.branches.LoadOrStore(b.ID, b); loaded {
		return fmt.Errorf("%w: branch %s", contacts.ErrDuplicate, b.ID)
	}
	return nil
}

// ListBranches returns every branch ordered by name.
func (s *Store) ListBranches(ctx context.Context) ([]*contacts.Branch, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	out := make([]*contacts.Branch, 0, s.branches.Size())
	s.branches.Range(func(id uuid.UUID, b contacts.Branch) bool {
		b.ContactIDs = s.contactIDs(id)
		out = append(out, &b)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) contactIDs(branchID uuid.UUID) []uuid.UUID {
	var ids []uuid.UUID
	s.contacts.Range(func(id uuid.UUID, c contacts.Contact) bool {
		if c.BranchID == branchID {
			ids = append(ids, id)
		}
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func (s *Store) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
