// Package bunstore is the SQL contacts source. Records are read and written
// through go-repository-bun on top of bun, against SQLite or PostgreSQL.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-contact-cache/contacts"
	"github.com/goliatone/go-contact-cache/internal/guard"
)

var (
	_ contacts.Repository       = (*Store)(nil)
	_ contacts.BranchRepository = (*Store)(nil)
)

type contactRow struct {
	bun.BaseModel `bun:"table:contacts,alias:c"`

	ID        string `bun:"id,pk"`
	Title     string `bun:"title,notnull"`
	FirstName string `bun:"first_name,notnull"`
	LastName  string `bun:"last_name,notnull"`
	BranchID  string `bun:"branch_id,notnull"`
}

type branchRow struct {
	bun.BaseModel `bun:"table:branches,alias:b"`

	ID   string `bun:"id,pk"`
	Name string `bun:"name,notnull"`
}

// Store implements the contact and branch repositories over a bun database.
type Store struct {
	db       *bun.DB
	contacts repository.Repository[*contactRow]
	branches repository.Repository[*branchRow]
}

// New returns a Store using db. Call Migrate before first use.
func New(db *bun.DB) (*Store, error) {
	if err := guard.NotNil(db, "db"); err != nil {
		return nil, err
	}

	return &Store{
		db: db,
		contacts: repository.NewRepository[*contactRow](db, repository.ModelHandlers[*contactRow]{
			NewRecord: func() *contactRow { return &contactRow{} },
			GetID:     func(r *contactRow) uuid.UUID { return parseID(r.ID) },
			SetID:     func(r *contactRow, id uuid.UUID) { r.ID = id.String() },
			GetIdentifier: func() string {
				return "id"
			},
		}),
		branches: repository.NewRepository[*branchRow](db, repository.ModelHandlers[*branchRow]{
			NewRecord: func() *branchRow { return &branchRow{} },
			GetID:     func(r *branchRow) uuid.UUID { return parseID(r.ID) },
			SetID:     func(r *branchRow, id uuid.UUID) { r.ID = id.String() },
			GetIdentifier: func() string {
				return "name"
			},
		}),
	}, nil
}

// Migrate creates the tables and indexes when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{(*branchRow)(nil), (*contactRow)(nil)}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return storeError("create table", err)
		}
	}

	_, err := s.db.NewCreateIndex().
		Model((*contactRow)(nil)).
		Index("contacts_branch_id_idx").
		Column("branch_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return storeError("create index", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetContact(ctx context.Context, id uuid.UUID) (*contacts.Contact, error) {
	row, err := s.contacts.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, storeError("get contact "+id.String(), err)
	}
	return row.toContact(), nil
}

func (s *Store) InsertContact(ctx context.Context, contact *contacts.Contact) error {
	if err := guard.NotNil(contact, "contact"); err != nil {
		return err
	}

	existing, err := s.GetContact(ctx, contact.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", contacts.ErrDuplicate, contact.ID)
	}

	if _, err := s.contacts.Create(ctx, newContactRow(contact)); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", contacts.ErrDuplicate, contact.ID)
		}
		return storeError("insert contact "+contact.ID.String(), err)
	}
	return nil
}

// ListContacts returns every contact ordered by last name, first name and id.
func (s *Store) ListContacts(ctx context.Context) ([]*contacts.Contact, error) {
	rows, _, err := s.contacts.List(ctx, orderContacts)
	if err != nil {
		return nil, storeError("list contacts", err)
	}

	out := make([]*contacts.Contact, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toContact())
	}
	return out, nil
}

func (s *Store) GetBranch(ctx context.Context, id uuid.UUID) (*contacts.Branch, error) {
	row, err := s.branches.GetByID(ctx, id.String())
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, storeError("get branch "+id.String(), err)
	}
	return s.withContacts(ctx, row)
}

func (s *Store) InsertBranch(ctx context.Context, branch *contacts.Branch) error {
	if err := guard.NotNil(branch, "branch"); err != nil {
		return err
	}

	existing, err := s.branches.GetByID(ctx, branch.ID.String())
	switch {
	case err == nil && existing != nil:
		return fmt.Errorf("%w: branch %s", contacts.ErrDuplicate, branch.ID)
	case err != nil && !isNotFound(err):
		return storeError("get branch "+branch.ID.String(), err)
	}

	row := &branchRow{ID: branch.ID.String(), Name: branch.Name}
	if _, err := s.branches.Create(ctx, row); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: branch %s", contacts.ErrDuplicate, branch.ID)
		}
		return storeError("insert branch "+branch.ID.String(), err)
	}
	return nil
}

// ListBranches returns every branch ordered by name.
func (s *Store) ListBranches(ctx context.Context) ([]*contacts.Branch, error) {
	rows, _, err := s.branches.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("name ASC", "id ASC")
	})
	if err != nil {
		return nil, storeError("list branches", err)
	}

	out := make([]*contacts.Branch, 0, len(rows))
	for _, row := range rows {
		b, err := s.withContacts(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) withContacts(ctx context.Context, row *branchRow) (*contacts.Branch, error) {
	members, _, err := s.contacts.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("branch_id = ?", row.ID).Order("id ASC")
	})
	if err != nil {
		return nil, storeError("list branch contacts", err)
	}

	b := &contacts.Branch{ID: parseID(row.ID), Name: row.Name}
	for _, m := range members {
		b.ContactIDs = append(b.ContactIDs, parseID(m.ID))
	}
	return b, nil
}

func orderContacts(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("last_name ASC", "first_name ASC", "id ASC")
}

func newContactRow(c *contacts.Contact) *contactRow {
	return &contactRow{
		ID:        c.ID.String(),
		Title:     c.Title,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		BranchID:  c.BranchID.String(),
	}
}

func (r *contactRow) toContact() *contacts.Contact {
	return &contacts.Contact{
		ID:        parseID(r.ID),
		Title:     r.Title,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		BranchID:  parseID(r.BranchID),
	}
}

// parseID returns uuid.Nil for values that are not valid UUIDs.
func parseID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func isNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", contacts.ErrStore, op, err)
}
