package contacts

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the source of truth for contacts.
type Repository interface {
	// GetContact returns (nil, nil) when no contact has the id.
	GetContact(ctx context.Context, id uuid.UUID) (*Contact, error)
	InsertContact(ctx context.Context, contact *Contact) error
	ListContacts(ctx context.Context) ([]*Contact, error)
}

// BranchRepository is the source of truth for branches.
type BranchRepository interface {
	// GetBranch returns (nil, nil) when no branch has the id.
	GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error)
	InsertBranch(ctx context.Context, branch *Branch) error
	ListBranches(ctx context.Context) ([]*Branch, error)
}
