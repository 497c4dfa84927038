package contacts

import (
	"github.com/google/uuid"
)

// Contact is a person attached to a branch.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BranchID  uuid.UUID `json:"branch_id"`
}

// Branch groups contacts. ContactIDs is derived from the contacts that point
// at the branch.
type Branch struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	ContactIDs []uuid.UUID `json:"contact_ids"`
}
