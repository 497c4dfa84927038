package di

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/goliatone/go-contact-cache/contacts"
)

// Seed is the layout of a seed file.
type Seed struct {
	Branches []contacts.Branch  `json:"branches"`
	Contacts []contacts.Contact `json:"contacts"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (Seed, error) {
	var seed Seed
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("decode seed %s: %w", path, err)
	}
	return seed, nil
}

// seedFromFile inserts the seed records straight into the source, skipping
// records that already exist, and returns the number of new contacts.
func seedFromFile(ctx context.Context, path string, source contacts.Repository, branches contacts.BranchRepository) (int, error) {
	seed, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}

	for i := range seed.Branches {
		if err := branches.InsertBranch(ctx, &seed.Branches[i]); err != nil && !errors.Is(err, contacts.ErrDuplicate) {
			return 0, err
		}
	}

	inserted := 0
	for i := range seed.Contacts {
		err := source.InsertContact(ctx, &seed.Contacts[i])
		switch {
		case err == nil:
			inserted++
		case errors.Is(err, contacts.ErrDuplicate):
		default:
			return inserted, err
		}
	}
	return inserted, nil
}
