// Package contacts holds the contact and branch domain, the repository
// contracts, a read-through caching decorator for contact lookups and the
// Service that applies input rules on top of them.
package contacts
