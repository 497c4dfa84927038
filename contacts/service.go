package contacts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-contact-cache/internal/guard"
	"github.com/goliatone/go-contact-cache/internal/logging"
)

// CreateContactInput is the data needed to create a contact.
type CreateContactInput struct {
	Title     string    `json:"title"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BranchID  uuid.UUID `json:"branch_id"`
}

// Validate checks the fields that do not need a repository.
func (in CreateContactInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.By(notBlank)),
		validation.Field(&in.FirstName, validation.Required, validation.By(notBlank)),
		validation.Field(&in.LastName, validation.Required, validation.By(notBlank)),
		validation.Field(&in.BranchID, validation.By(notNilUUID)),
	)
}

// MatchCondition combines the first and last name filters of a NameQuery.
type MatchCondition string

const (
	MatchAll MatchCondition = "and"
	MatchAny MatchCondition = "or"
)

// NameQuery filters contacts by name. At least one of FirstName and LastName
// must be set. Partial matches on substrings; IgnoreCase folds case.
type NameQuery struct {
	FirstName  string         `json:"first_name"`
	LastName   string         `json:"last_name"`
	Partial    bool           `json:"partial"`
	IgnoreCase bool           `json:"ignore_case"`
	Condition  MatchCondition `json:"condition"`
}

// Validate requires one of the names and a known condition.
func (q NameQuery) Validate() error {
	firstBlank := strings.TrimSpace(q.FirstName) == ""
	lastBlank := strings.TrimSpace(q.LastName) == ""

	return validation.ValidateStruct(&q,
		validation.Field(&q.FirstName,
			validation.When(lastBlank, validation.Required.Error("must be supplied when last_name is not"), validation.By(notBlank)),
		),
		validation.Field(&q.LastName,
			validation.When(firstBlank, validation.Required.Error("must be supplied when first_name is not"), validation.By(notBlank)),
		),
		validation.Field(&q.Condition, validation.In(MatchAll, MatchAny)),
	)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logging.OrNop(logger)
	}
}

// WithIDGenerator overrides uuid.New for new contacts.
func WithIDGenerator(fn func() uuid.UUID) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Service implements the contact use cases over the repositories.
type Service struct {
	contacts Repository
	branches BranchRepository
	logger   *zap.Logger
	newID    func() uuid.UUID
}

// NewService returns a Service. contacts is usually a CachingRepository.
func NewService(contacts Repository, branches BranchRepository, opts ...ServiceOption) (*Service, error) {
	if err := guard.NotNil(contacts, "contacts"); err != nil {
		return nil, err
	}
	if err := guard.NotNil(branches, "branches"); err != nil {
		return nil, err
	}

	s := &Service{
		contacts: contacts,
		branches: branches,
		logger:   zap.NewNop(),
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GetContact returns the contact with id, or (nil, nil) when there is none.
func (s *Service) GetContact(ctx context.Context, id uuid.UUID) (*Contact, error) {
	if id == uuid.Nil {
		return nil, validationError(validation.Errors{"id": errors.New("must not be empty")})
	}
	return s.contacts.GetContact(ctx, id)
}

// CreateContact validates in, checks that the branch exists and inserts a new
// contact with a fresh id.
func (s *Service) CreateContact(ctx context.Context, in CreateContactInput) (*Contact, error) {
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	branch, err := s.branches.GetBranch(ctx, in.BranchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, validationError(validation.Errors{"branch_id": errors.New("branch does not exist")})
	}

	contact := &Contact{
		ID:        s.newID(),
		Title:     strings.TrimSpace(in.Title),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		BranchID:  in.BranchID,
	}
	if err := s.contacts.InsertContact(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact created",
		zap.Stringer("contact_id", contact.ID),
		zap.Stringer("branch_id", contact.BranchID),
	)
	return contact, nil
}

// FindContactsByName returns the contacts matching q in source order.
func (s *Service) FindContactsByName(ctx context.Context, q NameQuery) ([]*Contact, error) {
	if err := q.Validate(); err != nil {
		return nil, validationError(err)
	}

	all, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return nil, err
	}

	match := q.matcher()
	out := make([]*Contact, 0)
	for _, c := range all {
		if match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetBranch returns the branch with id, or (nil, nil) when there is none.
func (s *Service) GetBranch(ctx context.Context, id uuid.UUID) (*Branch, error) {
	if id == uuid.Nil {
		return nil, validationError(validation.Errors{"id": errors.New("must not be empty")})
	}
	return s.branches.GetBranch(ctx, id)
}

func (q NameQuery) matcher() func(*Contact) bool {
	first := strings.TrimSpace(q.FirstName)
	last := strings.TrimSpace(q.LastName)

	var checks []func(*Contact) bool
	if first != "" {
		checks = append(checks, func(c *Contact) bool { return q.matches(c.FirstName, first) })
	}
	if last != "" {
		checks = append(checks, func(c *Contact) bool { return q.matches(c.LastName, last) })
	}

	matchAny := q.Condition == MatchAny
	return func(c *Contact) bool {
		if c == nil {
			return false
		}
		for _, check := range checks {
			ok := check(c)
			if matchAny && ok {
				return true
			}
			if !matchAny && !ok {
				return false
			}
		}
		return !matchAny
	}
}

func (q NameQuery) matches(value, want string) bool {
	if q.IgnoreCase {
		value, want = strings.ToLower(value), strings.ToLower(want)
	}
	if q.Partial {
		return value != "" && strings.Contains(value, want)
	}
	return value == want
}

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func notBlank(value any) error {
	if s, _ := value.(string); s != "" && strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

func notNilUUID(value any) error {
	if id, _ := value.(uuid.UUID); id == uuid.Nil {
		return errors.New("must not be empty")
	}
	return nil
}
