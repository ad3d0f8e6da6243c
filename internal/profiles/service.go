// Package profiles manages the per-user profile documents: the user root
// document plus its contactInfo and shippingAddress subdocuments. The wizard
// seeds new orders from these defaults and syncs them back on a contact save.
package profiles

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/telavo/activation-backend/pkg/docstore"
	"github.com/telavo/activation-backend/pkg/enums"
	pkgerrors "github.com/telavo/activation-backend/pkg/errors"
	"github.com/telavo/activation-backend/pkg/logger"
	"github.com/telavo/activation-backend/pkg/types"
)

// Contact mirrors the contactInfo/primary document.
type Contact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// Profile is the assembled view of a user's documents.
type Profile struct {
	UserID      string            `json:"user_id"`
	AccountType enums.AccountType `json:"account_type"`
	Contact     Contact           `json:"contact"`
	Shipping    types.Address     `json:"shipping"`
}

// Service reads and writes the profile documents.
type Service interface {
	EnsureUser(ctx context.Context, userID string, accountType enums.AccountType) error
	Get(ctx context.Context, userID string) (*Profile, error)
	UpdateContact(ctx context.Context, userID string, contact Contact) error
	UpdateShipping(ctx context.Context, userID string, shipping types.Address) error
}

type service struct {
	store docstore.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewService(store docstore.Store, log *logger.Logger) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("docstore is required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{store: store, log: log, now: time.Now}, nil
}

// EnsureUser bootstraps the user root document on first sight. Re-running it
// for an existing user is a no-op.
func (s *service) EnsureUser(ctx context.Context, userID string, accountType enums.AccountType) error {
	existing, err := s.store.Get(ctx, docstore.UserDoc(userID))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read user document failed")
	}
	if existing != nil {
		return nil
	}

	fields := docstore.Fields{
		"user_id":      userID,
		"account_type": string(accountType),
		"created_at":   s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.store.Set(ctx, docstore.UserDoc(userID), fields, true); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write user document failed")
	}
	s.log.Info(s.log.WithUserID(ctx, userID), "user profile bootstrapped")
	return nil
}

// Get assembles the profile from the user, contact and shipping documents.
// Missing subdocuments come back zero-valued; a missing user document is
// CodeNotFound.
func (s *service) Get(ctx context.Context, userID string) (*Profile, error) {
	userFields, err := s.store.Get(ctx, docstore.UserDoc(userID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read user document failed")
	}
	if userFields == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	profile := &Profile{
		UserID:      userID,
		AccountType: enums.AccountType(userFields.String("account_type")),
	}

	contactFields, err := s.store.Get(ctx, docstore.ContactDoc(userID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read contact document failed")
	}
	profile.Contact = decodeContact(contactFields)

	shippingFields, err := s.store.Get(ctx, docstore.ShippingDoc(userID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read shipping document failed")
	}
	profile.Shipping = decodeShipping(shippingFields)
	return profile, nil
}

func (s *service) UpdateContact(ctx context.Context, userID string, contact Contact) error {
	missing := map[string]string{}
	if strings.TrimSpace(contact.FirstName) == "" {
		missing["first_name"] = "is required"
	}
	if strings.TrimSpace(contact.LastName) == "" {
		missing["last_name"] = "is required"
	}
	if strings.TrimSpace(contact.PhoneNumber) == "" {
		missing["phone_number"] = "is required"
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "contact info incomplete").
			WithDetails(map[string]any{"fields": missing})
	}

	fields := docstore.Fields{
		"first_name":   contact.FirstName,
		"last_name":    contact.LastName,
		"phone_number": contact.PhoneNumber,
		"email":        contact.Email,
	}
	if err := s.store.Set(ctx, docstore.ContactDoc(userID), fields, true); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write contact document failed")
	}
	return nil
}

func (s *service) UpdateShipping(ctx context.Context, userID string, shipping types.Address) error {
	fields := docstore.Fields{
		"street":     shipping.Street,
		"apt_number": shipping.AptNumber,
		"city":       shipping.City,
		"state":      shipping.State,
		"zip":        shipping.Zip,
		"country":    shipping.Country,
	}
	if err := s.store.Set(ctx, docstore.ShippingDoc(userID), fields, true); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write shipping document failed")
	}
	return nil
}

func decodeContact(fields docstore.Fields) Contact {
	if fields == nil {
		return Contact{}
	}
	return Contact{
		FirstName:   fields.String("first_name"),
		LastName:    fields.String("last_name"),
		PhoneNumber: fields.String("phone_number"),
		Email:       fields.String("email"),
	}
}

func decodeShipping(fields docstore.Fields) types.Address {
	if fields == nil {
		return types.Address{}
	}
	return types.Address{
		Street:    fields.String("street"),
		AptNumber: fields.String("apt_number"),
		City:      fields.String("city"),
		State:     fields.String("state"),
		Zip:       fields.String("zip"),
		Country:   fields.String("country"),
	}
}
