// Package service holds the business operations of the marketplace: domain
// onboarding, offer handling, owner domain management and payment event
// reconciliation.  Collaborators are injected through the small interfaces
// declared here so that every operation can be exercised with fakes.
package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/gateway"
	"github.com/iliyamo/domain-marketplace/internal/model"
)

// DomainStore is the persistence of domain records.
type DomainStore interface {
	GetByName(ctx context.Context, name string) (*model.Domain, error)
	Insert(ctx context.Context, name, ownerID string) error
	Reassign(ctx context.Context, name, ownerID string) error
	Restore(ctx context.Context, name string, ownerID *string, verified bool, createdAt time.Time) error
	Claim(ctx context.Context, name string, ownerID *string) error
	SetProject(ctx context.Context, name, projectID string) error
	SetVerified(ctx context.Context, name string, verified bool) error
	UpdateNotifications(ctx context.Context, name string, freq []model.NotifyFrequency, threshold *decimal.Decimal) error
	Delete(ctx context.Context, name string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Domain, error)
}

// OfferStore is the persistence of offers.
type OfferStore interface {
	Insert(ctx context.Context, o *model.Offer) error
	ListByDomain(ctx context.Context, domain string) ([]*model.Offer, error)
	DeleteForOwner(ctx context.Context, offerID, ownerID string) error
}

// PurchaseStore is the persistence of billing rows.
type PurchaseStore interface {
	Upsert(ctx context.Context, p *model.Purchase) error
	Find(ctx context.Context, customerID string, product model.ProductType, subscriptionID string) (*model.Purchase, error)
}

// ProfileStore reads user profiles and mirrors subscription state onto them.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
	UpdateSubscription(ctx context.Context, id, status string, tier *string) error
}

// Hosting is the domain hosting platform.
type Hosting interface {
	AddDomain(ctx context.Context, name string) (string, error)
	RemoveDomain(ctx context.Context, name string) error
	Verify(ctx context.Context, name string) (bool, error)
	Config(ctx context.Context, name string) (gateway.DomainConfig, error)
}

// Mailer sends templated transactional email.
type Mailer interface {
	Send(ctx context.Context, to, template string, vars map[string]any) error
}

// Registrar buys domains.
type Registrar interface {
	Register(ctx context.Context, name, contactEmail string) error
}

// BillingLookup resolves details the payment events do not carry inline.
type BillingLookup interface {
	InvoicePriceID(ctx context.Context, invoiceID string) (string, error)
	SubscriptionPriceID(ctx context.Context, subscriptionID string) (string, error)
	CustomerEmail(ctx context.Context, customerID string) (string, error)
}

// CacheInvalidator drops cached dashboard responses of a user.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}
