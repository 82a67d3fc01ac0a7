package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/repository"
)

// Domains covers the owner dashboard operations on already onboarded
// domains.
type Domains struct {
	domains DomainStore
	hosting Hosting
	cache   CacheInvalidator
	log     zerolog.Logger
}

func NewDomains(domains DomainStore, hosting Hosting, cache CacheInvalidator, log zerolog.Logger) *Domains {
	return &Domains{domains: domains, hosting: hosting, cache: cache, log: log.With().Str("component", "domains").Logger()}
}

// List returns the domains owned by userID.
func (s *Domains) List(ctx context.Context, userID string) ([]*model.Domain, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	list, err := s.domains.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return list, nil
}

// Remove detaches the domain from the hosting platform and deletes it with
// all of its offers.  The platform is called first so that a failure there
// leaves the record in place for a retry.
func (s *Domains) Remove(ctx context.Context, userID, rawName string) error {
	dom, err := ownedDomain(ctx, s.domains, userID, rawName)
	if err != nil {
		return err
	}
	log := s.log.With().Str("domain", dom.Name).Str("user_id", userID).Logger()

	if dom.ProjectID != nil {
		if err := s.hosting.RemoveDomain(ctx, dom.Name); err != nil {
			return fmt.Errorf("%w: %w", ErrExternalService, err)
		}
	}
	if err := s.domains.Delete(ctx, dom.Name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Msg("reconciliation gap: domain removed from hosting platform but still stored")
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	invalidateUser(ctx, s.cache, log, userID)
	log.Info().Msg("domain removed")
	return nil
}

// NotificationSettings are the owner's notification preferences.
type NotificationSettings struct {
	Frequency []model.NotifyFrequency
	Threshold *decimal.Decimal
}

// UpdateNotifications replaces the notification preferences of a domain.
// The frequency set must stay non-empty and contain only known values;
// duplicates are dropped.
func (s *Domains) UpdateNotifications(ctx context.Context, userID, rawName string, in NotificationSettings) (*model.Domain, error) {
	freq, err := normalizeFrequency(in.Frequency)
	if err != nil {
		return nil, err
	}
	if in.Threshold != nil && in.Threshold.IsNegative() {
		return nil, fmt.Errorf("%w: threshold must not be negative", ErrInvalidInput)
	}
	dom, err := ownedDomain(ctx, s.domains, userID, rawName)
	if err != nil {
		return nil, err
	}
	if err := s.domains.UpdateNotifications(ctx, dom.Name, freq, in.Threshold); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	invalidateUser(ctx, s.cache, s.log, userID)
	dom.NotifyFrequency, dom.NotifyThreshold = freq, in.Threshold
	return dom, nil
}

func normalizeFrequency(in []model.NotifyFrequency) ([]model.NotifyFrequency, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: at least one notification frequency is required", ErrInvalidInput)
	}
	seen := make(map[model.NotifyFrequency]bool, len(in))
	out := make([]model.NotifyFrequency, 0, len(in))
	for _, f := range in {
		if !f.Valid() {
			return nil, fmt.Errorf("%w: unknown notification frequency %q", ErrInvalidInput, f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// VerifyResult reports the hosting platform's view of a domain.
type VerifyResult struct {
	Verified      bool `json:"verified"`
	Misconfigured bool `json:"misconfigured"`
}

// Verify asks the hosting platform to check the domain's DNS and stores the
// verification flag.
func (s *Domains) Verify(ctx context.Context, userID, rawName string) (VerifyResult, error) {
	dom, err := ownedDomain(ctx, s.domains, userID, rawName)
	if err != nil {
		return VerifyResult{}, err
	}
	log := s.log.With().Str("domain", dom.Name).Logger()

	verified, err := s.hosting.Verify(ctx, dom.Name)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	res := VerifyResult{Verified: verified}
	if cfg, err := s.hosting.Config(ctx, dom.Name); err != nil {
		log.Warn().Err(err).Msg("read domain DNS configuration")
	} else {
		res.Misconfigured = cfg.Misconfigured
	}

	if verified != dom.Verified {
		if err := s.domains.SetVerified(ctx, dom.Name, verified); err != nil {
			return VerifyResult{}, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		invalidateUser(ctx, s.cache, log, userID)
	}
	return res, nil
}
