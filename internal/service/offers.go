package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/gateway"
	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/repository"
	"github.com/iliyamo/domain-marketplace/internal/utils"
)

// Offers handles bids from visitors and their management by domain owners.
type Offers struct {
	domains  DomainStore
	offers   OfferStore
	profiles ProfileStore
	mailer   Mailer
	cache    CacheInvalidator
	log      zerolog.Logger
}

func NewOffers(domains DomainStore, offers OfferStore, profiles ProfileStore, mailer Mailer, cache CacheInvalidator, log zerolog.Logger) *Offers {
	return &Offers{
		domains:  domains,
		offers:   offers,
		profiles: profiles,
		mailer:   mailer,
		cache:    cache,
		log:      log.With().Str("component", "offers").Logger(),
	}
}

// SubmitOffer is a visitor's bid as received from the public form.
type SubmitOffer struct {
	Domain      string
	Email       string
	Amount      decimal.Decimal
	Description string
}

// Submit stores a bid on a listed domain and, when the owner's preferences
// allow it, emails the owner.  Notification failures never fail the
// submission.
func (s *Offers) Submit(ctx context.Context, in SubmitOffer) (*model.Offer, error) {
	name, err := utils.CleanDomain(in.Domain)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if !model.ValidOfferAmount(in.Amount) {
		return nil, fmt.Errorf("%w: amount must have at most two decimals and stay below 10000000000", ErrInvalidInput)
	}

	dom, err := s.domains.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	offer := &model.Offer{
		ID:          utils.NewID(),
		DomainName:  name,
		Email:       email,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Token:       utils.NewOpaqueToken(),
	}
	if err := s.offers.Insert(ctx, offer); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	log := s.log.With().Str("domain", name).Str("offer_id", offer.ID).Logger()
	if dom.OwnerID != nil {
		invalidateUser(ctx, s.cache, log, *dom.OwnerID)
		if ShouldNotify(dom.NotifyFrequency, dom.NotifyThreshold, in.Amount) {
			s.notifyOwner(ctx, log, *dom.OwnerID, offer)
		}
	}
	log.Info().Str("amount", in.Amount.StringFixed(2)).Msg("offer received")
	return offer, nil
}

func (s *Offers) notifyOwner(ctx context.Context, log zerolog.Logger, ownerID string, o *model.Offer) {
	profile, err := s.profiles.GetByID(ctx, ownerID)
	if err != nil || profile.Email == "" {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Msg("lookup owner profile for notification")
		}
		return
	}
	vars := map[string]any{
		"domain":      o.DomainName,
		"amount":      o.Amount.StringFixed(2),
		"email":       o.Email,
		"description": o.Description,
	}
	err = s.mailer.Send(ctx, profile.Email, gateway.TemplateNewOffer, vars)
	recordNotification(log, gateway.TemplateNewOffer, err)
}

// List returns the offers on a domain owned by userID.
func (s *Offers) List(ctx context.Context, userID, rawName string) ([]*model.Offer, error) {
	dom, err := ownedDomain(ctx, s.domains, userID, rawName)
	if err != nil {
		return nil, err
	}
	list, err := s.offers.ListByDomain(ctx, dom.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return list, nil
}

// Delete removes a single offer on one of userID's domains.
func (s *Offers) Delete(ctx context.Context, userID, offerID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	err := s.offers.DeleteForOwner(ctx, offerID, userID)
	switch {
	case err == nil:
		invalidateUser(ctx, s.cache, s.log, userID)
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrForbidden):
		return ErrForbidden
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

// ownedDomain loads rawName and checks that userID owns it.
func ownedDomain(ctx context.Context, domains DomainStore, userID, rawName string) (*model.Domain, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	name, err := utils.CleanDomain(rawName)
	if err != nil {
		return nil, err
	}
	dom, err := domains.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !dom.OwnedBy(userID) {
		return nil, ErrForbidden
	}
	return dom, nil
}
