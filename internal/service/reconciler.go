package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/payment"
	"github.com/iliyamo/domain-marketplace/internal/repository"
	"github.com/iliyamo/domain-marketplace/internal/utils"
)

// Checkout metadata keys set when sessions are created.
const (
	metaProduct = "product"
	metaDomain  = "domain"
	metaUserID  = "user_id"
)

const templateValidity = 365 * 24 * time.Hour

// Profile subscription statuses.
const (
	profileActive              = "active"
	profilePendingCancellation = "pending_cancellation"
	profileCancelled           = "cancelled"
)

// Reconciler applies payment events to purchase and profile rows.  Every
// write is an upsert on the purchase key, so processing the same event
// again converges to the same rows.
type Reconciler struct {
	purchases PurchaseStore
	profiles  ProfileStore
	domains   DomainStore
	registrar Registrar
	billing   BillingLookup
	tiers     map[string]string
	now       func() time.Time
	log       zerolog.Logger
}

// ReconcilerDeps groups the collaborators of Reconciler.  PriceTiers maps
// price ids to tier names; unknown prices get no tier.
type ReconcilerDeps struct {
	Purchases  PurchaseStore
	Profiles   ProfileStore
	Domains    DomainStore
	Registrar  Registrar
	Billing    BillingLookup
	PriceTiers map[string]string
	Log        zerolog.Logger
}

func NewReconciler(d ReconcilerDeps) *Reconciler {
	return &Reconciler{
		purchases: d.Purchases,
		profiles:  d.Profiles,
		domains:   d.Domains,
		registrar: d.Registrar,
		billing:   d.Billing,
		tiers:     d.PriceTiers,
		now:       time.Now,
		log:       d.Log.With().Str("component", "reconciler").Logger(),
	}
}

// ProcessIncomingEvent applies one verified event.  Event types the service
// does not act on are ignored.
func (r *Reconciler) ProcessIncomingEvent(ctx context.Context, ev stripe.Event) error {
	log := r.log.With().Str("event_id", ev.ID).Str("event_type", string(ev.Type)).Logger()
	ctx = log.WithContext(ctx)

	switch string(ev.Type) {
	case payment.EventCheckoutCompleted:
		return r.checkoutCompleted(ctx, ev)
	case payment.EventSubscriptionCreated, payment.EventSubscriptionUpdated:
		return r.subscriptionChanged(ctx, ev)
	case payment.EventSubscriptionDeleted:
		return r.subscriptionDeleted(ctx, ev)
	default:
		log.Debug().Msg("event ignored")
		return nil
	}
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, ev stripe.Event) error {
	s, err := payment.DecodeCheckoutSession(ev)
	if err != nil {
		return err
	}
	email := payment.SessionEmail(s)
	customerID := payment.CustomerID(s.Customer)
	if email == "" && customerID != "" {
		if email, err = r.billing.CustomerEmail(ctx, customerID); err != nil {
			return err
		}
	}
	if customerID == "" {
		if email == "" {
			return fmt.Errorf("%w: checkout %s has neither customer nor email", payment.ErrMalformedEvent, s.ID)
		}
		// guest checkouts are keyed by email
		customerID = "guest:" + strings.ToLower(email)
	}
	userID, err := r.resolveUser(ctx, email, s.ClientReferenceID, s.Metadata[metaUserID])
	if err != nil {
		return err
	}

	switch string(s.Mode) {
	case payment.ModeSubscription:
		if s.Subscription == nil || s.Subscription.ID == "" {
			return fmt.Errorf("%w: subscription checkout %s without subscription", payment.ErrMalformedEvent, s.ID)
		}
		tier, err := r.checkoutTier(ctx, s)
		if err != nil {
			return err
		}
		p := &model.Purchase{
			ID:             utils.NewID(),
			Email:          email,
			UserID:         userID,
			ProductType:    model.ProductSubscription,
			Tier:           tier,
			Status:         model.PurchaseActive,
			CustomerID:     customerID,
			SubscriptionID: s.Subscription.ID,
		}
		return r.apply(ctx, p, profileActive)

	case payment.ModePayment:
		// One-time purchases are keyed by their checkout session so that a
		// customer's purchases never share a row.
		if s.ID == "" {
			return fmt.Errorf("%w: payment checkout without id", payment.ErrMalformedEvent)
		}
		if model.ProductType(s.Metadata[metaProduct]) == model.ProductDomainPurchase {
			return r.domainPurchase(ctx, s, customerID, email, userID)
		}
		bought := r.now()
		if s.Created > 0 {
			bought = time.Unix(s.Created, 0)
		}
		p := &model.Purchase{
			ID:             utils.NewID(),
			Email:          email,
			UserID:         userID,
			ProductType:    model.ProductTemplate,
			Status:         model.PurchaseCompleted,
			CustomerID:     customerID,
			SubscriptionID: s.ID,
			ExpiresAt:      timePtr(bought.Add(templateValidity)),
			Metadata:       map[string]any{"checkout_session": s.ID},
		}
		return r.upsert(ctx, p)

	default:
		zerolog.Ctx(ctx).Debug().Str("mode", string(s.Mode)).Msg("checkout mode ignored")
		return nil
	}
}

// domainPurchase registers the bought domain and records the outcome.  A
// registrar failure marks the purchase failed and is returned so the
// caller's retry policy sees it.  A redelivered session whose purchase is
// already completed is not registered twice.
func (r *Reconciler) domainPurchase(ctx context.Context, s *stripe.CheckoutSession, customerID, email string, userID *string) error {
	log := zerolog.Ctx(ctx)
	p := &model.Purchase{
		ID:             utils.NewID(),
		Email:          email,
		UserID:         userID,
		ProductType:    model.ProductDomainPurchase,
		CustomerID:     customerID,
		SubscriptionID: s.ID,
		Metadata:       map[string]any{"checkout_session": s.ID, metaDomain: s.Metadata[metaDomain]},
	}

	name, err := utils.CleanDomain(s.Metadata[metaDomain])
	if err != nil {
		p.Status = model.PurchaseFailed
		p.Metadata["error"] = err.Error()
		return errors.Join(fmt.Errorf("%w: %w", ErrInvalidInput, err), r.upsert(ctx, p))
	}
	p.Metadata[metaDomain] = name

	prev, err := r.purchases.Find(ctx, customerID, model.ProductDomainPurchase, s.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if prev != nil && prev.Status == model.PurchaseCompleted && prev.Metadata[metaDomain] == name {
		log.Info().Str("domain", name).Msg("domain purchase already completed")
		return nil
	}

	if err := r.registrar.Register(ctx, name, email); err != nil {
		p.Status = model.PurchaseFailed
		p.Metadata["error"] = err.Error()
		if uerr := r.upsert(ctx, p); uerr != nil {
			log.Error().Err(uerr).Str("domain", name).Msg("record failed domain purchase")
		}
		return err
	}

	p.Status = model.PurchaseCompleted
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.upsert(gctx, p) })
	g.Go(func() error { return r.domains.Claim(gctx, name, userID) })
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("domain", name).
			Msg("reconciliation gap: domain registered but purchase or ownership not stored")
		return err
	}
	return nil
}

func (r *Reconciler) subscriptionChanged(ctx context.Context, ev stripe.Event) error {
	sub, err := payment.DecodeSubscription(ev)
	if err != nil {
		return err
	}
	p, userID, err := r.subscriptionPurchase(ctx, sub)
	if err != nil {
		return err
	}

	profileStatus := profileActive
	switch {
	case isTerminal(sub.Status):
		p.Status = model.PurchaseCancelled
		profileStatus = profileCancelled
	case sub.CancelAtPeriodEnd:
		// still paid for until the period ends
		p.Status = model.PurchaseActive
		p.ExpiresAt = unixPtr(sub.CurrentPeriodEnd)
		profileStatus = profilePendingCancellation
	default:
		p.Status = model.PurchaseActive
	}
	p.UserID = userID
	return r.apply(ctx, p, profileStatus)
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, ev stripe.Event) error {
	sub, err := payment.DecodeSubscription(ev)
	if err != nil {
		return err
	}
	p, userID, err := r.subscriptionPurchase(ctx, sub)
	if err != nil {
		return err
	}
	p.UserID = userID

	now := r.now()
	periodEnd := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	if sub.CurrentPeriodEnd > 0 && now.Before(periodEnd) && sub.CancelAtPeriodEnd {
		// paid through the period, same as a scheduled cancellation update
		p.Status = model.PurchaseActive
		p.ExpiresAt = &periodEnd
		return r.apply(ctx, p, profilePendingCancellation)
	}

	p.Status = model.PurchaseCancelled
	ended := now.UTC()
	if sub.EndedAt > 0 {
		ended = time.Unix(sub.EndedAt, 0).UTC()
	}
	p.ExpiresAt = &ended
	return r.apply(ctx, p, profileCancelled)
}

// subscriptionPurchase builds the purchase row for sub, reusing what the
// stored row already knows about the customer.
func (r *Reconciler) subscriptionPurchase(ctx context.Context, sub *stripe.Subscription) (*model.Purchase, *string, error) {
	customerID := payment.CustomerID(sub.Customer)
	if customerID == "" || sub.ID == "" {
		return nil, nil, fmt.Errorf("%w: subscription without id or customer", payment.ErrMalformedEvent)
	}
	prev, err := r.purchases.Find(ctx, customerID, model.ProductSubscription, sub.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, err
	}

	var email string
	var knownUser *string
	if prev != nil {
		email, knownUser = prev.Email, prev.UserID
	}
	if email == "" {
		if email, err = r.billing.CustomerEmail(ctx, customerID); err != nil {
			return nil, nil, err
		}
	}

	userID := knownUser
	if userID == nil {
		if userID, err = r.resolveUser(ctx, email, sub.Metadata[metaUserID]); err != nil {
			return nil, nil, err
		}
	}

	p := &model.Purchase{
		ID:             utils.NewID(),
		Email:          email,
		ProductType:    model.ProductSubscription,
		Tier:           r.tierFor(payment.FirstItemPriceID(sub)),
		CustomerID:     customerID,
		SubscriptionID: sub.ID,
	}
	if p.Tier == nil && prev != nil {
		p.Tier = prev.Tier
	}
	return p, userID, nil
}

// apply writes the purchase and mirrors the status onto the user's profile.
// The two writes are independent and run concurrently; both must succeed.
func (r *Reconciler) apply(ctx context.Context, p *model.Purchase, profileStatus string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.upsert(gctx, p) })
	if p.UserID != nil {
		userID := *p.UserID
		g.Go(func() error {
			err := r.profiles.UpdateSubscription(gctx, userID, profileStatus, p.Tier)
			if errors.Is(err, repository.ErrNotFound) {
				zerolog.Ctx(ctx).Warn().Str("user_id", userID).Msg("no profile to mirror subscription onto")
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().
		Str("customer_id", p.CustomerID).
		Str("subscription_id", p.SubscriptionID).
		Str("status", string(p.Status)).
		Str("profile_status", profileStatus).
		Msg("billing state updated")
	return nil
}

func (r *Reconciler) upsert(ctx context.Context, p *model.Purchase) error {
	if err := r.purchases.Upsert(ctx, p); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return nil
}

// resolveUser returns the first non-empty explicit id, falling back to the
// profile registered with email.  No match is not an error.
func (r *Reconciler) resolveUser(ctx context.Context, email string, explicit ...string) (*string, error) {
	for _, id := range explicit {
		if id != "" {
			return &id, nil
		}
	}
	if email == "" {
		return nil, nil
	}
	profile, err := r.profiles.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile.ID, nil
}

// checkoutTier derives the tier from the invoice's first line item, or from
// the subscription when the session carries no invoice.
func (r *Reconciler) checkoutTier(ctx context.Context, s *stripe.CheckoutSession) (*string, error) {
	var (
		priceID string
		err     error
	)
	switch {
	case s.Invoice != nil && s.Invoice.ID != "":
		priceID, err = r.billing.InvoicePriceID(ctx, s.Invoice.ID)
	case s.Subscription != nil:
		priceID, err = r.billing.SubscriptionPriceID(ctx, s.Subscription.ID)
	}
	if err != nil {
		if errors.Is(err, payment.ErrNoPrice) {
			return nil, nil
		}
		return nil, err
	}
	return r.tierFor(priceID), nil
}

func (r *Reconciler) tierFor(priceID string) *string {
	tier, ok := r.tiers[priceID]
	if !ok || priceID == "" {
		return nil
	}
	return &tier
}

func isTerminal(st stripe.SubscriptionStatus) bool {
	switch st {
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired, stripe.SubscriptionStatusUnpaid:
		return true
	}
	return false
}

func timePtr(t time.Time) *time.Time {
	t = t.UTC()
	return &t
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	return timePtr(time.Unix(sec, 0))
}
