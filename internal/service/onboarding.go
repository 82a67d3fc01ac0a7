package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iliyamo/domain-marketplace/internal/gateway"
	"github.com/iliyamo/domain-marketplace/internal/lock"
	"github.com/iliyamo/domain-marketplace/internal/metrics"
	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/repository"
	"github.com/iliyamo/domain-marketplace/internal/utils"
)

// Onboarding makes a user the owner of a domain both in the database and
// on the hosting platform.
type Onboarding struct {
	domains  DomainStore
	profiles ProfileStore
	hosting  Hosting
	mailer   Mailer
	cache    CacheInvalidator
	locker   lock.Locker
	lockTTL  time.Duration
	log      zerolog.Logger
}

// OnboardingDeps groups the collaborators of Onboarding.  Cache may be nil.
type OnboardingDeps struct {
	Domains  DomainStore
	Profiles ProfileStore
	Hosting  Hosting
	Mailer   Mailer
	Cache    CacheInvalidator
	Locker   lock.Locker
	LockTTL  time.Duration
	Log      zerolog.Logger
}

func NewOnboarding(d OnboardingDeps) *Onboarding {
	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Onboarding{
		domains:  d.Domains,
		profiles: d.Profiles,
		hosting:  d.Hosting,
		mailer:   d.Mailer,
		cache:    d.Cache,
		locker:   d.Locker,
		lockTTL:  ttl,
		log:      d.Log.With().Str("component", "onboarding").Logger(),
	}
}

// AddDomain onboards rawName for userID and returns the stored record.
//
// The database write, the hosting registration and the project update form
// a saga: when registration or the project update fails, the database write
// is undone (the row is deleted, or the previous owner restored) and the
// original error is returned.  The owner email and cache invalidation that
// follow are best-effort.  Concurrent onboarding of the same name is
// rejected with ErrDomainBusy.
func (o *Onboarding) AddDomain(ctx context.Context, userID, rawName string) (dom *model.Domain, err error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	name, err := utils.CleanDomain(rawName)
	if err != nil {
		return nil, err
	}
	log := o.log.With().Str("domain", name).Str("user_id", userID).Logger()
	ctx = log.WithContext(ctx)
	defer func() {
		result := "ok"
		if err != nil {
			result = "failed"
		}
		metrics.Onboardings.WithLabelValues(result).Inc()
	}()

	release, err := o.locker.Acquire(ctx, "onboard:"+name, o.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, ErrDomainBusy
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	defer func() {
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			log.Warn().Err(rerr).Msg("release onboarding lock")
		}
	}()

	existing, err := o.domains.GetByName(ctx, name)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	tx := newSaga(log)
	if err := o.claim(ctx, tx, name, userID, existing); err != nil {
		return nil, err
	}

	projectID, err := o.hosting.AddDomain(ctx, name)
	if err != nil {
		tx.compensate(ctx, err)
		if errors.Is(err, gateway.ErrDomainInUse) {
			return nil, fmt.Errorf("%w: %w", ErrRegistrationConflict, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrRegistrationFailed, err)
	}

	if err := o.domains.SetProject(ctx, name, projectID); err != nil {
		log.Error().Err(err).Str("project_id", projectID).
			Msg("reconciliation gap: domain registered on hosting platform but project reference not stored")
		tx.compensate(ctx, err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	o.notifyOwner(ctx, log, userID, name)

	invalidateUser(ctx, o.cache, log, userID)
	if existing != nil && existing.OwnerID != nil && *existing.OwnerID != userID {
		invalidateUser(ctx, o.cache, log, *existing.OwnerID)
	}

	dom, err = o.domains.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	log.Info().Str("project_id", projectID).Msg("domain onboarded")
	return dom, nil
}

// claim writes the ownership change and registers its undo action.
func (o *Onboarding) claim(ctx context.Context, tx *saga, name, userID string, existing *model.Domain) error {
	if existing == nil {
		if err := o.domains.Insert(ctx, name, userID); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrDomainBusy
			}
			return fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		tx.completed("delete inserted domain", func(ctx context.Context) error {
			err := o.domains.Delete(ctx, name)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		})
		return nil
	}

	prev := *existing
	if err := o.domains.Reassign(ctx, name, userID); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	tx.completed("restore previous owner", func(ctx context.Context) error {
		return o.domains.Restore(ctx, name, prev.OwnerID, prev.Verified, prev.CreatedAt)
	})
	return nil
}

func (o *Onboarding) notifyOwner(ctx context.Context, log zerolog.Logger, userID, name string) {
	profile, err := o.profiles.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Msg("lookup owner profile for notification")
		}
		return
	}
	if profile.Email == "" {
		return
	}
	err = o.mailer.Send(ctx, profile.Email, gateway.TemplateDomainAdded, map[string]any{"domain": name})
	recordNotification(log, gateway.TemplateDomainAdded, err)
}

// invalidateUser drops the cached dashboard of userID; failures only log.
func invalidateUser(ctx context.Context, cache CacheInvalidator, log zerolog.Logger, userID string) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateUser(ctx, userID); err != nil {
		log.Warn().Err(err).Str("cache_user", userID).Msg("invalidate dashboard cache")
	}
}

// recordNotification logs and counts the outcome of a best-effort email.
func recordNotification(log zerolog.Logger, template string, err error) {
	if err != nil {
		metrics.Notifications.WithLabelValues(template, "failed").Inc()
		log.Warn().Err(err).Str("template", template).Msg("notification not sent")
		return
	}
	metrics.Notifications.WithLabelValues(template, "sent").Inc()
}
