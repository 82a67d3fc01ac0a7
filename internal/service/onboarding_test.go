package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/domain-marketplace/internal/gateway"
	"github.com/iliyamo/domain-marketplace/internal/lock"
	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/utils"
)

type onboardingFixture struct {
	svc     *Onboarding
	domains *fakeDomains
	hosting *fakeHosting
	mailer  *fakeMailer
	cache   *fakeCache
}

func newOnboardingFixture(rows ...*model.Domain) *onboardingFixture {
	f := &onboardingFixture{
		domains: newFakeDomains(rows...),
		hosting: &fakeHosting{},
		mailer:  &fakeMailer{},
		cache:   &fakeCache{},
	}
	f.svc = NewOnboarding(OnboardingDeps{
		Domains:  f.domains,
		Profiles: newFakeProfiles(&model.Profile{ID: "user-b", Email: "b@x.io"}),
		Hosting:  f.hosting,
		Mailer:   f.mailer,
		Cache:    f.cache,
		Locker:   lock.NewLocalLocker(),
		LockTTL:  time.Minute,
		Log:      zerolog.Nop(),
	})
	return f
}

func TestOnboarding_AddNewDomain(t *testing.T) {
	f := newOnboardingFixture()

	d, err := f.svc.AddDomain(context.Background(), "user-b", "https://www.Example.com/landing")
	require.NoError(t, err)
	require.Equal(t, "example.com", d.Name)
	require.Equal(t, "user-b", *d.OwnerID)
	require.False(t, d.Verified)
	require.Equal(t, "prj_1", *d.ProjectID)

	require.Equal(t, []string{"example.com"}, f.hosting.added)
	require.Len(t, f.mailer.sent, 1)
	require.Equal(t, gateway.TemplateDomainAdded, f.mailer.sent[0].template)
	require.Equal(t, "b@x.io", f.mailer.sent[0].to)
	require.Equal(t, []string{"user-b"}, f.cache.users)
}

func TestOnboarding_RollbackDeletesInsertedDomain(t *testing.T) {
	f := newOnboardingFixture()
	f.hosting.addFn = func(context.Context, string) (string, error) {
		return "", errors.New("connection reset")
	}

	_, err := f.svc.AddDomain(context.Background(), "user-b", "example.com")
	require.ErrorIs(t, err, ErrRegistrationFailed)
	require.Nil(t, f.domains.get("example.com"))
	require.Empty(t, f.mailer.sent)
}

func TestOnboarding_RollbackRestoresPreviousOwner(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newOnboardingFixture(&model.Domain{Name: "example.com", OwnerID: strPtr("user-a"), Verified: true, CreatedAt: created})
	f.hosting.addFn = func(context.Context, string) (string, error) {
		return "", gateway.ErrDomainInUse
	}

	_, err := f.svc.AddDomain(context.Background(), "user-b", "example.com")
	require.ErrorIs(t, err, ErrRegistrationConflict)
	require.ErrorIs(t, err, gateway.ErrDomainInUse)

	d := f.domains.get("example.com")
	require.NotNil(t, d)
	require.Equal(t, "user-a", *d.OwnerID)
	require.True(t, d.Verified)
	require.Equal(t, created, d.CreatedAt)
}

func TestOnboarding_ReassignInvalidatesBothOwners(t *testing.T) {
	f := newOnboardingFixture(&model.Domain{Name: "example.com", OwnerID: strPtr("user-a"), Verified: true})

	d, err := f.svc.AddDomain(context.Background(), "user-b", "example.com")
	require.NoError(t, err)
	require.Equal(t, "user-b", *d.OwnerID)
	require.False(t, d.Verified)
	require.ElementsMatch(t, []string{"user-a", "user-b"}, f.cache.users)
}

func TestOnboarding_ProjectUpdateFailureCompensates(t *testing.T) {
	f := newOnboardingFixture()
	f.domains.setProjectErr = errors.New("deadlock")

	_, err := f.svc.AddDomain(context.Background(), "user-b", "example.com")
	require.ErrorIs(t, err, ErrPersistence)
	require.Nil(t, f.domains.get("example.com"))
}

func TestOnboarding_FailedCompensationKeepsOriginalError(t *testing.T) {
	f := newOnboardingFixture()
	f.hosting.addFn = func(context.Context, string) (string, error) {
		return "", gateway.ErrUpstream
	}
	f.domains.deleteErr = errors.New("db gone")

	_, err := f.svc.AddDomain(context.Background(), "user-b", "example.com")
	require.ErrorIs(t, err, ErrRegistrationFailed)
	require.ErrorIs(t, err, gateway.ErrUpstream)
}

func TestOnboarding_CompensationSurvivesCancelledRequest(t *testing.T) {
	f := newOnboardingFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.hosting.addFn = func(context.Context, string) (string, error) {
		cancel()
		return "", context.Canceled
	}

	_, err := f.svc.AddDomain(ctx, "user-b", "example.com")
	require.ErrorIs(t, err, ErrRegistrationFailed)
	require.Nil(t, f.domains.get("example.com"))
}

func TestOnboarding_EmailFailureIsNotFatal(t *testing.T) {
	f := newOnboardingFixture()
	f.mailer.err = errors.New("smtp down")

	d, err := f.svc.AddDomain(context.Background(), "user-b", "example.com")
	require.NoError(t, err)
	require.Equal(t, "prj_1", *d.ProjectID)
}

func TestOnboarding_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		user    string
		domain  string
		locker  lock.Locker
		wantErr error
	}{
		{name: "no session", user: "", domain: "example.com", wantErr: ErrUnauthorized},
		{name: "bad domain", user: "user-b", domain: "not a domain", wantErr: utils.ErrInvalidDomainFormat},
		{name: "concurrent onboarding", user: "user-b", domain: "example.com", locker: heldLocker{}, wantErr: ErrDomainBusy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newOnboardingFixture()
			if tc.locker != nil {
				f.svc.locker = tc.locker
			}
			_, err := f.svc.AddDomain(context.Background(), tc.user, tc.domain)
			require.ErrorIs(t, err, tc.wantErr)
			require.Empty(t, f.hosting.added)
		})
	}
}
