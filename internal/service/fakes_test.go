package service

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/gateway"
	"github.com/iliyamo/domain-marketplace/internal/lock"
	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/repository"
)

var (
	_ DomainStore      = (*fakeDomains)(nil)
	_ OfferStore       = (*fakeOffers)(nil)
	_ PurchaseStore    = (*fakePurchases)(nil)
	_ ProfileStore     = (*fakeProfiles)(nil)
	_ Hosting          = (*fakeHosting)(nil)
	_ Mailer           = (*fakeMailer)(nil)
	_ Registrar        = (*fakeRegistrar)(nil)
	_ BillingLookup    = (*fakeBilling)(nil)
	_ CacheInvalidator = (*fakeCache)(nil)
)

func strPtr(s string) *string { return &s }

type fakeDomains struct {
	mu   sync.Mutex
	rows map[string]*model.Domain

	insertErr     error
	setProjectErr error
	deleteErr     error
	claimErr      error
}

func newFakeDomains(rows ...*model.Domain) *fakeDomains {
	f := &fakeDomains{rows: make(map[string]*model.Domain)}
	for _, d := range rows {
		f.rows[d.Name] = d
	}
	return f
}

func (f *fakeDomains) get(name string) *model.Domain {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[name]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

func (f *fakeDomains) GetByName(_ context.Context, name string) (*model.Domain, error) {
	if d := f.get(name); d != nil {
		return d, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeDomains) Insert(_ context.Context, name, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.rows[name]; ok {
		return repository.ErrConflict
	}
	f.rows[name] = &model.Domain{Name: name, OwnerID: strPtr(ownerID), NotifyFrequency: model.DefaultNotifyFrequency(), CreatedAt: time.Now()}
	return nil
}

func (f *fakeDomains) Reassign(_ context.Context, name, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[name]
	if !ok {
		return repository.ErrNotFound
	}
	d.OwnerID, d.Verified, d.CreatedAt = strPtr(ownerID), false, time.Now()
	return nil
}

func (f *fakeDomains) Restore(_ context.Context, name string, ownerID *string, verified bool, createdAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[name]
	if !ok {
		return repository.ErrNotFound
	}
	d.OwnerID, d.Verified, d.CreatedAt = ownerID, verified, createdAt
	return nil
}

func (f *fakeDomains) Claim(_ context.Context, name string, ownerID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return f.claimErr
	}
	if d, ok := f.rows[name]; ok {
		d.OwnerID = ownerID
		return nil
	}
	f.rows[name] = &model.Domain{Name: name, OwnerID: ownerID, NotifyFrequency: model.DefaultNotifyFrequency()}
	return nil
}

func (f *fakeDomains) SetProject(_ context.Context, name, projectID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setProjectErr != nil {
		return f.setProjectErr
	}
	d, ok := f.rows[name]
	if !ok {
		return repository.ErrNotFound
	}
	d.ProjectID = strPtr(projectID)
	return nil
}

func (f *fakeDomains) SetVerified(_ context.Context, name string, verified bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.rows[name]; ok {
		d.Verified = verified
	}
	return nil
}

func (f *fakeDomains) UpdateNotifications(_ context.Context, name string, freq []model.NotifyFrequency, threshold *decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[name]
	if !ok {
		return repository.ErrNotFound
	}
	d.NotifyFrequency, d.NotifyThreshold = freq, threshold
	return nil
}

func (f *fakeDomains) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.rows[name]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, name)
	return nil
}

func (f *fakeDomains) ListByOwner(_ context.Context, ownerID string) ([]*model.Domain, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Domain
	for _, d := range f.rows {
		if d.OwnerID != nil && *d.OwnerID == ownerID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeOffers struct {
	rows      []*model.Offer
	deleteErr error
	deleted   []string
}

func (f *fakeOffers) Insert(_ context.Context, o *model.Offer) error {
	o.CreatedAt = time.Now()
	f.rows = append(f.rows, o)
	return nil
}

func (f *fakeOffers) ListByDomain(_ context.Context, domain string) ([]*model.Offer, error) {
	var out []*model.Offer
	for _, o := range f.rows {
		if o.DomainName == domain {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOffers) DeleteForOwner(_ context.Context, offerID, _ string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, offerID)
	return nil
}

// fakePurchases mimics the unique (customer, product, subscription) key.
type fakePurchases struct {
	mu        sync.Mutex
	rows      map[string]*model.Purchase
	upsertErr error
	upserts   int
}

func newFakePurchases() *fakePurchases {
	return &fakePurchases{rows: make(map[string]*model.Purchase)}
}

func purchaseKey(customerID string, product model.ProductType, subscriptionID string) string {
	return customerID + "|" + string(product) + "|" + subscriptionID
}

func (f *fakePurchases) Upsert(_ context.Context, p *model.Purchase) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	key := purchaseKey(p.CustomerID, p.ProductType, p.SubscriptionID)
	cp := *p
	if prev, ok := f.rows[key]; ok {
		cp.ID = prev.ID
		if cp.UserID == nil {
			cp.UserID = prev.UserID
		}
	}
	f.rows[key] = &cp
	return nil
}

func (f *fakePurchases) Find(_ context.Context, customerID string, product model.ProductType, subscriptionID string) (*model.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[purchaseKey(customerID, product, subscriptionID)]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakePurchases) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeProfiles struct {
	mu   sync.Mutex
	rows map[string]*model.Profile
}

func newFakeProfiles(rows ...*model.Profile) *fakeProfiles {
	f := &fakeProfiles{rows: make(map[string]*model.Profile)}
	for _, p := range rows {
		f.rows[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProfiles) UpdateSubscription(_ context.Context, id, status string, tier *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.SubscriptionStatus = &status
	if tier != nil {
		p.SubscriptionTier = tier
	}
	return nil
}

type fakeHosting struct {
	addFn    func(ctx context.Context, name string) (string, error)
	verified bool
	removed  []string
	added    []string
}

func (f *fakeHosting) AddDomain(ctx context.Context, name string) (string, error) {
	f.added = append(f.added, name)
	if f.addFn != nil {
		return f.addFn(ctx, name)
	}
	return "prj_1", nil
}

func (f *fakeHosting) RemoveDomain(_ context.Context, name string) error {
	f.removed = append(f.removed, name)
	return nil
}

func (f *fakeHosting) Verify(context.Context, string) (bool, error) { return f.verified, nil }

func (f *fakeHosting) Config(context.Context, string) (gateway.DomainConfig, error) {
	return gateway.DomainConfig{Misconfigured: !f.verified}, nil
}

type sentMail struct {
	to       string
	template string
	vars     map[string]any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, template string, vars map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, template: template, vars: vars})
	return nil
}

type fakeRegistrar struct {
	err   error
	calls []string
}

func (f *fakeRegistrar) Register(_ context.Context, name, _ string) error {
	f.calls = append(f.calls, name)
	return f.err
}

type fakeBilling struct {
	invoicePrices map[string]string
	subPrices     map[string]string
	emails        map[string]string
	err           error
}

func (f *fakeBilling) InvoicePriceID(_ context.Context, id string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.invoicePrices[id], nil
}

func (f *fakeBilling) SubscriptionPriceID(_ context.Context, id string) (string, error) {
	return f.subPrices[id], nil
}

func (f *fakeBilling) CustomerEmail(_ context.Context, id string) (string, error) {
	return f.emails[id], nil
}

type fakeCache struct {
	mu    sync.Mutex
	users []string
}

func (f *fakeCache) InvalidateUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	return nil
}

// heldLocker reports every key as locked.
type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string, time.Duration) (lock.Release, error) {
	return nil, lock.ErrLocked
}
