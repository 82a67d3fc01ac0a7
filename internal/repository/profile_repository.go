package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/domain-marketplace/internal/model"
)

// ProfileRepo reads profiles owned by the auth backend and maintains the
// denormalized subscription columns on them.
type ProfileRepo struct {
	db *sql.DB
}

// NewProfileRepo constructs a ProfileRepo with the provided DB handle.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `id, email, subscription_status, subscription_tier, updated_at`

func (r *ProfileRepo) getOne(ctx context.Context, q string, arg any) (*model.Profile, error) {
	var (
		p      model.Profile
		status sql.NullString
		tier   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&p.ID, &p.Email, &status, &tier, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get profile")
	}
	p.SubscriptionStatus = stringPtr(status)
	p.SubscriptionTier = stringPtr(tier)
	return &p, nil
}

// GetByID returns the profile of a user.
func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return r.getOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
}

// GetByEmail returns the profile registered with email.
func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	return r.getOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE email = ?", email)
}

// UpdateSubscription mirrors billing state onto a profile.  A nil tier keeps
// the stored tier unchanged.  Missing profiles are reported as ErrNotFound.
func (r *ProfileRepo) UpdateSubscription(ctx context.Context, id, status string, tier *string) error {
	const q = `UPDATE profiles
	           SET subscription_status = ?, subscription_tier = COALESCE(?, subscription_tier), updated_at = UTC_TIMESTAMP()
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, status, nullString(tier), id)
	if err != nil {
		return errors.Wrap(err, "update profile subscription")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
