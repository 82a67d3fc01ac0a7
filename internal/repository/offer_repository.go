package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/domain-marketplace/internal/model"
)

// OfferRepo encapsulates queries against the domain_offers table.
type OfferRepo struct {
	db *sql.DB
}

// NewOfferRepo constructs an OfferRepo with the provided DB handle.
func NewOfferRepo(db *sql.DB) *OfferRepo {
	return &OfferRepo{db: db}
}

// Insert stores a new offer.  ID and Token must already be set; CreatedAt is
// filled from the database after the insert.
func (r *OfferRepo) Insert(ctx context.Context, o *model.Offer) error {
	const q = `INSERT INTO domain_offers (id, domain_name, email, amount, description, token, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())`
	if _, err := r.db.ExecContext(ctx, q, o.ID, o.DomainName, o.Email, o.Amount, o.Description, o.Token); err != nil {
		return errors.Wrap(err, "insert offer")
	}
	const qSelect = `SELECT created_at FROM domain_offers WHERE id = ?`
	if err := r.db.QueryRowContext(ctx, qSelect, o.ID).Scan(&o.CreatedAt); err != nil {
		return errors.Wrap(err, "reload offer")
	}
	return nil
}

// ListByDomain returns all offers on a domain, highest amount first.
func (r *OfferRepo) ListByDomain(ctx context.Context, domain string) ([]*model.Offer, error) {
	const q = `SELECT id, domain_name, email, amount, description, token, created_at
	           FROM domain_offers WHERE domain_name = ? ORDER BY amount DESC, created_at`
	rows, err := r.db.QueryContext(ctx, q, domain)
	if err != nil {
		return nil, errors.Wrap(err, "list offers")
	}
	defer rows.Close()

	out := make([]*model.Offer, 0)
	for rows.Next() {
		o := new(model.Offer)
		var desc sql.NullString
		if err := rows.Scan(&o.ID, &o.DomainName, &o.Email, &o.Amount, &desc, &o.Token, &o.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan offer")
		}
		o.Description = desc.String
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list offers")
	}
	return out, nil
}

// DeleteForOwner removes a single offer provided the domain it was made on
// belongs to ownerID.  It returns ErrNotFound when the offer does not exist
// and ErrForbidden when the domain is owned by someone else.
func (r *OfferRepo) DeleteForOwner(ctx context.Context, offerID, ownerID string) error {
	const qOwner = `SELECT d.owner_id FROM domain_offers o
	                JOIN domains d ON d.name = o.domain_name
	                WHERE o.id = ?`
	var owner sql.NullString
	if err := r.db.QueryRowContext(ctx, qOwner, offerID).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return errors.Wrap(err, "lookup offer owner")
	}
	if !owner.Valid || owner.String != ownerID {
		return ErrForbidden
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM domain_offers WHERE id = ?`, offerID); err != nil {
		return errors.Wrap(err, "delete offer")
	}
	return nil
}
