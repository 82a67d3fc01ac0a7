package repository

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/iliyamo/domain-marketplace/internal/model"
)

// PurchaseRepo persists billing state derived from payment events.
type PurchaseRepo struct {
	db *sql.DB
}

// NewPurchaseRepo constructs a PurchaseRepo with the provided DB handle.
func NewPurchaseRepo(db *sql.DB) *PurchaseRepo {
	return &PurchaseRepo{db: db}
}

// Upsert inserts the purchase or updates the existing row with the same
// (customer_id, product_type, subscription_id) key.  Replaying the same
// purchase leaves exactly one row with the same content.  The row id is
// only used on insert; an existing row keeps its id.
func (r *PurchaseRepo) Upsert(ctx context.Context, p *model.Purchase) error {
	meta, err := marshalMetadata(p.Metadata)
	if err != nil {
		return errors.Wrap(err, "encode purchase metadata")
	}
	const q = `INSERT INTO purchases
	             (id, email, user_id, product_type, tier, status, customer_id, subscription_id, expires_at, metadata, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, UTC_TIMESTAMP())
	           ON DUPLICATE KEY UPDATE
	             email = VALUES(email),
	             user_id = COALESCE(VALUES(user_id), user_id),
	             tier = VALUES(tier),
	             status = VALUES(status),
	             expires_at = VALUES(expires_at),
	             metadata = VALUES(metadata),
	             updated_at = UTC_TIMESTAMP()`
	var expires sql.NullTime
	if p.ExpiresAt != nil {
		expires = sql.NullTime{Time: p.ExpiresAt.UTC(), Valid: true}
	}
	_, err = r.db.ExecContext(ctx, q,
		p.ID, p.Email, nullString(p.UserID), p.ProductType, nullString(p.Tier), p.Status,
		p.CustomerID, p.SubscriptionID, expires, meta)
	return errors.Wrap(err, "upsert purchase")
}

const purchaseColumns = `id, email, user_id, product_type, tier, status, customer_id, subscription_id, expires_at, metadata, updated_at`

func scanPurchase(s rowScanner) (*model.Purchase, error) {
	var (
		p       model.Purchase
		user    sql.NullString
		tier    sql.NullString
		expires sql.NullTime
		meta    []byte
	)
	if err := s.Scan(&p.ID, &p.Email, &user, &p.ProductType, &tier, &p.Status,
		&p.CustomerID, &p.SubscriptionID, &expires, &meta, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.UserID = stringPtr(user)
	p.Tier = stringPtr(tier)
	if expires.Valid {
		t := expires.Time
		p.ExpiresAt = &t
	}
	m, err := unmarshalMetadata(meta)
	if err != nil {
		return nil, errors.Wrap(err, "decode purchase metadata")
	}
	p.Metadata = m
	return &p, nil
}

// Find returns the purchase stored under the upsert key.  One-time
// purchases use an empty subscriptionID.
func (r *PurchaseRepo) Find(ctx context.Context, customerID string, product model.ProductType, subscriptionID string) (*model.Purchase, error) {
	q := "SELECT " + purchaseColumns + " FROM purchases WHERE customer_id = ? AND product_type = ? AND subscription_id = ?"
	p, err := scanPurchase(r.db.QueryRowContext(ctx, q, customerID, product, subscriptionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "find purchase")
	}
	return p, nil
}
