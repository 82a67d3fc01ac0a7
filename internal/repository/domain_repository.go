package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/model"
)

// DomainRepo encapsulates all database queries related to domains.  Names
// passed in are expected to be normalized already.
type DomainRepo struct {
	db *sql.DB
}

// NewDomainRepo constructs a DomainRepo with the provided DB handle.
func NewDomainRepo(db *sql.DB) *DomainRepo {
	return &DomainRepo{db: db}
}

const domainColumns = `name, owner_id, verified, project_id, notify_frequency, notify_threshold, metadata, created_at`

func scanDomain(s rowScanner) (*model.Domain, error) {
	var (
		d         model.Domain
		owner     sql.NullString
		project   sql.NullString
		freq      []byte
		threshold decimal.NullDecimal
		meta      []byte
	)
	if err := s.Scan(&d.Name, &owner, &d.Verified, &project, &freq, &threshold, &meta, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.OwnerID = stringPtr(owner)
	d.ProjectID = stringPtr(project)
	if len(freq) > 0 {
		if err := json.Unmarshal(freq, &d.NotifyFrequency); err != nil {
			return nil, errors.Wrap(err, "decode notify_frequency")
		}
	}
	if threshold.Valid {
		t := threshold.Decimal
		d.NotifyThreshold = &t
	}
	m, err := unmarshalMetadata(meta)
	if err != nil {
		return nil, errors.Wrap(err, "decode domain metadata")
	}
	d.Metadata = m
	return &d, nil
}

// GetByName fetches a domain by its normalized name.  It returns
// ErrNotFound if no row exists.
func (r *DomainRepo) GetByName(ctx context.Context, name string) (*model.Domain, error) {
	q := "SELECT " + domainColumns + " FROM domains WHERE name = ?"
	d, err := scanDomain(r.db.QueryRowContext(ctx, q, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get domain")
	}
	return d, nil
}

// Insert creates a new unverified domain owned by ownerID with the default
// notification preferences.  A duplicate name yields ErrConflict.
func (r *DomainRepo) Insert(ctx context.Context, name, ownerID string) error {
	freq, err := json.Marshal(model.DefaultNotifyFrequency())
	if err != nil {
		return err
	}
	const q = `INSERT INTO domains (name, owner_id, verified, notify_frequency, created_at)
	           VALUES (?, ?, FALSE, ?, UTC_TIMESTAMP())`
	if _, err := r.db.ExecContext(ctx, q, name, ownerID, freq); err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return errors.Wrap(err, "insert domain")
	}
	return nil
}

// Reassign hands an existing domain to a new owner.  Verification is reset
// and the creation timestamp refreshed since the claim starts over.
func (r *DomainRepo) Reassign(ctx context.Context, name, ownerID string) error {
	const q = `UPDATE domains
	           SET owner_id = ?, verified = FALSE, created_at = UTC_TIMESTAMP()
	           WHERE name = ?`
	return r.execOne(ctx, "reassign domain", q, ownerID, name)
}

// Restore puts back the ownership fields Reassign overwrote.  A nil owner
// clears it.
func (r *DomainRepo) Restore(ctx context.Context, name string, ownerID *string, verified bool, createdAt time.Time) error {
	const q = `UPDATE domains SET owner_id = ?, verified = ?, created_at = ? WHERE name = ?`
	return r.execOne(ctx, "restore domain owner", q, nullString(ownerID), verified, createdAt.UTC(), name)
}

// Claim inserts the domain for ownerID or, when it already exists, takes it
// over.  It is used when a domain is bought through the service and must be
// idempotent under event redelivery.
func (r *DomainRepo) Claim(ctx context.Context, name string, ownerID *string) error {
	freq, err := json.Marshal(model.DefaultNotifyFrequency())
	if err != nil {
		return err
	}
	const q = `INSERT INTO domains (name, owner_id, verified, notify_frequency, created_at)
	           VALUES (?, ?, FALSE, ?, UTC_TIMESTAMP())
	           ON DUPLICATE KEY UPDATE owner_id = VALUES(owner_id)`
	if _, err := r.db.ExecContext(ctx, q, name, nullString(ownerID), freq); err != nil {
		return errors.Wrap(err, "claim domain")
	}
	return nil
}

// SetProject stores the hosting platform project the domain is attached to.
func (r *DomainRepo) SetProject(ctx context.Context, name, projectID string) error {
	const q = `UPDATE domains SET project_id = ? WHERE name = ?`
	return r.execOne(ctx, "set domain project", q, projectID, name)
}

// SetVerified records the outcome of a verification check.
func (r *DomainRepo) SetVerified(ctx context.Context, name string, verified bool) error {
	const q = `UPDATE domains SET verified = ? WHERE name = ?`
	_, err := r.db.ExecContext(ctx, q, verified, name)
	return errors.Wrap(err, "set domain verified")
}

// UpdateNotifications replaces the notification preferences of a domain.
// The caller is responsible for keeping the frequency set non-empty.
func (r *DomainRepo) UpdateNotifications(ctx context.Context, name string, freq []model.NotifyFrequency, threshold *decimal.Decimal) error {
	raw, err := json.Marshal(freq)
	if err != nil {
		return err
	}
	var th decimal.NullDecimal
	if threshold != nil {
		th = decimal.NewNullDecimal(*threshold)
	}
	const q = `UPDATE domains SET notify_frequency = ?, notify_threshold = ? WHERE name = ?`
	_, err = r.db.ExecContext(ctx, q, raw, th, name)
	return errors.Wrap(err, "update domain notifications")
}

// Delete removes a domain.  Offers referencing it are removed by the
// foreign key cascade.
func (r *DomainRepo) Delete(ctx context.Context, name string) error {
	const q = `DELETE FROM domains WHERE name = ?`
	return r.execOne(ctx, "delete domain", q, name)
}

// ListByOwner returns all domains of an owner, newest first.
func (r *DomainRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Domain, error) {
	q := "SELECT " + domainColumns + " FROM domains WHERE owner_id = ? ORDER BY created_at DESC, name"
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "list domains")
	}
	defer rows.Close()

	out := make([]*model.Domain, 0)
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan domain")
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list domains")
	}
	return out, nil
}

// execOne runs a statement that must touch exactly one row; zero affected
// rows are reported as ErrNotFound.
func (r *DomainRepo) execOne(ctx context.Context, op, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, op)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
