package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/domain-marketplace/internal/model"
)

func TestOfferRepo_Insert(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOfferRepo(db)
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	o := &model.Offer{ID: "o-1", DomainName: "example.com", Email: "bidder@x.io", Amount: decimal.NewFromInt(1500), Token: "tok"}

	mock.ExpectExec("INSERT INTO domain_offers").
		WithArgs("o-1", "example.com", "bidder@x.io", sqlmock.AnyArg(), "", "tok").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT created_at FROM domain_offers WHERE id = \\?").
		WithArgs("o-1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, repo.Insert(context.Background(), o))
	require.Equal(t, created, o.CreatedAt)
}

func TestOfferRepo_DeleteForOwner(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "owner deletes",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT d.owner_id FROM domain_offers").WithArgs("o-1").
					WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("user-a"))
				m.ExpectExec("DELETE FROM domain_offers WHERE id = \\?").WithArgs("o-1").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "other owner",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT d.owner_id FROM domain_offers").WithArgs("o-1").
					WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow("user-b"))
			},
			wantErr: ErrForbidden,
		},
		{
			name: "missing offer",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT d.owner_id FROM domain_offers").WithArgs("o-1").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			tc.setup(mock)
			err := NewOfferRepo(db).DeleteForOwner(context.Background(), "o-1", "user-a")
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
