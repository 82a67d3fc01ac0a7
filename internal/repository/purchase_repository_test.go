package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/domain-marketplace/internal/model"
)

func TestPurchaseRepo_UpsertUsesUniqueKey(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPurchaseRepo(db)
	tier := "pro"
	user := "user-a"
	p := &model.Purchase{
		ID: "p-1", Email: "a@x.io", UserID: &user, ProductType: model.ProductSubscription,
		Tier: &tier, Status: model.PurchaseActive, CustomerID: "cus_1", SubscriptionID: "sub_1",
	}

	for i := 0; i < 2; i++ {
		mock.ExpectExec("INSERT INTO purchases .* ON DUPLICATE KEY UPDATE").
			WithArgs("p-1", "a@x.io", sqlmock.AnyArg(), model.ProductSubscription, sqlmock.AnyArg(),
				model.PurchaseActive, "cus_1", "sub_1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	require.NoError(t, repo.Upsert(context.Background(), p))
	require.NoError(t, repo.Upsert(context.Background(), p))
}

func TestPurchaseRepo_Find(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPurchaseRepo(db)
	exp := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{"id", "email", "user_id", "product_type", "tier", "status", "customer_id", "subscription_id", "expires_at", "metadata", "updated_at"}
	mock.ExpectQuery("SELECT .* FROM purchases WHERE customer_id = \\? AND product_type = \\? AND subscription_id = \\?").
		WithArgs("cus_1", model.ProductSubscription, "sub_1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p-1", "a@x.io", nil, "subscription", "pro", "active", "cus_1", "sub_1", exp, nil, exp))

	p, err := repo.Find(context.Background(), "cus_1", model.ProductSubscription, "sub_1")
	require.NoError(t, err)
	require.Nil(t, p.UserID)
	require.Equal(t, "pro", *p.Tier)
	require.Equal(t, model.PurchaseActive, p.Status)
	require.Equal(t, exp, *p.ExpiresAt)
}

func TestPurchaseRepo_FindMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT .* FROM purchases").
		WithArgs("cus_1", model.ProductTemplate, "").
		WillReturnError(sql.ErrNoRows)

	_, err := NewPurchaseRepo(db).Find(context.Background(), "cus_1", model.ProductTemplate, "")
	require.ErrorIs(t, err, ErrNotFound)
}
