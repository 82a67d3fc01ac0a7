package model

import "time"

// ProductType distinguishes what a purchase row bills for.
type ProductType string

const (
	ProductSubscription   ProductType = "subscription"
	ProductTemplate       ProductType = "template"
	ProductDomainPurchase ProductType = "domain_purchase"
)

// PurchaseStatus is the billing state of a purchase row.
type PurchaseStatus string

const (
	PurchaseActive              PurchaseStatus = "active"
	PurchaseCancelled           PurchaseStatus = "cancelled"
	PurchasePendingCancellation PurchaseStatus = "pending_cancellation"
	PurchaseCompleted           PurchaseStatus = "completed"
	PurchaseFailed              PurchaseStatus = "failed"
)

// Purchase mirrors the `purchases` table.  Rows are identified for upsert
// purposes by (CustomerID, ProductType, SubscriptionID); one-time purchases
// carry their checkout session id in SubscriptionID.
type Purchase struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	UserID         *string        `json:"user_id,omitempty"`
	ProductType    ProductType    `json:"product_type"`
	Tier           *string        `json:"tier,omitempty"`
	Status         PurchaseStatus `json:"status"`
	CustomerID     string         `json:"customer_id"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
