package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer mirrors the `domain_offers` table: a visitor's bid on a listed
// domain.  Amount is always positive; Token is an opaque reference handed
// back to the bidder.
type Offer struct {
	ID          string          `json:"id"`
	DomainName  string          `json:"domain"`
	Email       string          `json:"email"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	Token       string          `json:"token,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// maxOfferAmount is the first value a DECIMAL(12,2) column cannot hold.
var maxOfferAmount = decimal.New(1, 10)

// ValidOfferAmount reports whether amount is positive, has at most two
// fractional digits and fits the amount column.
func ValidOfferAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() &&
		amount.Equal(amount.Truncate(2)) &&
		amount.LessThan(maxOfferAmount)
}
