package service

import (
	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/model"
)

// ShouldNotify decides whether an offer of amount triggers an immediate
// owner notification.  An empty preference set never notifies; a threshold,
// when set, must be met.  Digest preferences (daily, weekly) do not suppress
// the immediate decision; batching them is not done here.
func ShouldNotify(freq []model.NotifyFrequency, threshold *decimal.Decimal, amount decimal.Decimal) bool {
	if len(freq) == 0 {
		return false
	}
	if threshold != nil && amount.LessThan(*threshold) {
		return false
	}
	return true
}
