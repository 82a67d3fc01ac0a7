package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// NotifyFrequency is one entry of a domain's notification preference set.
type NotifyFrequency string

const (
	FrequencyDaily    NotifyFrequency = "daily"
	FrequencyWeekly   NotifyFrequency = "weekly"
	FrequencyOnDemand NotifyFrequency = "on_demand"
	FrequencyNever    NotifyFrequency = "never"
)

// Valid reports whether f is one of the known frequencies.
func (f NotifyFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyOnDemand, FrequencyNever:
		return true
	}
	return false
}

// DefaultNotifyFrequency is stored for newly onboarded domains.
func DefaultNotifyFrequency() []NotifyFrequency {
	return []NotifyFrequency{FrequencyOnDemand}
}

// Domain mirrors a row of the `domains` table.  Name is the normalized
// domain name and the primary key; OwnerID is nil for domains that were
// listed before an owner claimed them.
//
// Fields:
//
//	Name            – normalized name (no scheme, no www., no path).
//	OwnerID         – external auth user id of the owner (nullable).
//	Verified        – whether the hosting platform confirmed DNS ownership.
//	ProjectID       – hosting platform project the domain is attached to (nullable).
//	NotifyFrequency – non-empty set of notification preferences.
//	NotifyThreshold – minimum offer amount that triggers a notification (nullable).
//	Metadata        – free-form JSON.
//	CreatedAt       – refreshed whenever ownership is (re)assigned.
type Domain struct {
	Name            string            `json:"name"`
	OwnerID         *string           `json:"owner_id,omitempty"`
	Verified        bool              `json:"verified"`
	ProjectID       *string           `json:"project_id,omitempty"`
	NotifyFrequency []NotifyFrequency `json:"notify_frequency"`
	NotifyThreshold *decimal.Decimal  `json:"notify_threshold,omitempty"`
	Metadata        map[string]any    `json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// OwnedBy reports whether userID is the current owner of the domain.
func (d Domain) OwnedBy(userID string) bool {
	return d.OwnerID != nil && userID != "" && *d.OwnerID == userID
}
