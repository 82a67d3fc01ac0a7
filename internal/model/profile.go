package model

import "time"

// Profile is the user-facing subscription state kept in sync with the
// purchase rows of the same user.
type Profile struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	SubscriptionStatus *string   `json:"subscription_status,omitempty"`
	SubscriptionTier   *string   `json:"subscription_tier,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}
