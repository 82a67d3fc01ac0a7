package utils

import "github.com/google/uuid"

// NewID returns a random identifier used for primary keys of rows created by
// this service.
func NewID() string {
	return uuid.NewString()
}

// NewOpaqueToken returns an unguessable reference handed out to clients, for
// example the token returned to a bidder after submitting an offer.
func NewOpaqueToken() string {
	return uuid.NewString()
}
