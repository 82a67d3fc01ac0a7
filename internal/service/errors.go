package service

import "errors"

// Errors surfaced by the services.  Handlers map them to HTTP statuses in
// one place; utils.ErrInvalidDomainFormat is surfaced unchanged.
var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrDomainBusy           = errors.New("domain is being onboarded by another request")
	ErrRegistrationConflict = errors.New("domain is already in use by another project")
	ErrRegistrationFailed   = errors.New("domain registration with the hosting platform failed")
	ErrExternalService      = errors.New("external service call failed")
	ErrPersistence          = errors.New("persistence failed")
)
