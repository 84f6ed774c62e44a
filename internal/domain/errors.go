package domain

import "errors"

// Sentinel errors for the messaging subsystem. Handlers map these onto
// HTTP status codes; services wrap them with context via fmt.Errorf and %w.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidMessage   = errors.New("message needs content or an attachment")
	ErrInvalidThread    = errors.New("invalid thread parent")
	ErrUploadFailed     = errors.New("attachment upload failed")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrSubscriptionLost = errors.New("subscription lost")
)
