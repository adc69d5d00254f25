package billing

import "errors"

var (
	ErrInvalidConfig       = errors.New("billing.errors.invalid_config")
	ErrCheckoutFailed      = errors.New("billing.errors.checkout_failed")
	ErrSessionNotFound     = errors.New("billing.errors.session_not_found")
	ErrCancelFailed        = errors.New("billing.errors.cancel_failed")
	ErrInvalidSignature    = errors.New("billing.errors.invalid_signature")
	ErrUnsupportedProvider = errors.New("billing.errors.unsupported_provider")
)
