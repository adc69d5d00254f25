package subscription

import "errors"

var (
	ErrProfileNotFound  = errors.New("subscription profile not found")
	ErrInvalidPlanType  = errors.New("invalid subscription plan type")
	ErrInvalidStatus    = errors.New("invalid subscription status")
	ErrAlreadyFree      = errors.New("subscription plan is already free")
	ErrPlanNotInCatalog = errors.New("plan type not present in catalog")

	ErrInvalidCatalog     = errors.New("invalid plan catalog configuration")
	ErrFailedToLoadPlans  = errors.New("failed to load subscription plans")
	ErrFailedToSaveRecord = errors.New("failed to persist subscription record")
)
