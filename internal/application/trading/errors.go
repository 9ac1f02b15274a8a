package trading

import "errors"

var (
	ErrInvalidShares        = errors.New("sharesToBuy must be a positive whole number")
	ErrInvalidPrice         = errors.New("transactionPrice must be zero or positive")
	ErrSameAccount          = errors.New("Cannot transfer shares to the same account")
	ErrPropertyNotFound     = errors.New("Property not found")
	ErrAccountNotFound      = errors.New("User not found")
	ErrPropertyUnavailable  = errors.New("Property is not open for purchase")
	ErrInsufficientSupply   = errors.New("Not enough shares available")
	ErrCapExceeded          = errors.New("Purchase exceeds the per-user share cap")
	ErrInsufficientFunds    = errors.New("Insufficient funds")
	ErrInsufficientShares   = errors.New("Insufficient shares to transfer")
	ErrIdempotencyKeyReused = errors.New("Idempotency key was already used for a different request")
)
