package auth

import "errors"

var (
	ErrMissingFields         = errors.New("Missing required fields")
	ErrEmailPasswordRequired = errors.New("Missing email or password")
	ErrInvalidEmail          = errors.New("Invalid email format")
	ErrWeakPassword          = errors.New("Password must be at least 8 characters and contain a letter and a number")
	ErrInvalidName           = errors.New("Names may only contain letters, spaces, hyphens and apostrophes")
	ErrRoleNotAllowed        = errors.New("userType must be investor or homeowner")
	ErrUserExists            = errors.New("User already exists")
	ErrInvalidCredentials    = errors.New("Invalid credentials")
	ErrNotAuthenticated      = errors.New("Not authenticated")
	ErrUserNotFound          = errors.New("User not found")
)
