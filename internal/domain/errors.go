package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking
// infrastructure details.
var (
	// ErrValidation covers malformed or mismatched input, e.g. password
	// confirmation not matching the password.
	ErrValidation = errors.New("validation failed")
	// ErrConflict means the email is already registered.
	ErrConflict = errors.New("conflict")
	// ErrInvalidOrExpired is the single answer for every OTP verification
	// failure: unknown code, wrong code, consumed code, expired code.
	ErrInvalidOrExpired = errors.New("invalid or expired OTP")
	// ErrInvalidCredentials is returned for login failures. Unknown email and
	// wrong password produce the same error so accounts cannot be enumerated.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthorized means a missing, invalid or expired bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDependency means a backing store or the mail channel was unreachable.
	ErrDependency = errors.New("dependency failure")
)
