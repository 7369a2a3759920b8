package identity

import "errors"

var (
	// ErrDuplicateCanonicalEmail is returned by Create when another identity
	// already claims the normalized email as canonical and enforcement is on
	ErrDuplicateCanonicalEmail = errors.New("canonical email already registered")

	// ErrIdentityNotFound is returned when a referenced identity is not in
	// the registry, e.g. it was absorbed by a concurrent merge
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidInput is returned by boundary checks for empty or
	// whitespace-only required fields; normalization itself never fails
	ErrInvalidInput = errors.New("invalid input")
)
