package domain

import "errors"

var (
	// ErrDuplicateUser is returned when registering a username that already exists.
	ErrDuplicateUser = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated means the request carries no valid session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the caller is authenticated but may not touch the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a record or blob does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStoreUnavailable wraps database and filesystem failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrInvalidInput is returned for rejected user input.
	ErrInvalidInput = errors.New("invalid input")
)
