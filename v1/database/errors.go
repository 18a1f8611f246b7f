package database

import "errors"

var (
	ErrNotConnected = errors.New("database client is not initialized")

	// ErrUnknownDriver is returned for a Connection.Driver other than
	// DriverPQ or DriverPGX.
	ErrUnknownDriver = errors.New("unknown database driver")
)
