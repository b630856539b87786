package store

import "errors"

var (
	// ErrOrderNotFound indicates no order exists for the given id, or no open
	// order matched a user/configuration lookup.
	ErrOrderNotFound = errors.New("store: order not found")
	// ErrConfigurationNotFound indicates no configuration exists for the id.
	ErrConfigurationNotFound = errors.New("store: configuration not found")
	// ErrAlreadySettled indicates the order exists but was already paid.
	ErrAlreadySettled = errors.New("store: order already settled")
	// ErrInvalidID indicates an identifier that is not a UUID.
	ErrInvalidID = errors.New("store: invalid id")
)
