package model

import "errors"

// Common errors used across the application
var (
	// Registration errors
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// Level errors
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")

	// Deletion check errors
	ErrRunInProgress = errors.New("deletion check run already in progress")
)
