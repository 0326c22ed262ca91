package model

import (
	"strings"
	"time"
)

// AccountIDPrefix marks a key as an upstream account ID rather than a username
const AccountIDPrefix = "t2_"

// IdentifierSpace says which upstream lookup a registered key needs
type IdentifierSpace int

const (
	// IdentifierSpaceAccountID keys are opaque account IDs (looked up by ID)
	IdentifierSpaceAccountID IdentifierSpace = iota
	// IdentifierSpaceUsername keys are display names (looked up by name)
	IdentifierSpaceUsername
)

// String returns a short label for logs and metrics
func (s IdentifierSpace) String() string {
	switch s {
	case IdentifierSpaceAccountID:
		return "account_id"
	case IdentifierSpaceUsername:
		return "username"
	default:
		return "unknown"
	}
}

// ClassifyIdentifier decides the identifier space from the key's literal form.
// The two spaces are never merged or normalized into one another.
func ClassifyIdentifier(key string) IdentifierSpace {
	if strings.HasPrefix(key, AccountIDPrefix) {
		return IdentifierSpaceAccountID
	}
	return IdentifierSpaceUsername
}

// NormalizeIdentifier trims surrounding whitespace from a key so registrations and
// level owners compare equal. Returns ErrInvalidIdentifier for a blank key.
func NormalizeIdentifier(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrInvalidIdentifier
	}
	return key, nil
}

// IsAccountID reports whether key belongs to the account ID space
func IsAccountID(key string) bool {
	return ClassifyIdentifier(key) == IdentifierSpaceAccountID
}

// RegisteredIdentifier is a key being monitored for upstream deletion.
// LastCheckedAt doubles as the registration time until the first re-check.
type RegisteredIdentifier struct {
	Key           string
	LastCheckedAt time.Time
}

// Space returns the identifier space of the key
func (r RegisteredIdentifier) Space() IdentifierSpace {
	return ClassifyIdentifier(r.Key)
}

// ScoreFromTime converts a time to the ms-since-epoch score used by the store
func ScoreFromTime(t time.Time) int64 {
	return t.UnixMilli()
}

// TimeFromScore converts a stored ms-since-epoch score back to a time
func TimeFromScore(score int64) time.Time {
	return time.UnixMilli(score).UTC()
}
