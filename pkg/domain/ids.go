// Package domain holds the typed identifiers shared across services. The
// wrappers exist so a profile id can never be passed where a principal id is
// expected; conversions are explicit at trust boundaries via the Parse
// functions.
package domain

import (
	"strconv"

	dErrors "member-vault/pkg/domain-errors"
)

// UserID identifies an authenticated principal. Principals live in the
// external identity collaborator; this service only reads them.
type UserID int64

// ProfileID identifies the ownership anchor record linking a principal to
// its owned data.
type ProfileID int64

func (id UserID) Int64() int64     { return int64(id) }
func (id UserID) String() string   { return strconv.FormatInt(int64(id), 10) }
func (id ProfileID) Int64() int64  { return int64(id) }
func (id ProfileID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseUserID validates a principal identifier from an untrusted source.
// IDs must be positive integers.
func ParseUserID(raw string) (UserID, error) {
	n, err := parsePositive(raw)
	if err != nil {
		return 0, err
	}
	return UserID(n), nil
}

// ParseProfileID validates a profile identifier from an untrusted source.
func ParseProfileID(raw string) (ProfileID, error) {
	n, err := parsePositive(raw)
	if err != nil {
		return 0, err
	}
	return ProfileID(n), nil
}

// ParseRecordID validates a record identifier taken from a route segment or
// payload. Anything that is not a positive integer is rejected; the
// identifier grammar for indirection tokens is handled upstream.
func ParseRecordID(raw string) (int64, error) {
	return parsePositive(raw)
}

func parsePositive(raw string) (int64, error) {
	if raw == "" {
		return 0, dErrors.New(dErrors.CodeBadRequest, "identifier must not be empty")
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "identifier must be a positive integer")
	}
	return n, nil
}
