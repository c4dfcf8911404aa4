package database

import "strings"

// AccountID represents the handle the identity layer uses for an account.
// The ledger treats it as opaque and has no notion of ownership.
type AccountID string

// ToAccountID converts a string to an account and validates the value
// isn't empty.
func ToAccountID(s string) (AccountID, error) {
	a := AccountID(strings.TrimSpace(s))
	if !a.IsAccountID() {
		return "", ErrInvalidAccount
	}

	return a, nil
}

// IsAccountID verifies the underlying data can be used as an account.
func (a AccountID) IsAccountID() bool {
	return strings.TrimSpace(string(a)) != ""
}
