package domain

import "errors"

// Domain errors.
var (
	ErrListingNotFound        = errors.New("listing not found")
	ErrInvalidRule            = errors.New("invalid recurrence rule")
	ErrConfiguration          = errors.New("invalid configuration")
	ErrConcurrentModification = errors.New("listing was modified concurrently")
	ErrClaimHeld              = errors.New("listing is claimed by another sweep")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrListingNotFound, "listing_not_found"},
	{ErrInvalidRule, "invalid_rule"},
	{ErrConfiguration, "configuration"},
	{ErrConcurrentModification, "concurrent_modification"},
	{ErrClaimHeld, "claim_held"},
}

// Code returns the stable code of the domain error wrapped by err, or "" when
// err does not wrap one.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
