package content

import "errors"

var (
	// ErrNoTiers is returned when a store is created without any storage tier
	ErrNoTiers = errors.New("no storage tiers configured")
	// ErrAllTiersFailed is returned when a write-through reached no tier at all
	ErrAllTiersFailed = errors.New("all storage tiers failed")
	// ErrInvalidChange is returned for a change without a field name
	ErrInvalidChange = errors.New("invalid field change")
)
