package models

import "fmt"

// Tier names one physical storage backend participating in write-through.
type Tier string

const (
	TierPrimary   Tier = "primary"   // durable, structured
	TierBackup    Tier = "backup"    // durable, flat
	TierEmergency Tier = "emergency" // volatile, session-scoped
)

// TrustOrder lists tiers from most to least trusted for read reconciliation.
var TrustOrder = []Tier{TierPrimary, TierBackup, TierEmergency}

// Rank returns the position of t in TrustOrder, lower is more trusted.
// Unknown tiers rank after every known one.
func (t Tier) Rank() int {
	for i, known := range TrustOrder {
		if t == known {
			return i
		}
	}
	return len(TrustOrder)
}

// ParseTier converts s into a known Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if t.Rank() == len(TrustOrder) {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}
