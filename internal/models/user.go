package models

import "time"

// Tier is a subscription tier attached to a user profile.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Identity is the authenticated caller, resolved by the identity
// provider and threaded explicitly through the request.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Tier   Tier   `json:"subscription_tier"`
}

// Premium reports whether the caller is exempt from usage quotas.
func (i *Identity) Premium() bool {
	return i != nil && i.Tier == TierPremium
}

// Profile is the stored per-user record backing Identity.Tier.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Tier      Tier      `json:"subscription_tier"`
	CreatedAt time.Time `json:"created_at"`
}
