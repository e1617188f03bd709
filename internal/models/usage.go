package models

// UsageRecord counts completed transforms for one user in one
// calendar month. Month is formatted YYYY-MM in UTC.
type UsageRecord struct {
	UserID          string `json:"user_id"`
	Month           string `json:"month"`
	TransformsCount int    `json:"transforms_count"`
}
