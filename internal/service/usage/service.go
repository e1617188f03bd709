// Package usage tracks per-user monthly transform counts and enforces
// the free-tier quota.
package usage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"notivate/internal/models"
)

// FreeTierLimit is the number of transforms a free user gets per
// calendar month.
const FreeTierLimit = 5

// UnlimitedLimit marks a tier with no quota in CheckResult.Limit.
const UnlimitedLimit = -1

// CheckResult reports whether a transform may proceed and the counters
// the client needs to render quota state.
type CheckResult struct {
	Allowed      bool
	CurrentUsage int
	// Limit is UnlimitedLimit for premium callers.
	Limit int
}

// Accountant is the quota surface the transform pipeline depends on.
// Check failures must fail the caller (fail closed); Record failures
// are non-fatal by policy and only logged.
type Accountant interface {
	Check(ctx context.Context, userID string, tier models.Tier) (CheckResult, error)
	Record(ctx context.Context, userID string) error
}

// Service implements Accountant against the usage_tracking relation.
type Service struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New builds the accounting service for the given sql driver
// ("sqlite3" or "mysql").
func New(db *sql.DB, driver string) *Service {
	return &Service{db: db, driver: strings.ToLower(driver), now: time.Now}
}

// Check returns whether the user may run another transform this month.
// Premium users are never limited. A missing usage row counts as zero.
func (s *Service) Check(ctx context.Context, userID string, tier models.Tier) (CheckResult, error) {
	if userID == "" {
		return CheckResult{}, errors.New("user id is required")
	}
	if tier == models.TierPremium {
		return CheckResult{Allowed: true, Limit: UnlimitedLimit}, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT transforms_count FROM usage_tracking WHERE user_id = ? AND month = ?`,
		userID, s.monthKey(),
	).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return CheckResult{}, fmt.Errorf("load usage record: %w", err)
	}

	return CheckResult{
		Allowed:      count < FreeTierLimit,
		CurrentUsage: count,
		Limit:        FreeTierLimit,
	}, nil
}

// Record adds exactly one to the user's counter for the current month,
// creating the row with count 1 if absent. The increment is a single
// atomic upsert at the storage layer so concurrent transforms for the
// same user never lose updates.
func (s *Service) Record(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id is required")
	}

	var stmt string
	switch s.driver {
	case "sqlite", "sqlite3":
		stmt = `INSERT INTO usage_tracking (user_id, month, transforms_count) VALUES (?, ?, 1)
			ON CONFLICT(user_id, month) DO UPDATE SET transforms_count = transforms_count + 1`
	case "mysql":
		stmt = `INSERT INTO usage_tracking (user_id, month, transforms_count) VALUES (?, ?, 1)
			ON DUPLICATE KEY UPDATE transforms_count = transforms_count + 1`
	default:
		return fmt.Errorf("unsupported driver: %s", s.driver)
	}

	if _, err := s.db.ExecContext(ctx, stmt, userID, s.monthKey()); err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	return nil
}

// Current reports the stored record for the user's current month. A
// missing row yields a zero-count record, not an error.
func (s *Service) Current(ctx context.Context, userID string) (*models.UsageRecord, error) {
	rec := &models.UsageRecord{UserID: userID, Month: s.monthKey()}
	err := s.db.QueryRowContext(ctx,
		`SELECT transforms_count FROM usage_tracking WHERE user_id = ? AND month = ?`,
		userID, rec.Month,
	).Scan(&rec.TransformsCount)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load usage record: %w", err)
	}
	return rec, nil
}

// monthKey formats the current calendar month as YYYY-MM in UTC.
func (s *Service) monthKey() string {
	return s.now().UTC().Format("2006-01")
}
