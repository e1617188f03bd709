package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"notivate/internal/models"
	"notivate/internal/redis"
)

const identityCacheTTL = time.Minute

// Service resolves bearer tokens to an Identity: verification is
// delegated to the external provider, the subscription tier comes from
// the user_profiles table, and verified subjects are cached in redis
// for a short window.
type Service struct {
	db       *sql.DB
	cache    *redis.Client
	verifier Verifier
}

// NewService constructs an auth service. cache may be nil.
func NewService(db *sql.DB, cache *redis.Client, verifier Verifier) *Service {
	return &Service{db: db, cache: cache, verifier: verifier}
}

type cachedSubject struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Authenticate resolves a bearer token to a full Identity.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	userID, email, ok := s.cachedVerify(ctx, token)
	if !ok {
		var err error
		userID, email, err = s.verifier.Verify(ctx, token)
		if err != nil {
			return nil, err
		}
		s.cacheVerify(ctx, token, userID, email)
	}

	profile, err := s.ensureProfile(ctx, userID, email)
	if err != nil {
		return nil, err
	}
	return &models.Identity{UserID: profile.ID, Email: profile.Email, Tier: profile.Tier}, nil
}

// ensureProfile loads the stored profile, provisioning a free-tier row
// the first time a verified user is seen.
func (s *Service) ensureProfile(ctx context.Context, userID, email string) (*models.Profile, error) {
	var p models.Profile
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, subscription_tier, created_at FROM user_profiles WHERE id = ?`, userID,
	).Scan(&p.ID, &p.Email, &p.Tier, &p.CreatedAt)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_profiles (id, email, subscription_tier, created_at) VALUES (?, ?, ?, ?)`,
		userID, email, models.TierFree, now,
	); err != nil {
		// Lost a race with a concurrent first request for the same user.
		err2 := s.db.QueryRowContext(ctx,
			`SELECT id, email, subscription_tier, created_at FROM user_profiles WHERE id = ?`, userID,
		).Scan(&p.ID, &p.Email, &p.Tier, &p.CreatedAt)
		if err2 != nil {
			return nil, fmt.Errorf("provision profile: %w", err)
		}
		return &p, nil
	}
	return &models.Profile{ID: userID, Email: email, Tier: models.TierFree, CreatedAt: now}, nil
}

func (s *Service) cachedVerify(ctx context.Context, token string) (string, string, bool) {
	raw, err := s.cache.Get(ctx, identityCacheKey(token))
	if err != nil {
		return "", "", false
	}
	var sub cachedSubject
	if err := json.Unmarshal([]byte(raw), &sub); err != nil || sub.UserID == "" {
		return "", "", false
	}
	return sub.UserID, sub.Email, true
}

func (s *Service) cacheVerify(ctx context.Context, token, userID, email string) {
	raw, err := json.Marshal(cachedSubject{UserID: userID, Email: email})
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, identityCacheKey(token), string(raw), identityCacheTTL)
}

func identityCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "ident:" + hex.EncodeToString(sum[:])
}
