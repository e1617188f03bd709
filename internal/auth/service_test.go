package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"

	"notivate/internal/models"
	"notivate/internal/storage"
)

type stubVerifier struct {
	subjects map[string]string
	calls    int
}

func (v *stubVerifier) Verify(ctx context.Context, token string) (string, string, error) {
	v.calls++
	userID, ok := v.subjects[token]
	if !ok {
		return "", "", ErrInvalidToken
	}
	return userID, userID + "@example.com", nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAuthenticateProvisionsFreeProfile(t *testing.T) {
	db := newTestDB(t)
	verifier := &stubVerifier{subjects: map[string]string{"tok": "user-1"}}
	svc := NewService(db, nil, verifier)

	identity, err := svc.Authenticate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.UserID != "user-1" || identity.Tier != models.TierFree {
		t.Fatalf("identity = %+v", identity)
	}

	var tier models.Tier
	if err := db.QueryRow(`SELECT subscription_tier FROM user_profiles WHERE id = ?`, "user-1").Scan(&tier); err != nil {
		t.Fatalf("profile row missing: %v", err)
	}
	if tier != models.TierFree {
		t.Fatalf("provisioned tier = %q", tier)
	}

	// A second authentication reuses the stored profile.
	again, err := svc.Authenticate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("second authenticate: %v", err)
	}
	if again.UserID != "user-1" {
		t.Fatalf("second identity = %+v", again)
	}
}

func TestAuthenticateKeepsStoredTier(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Exec(
		`INSERT INTO user_profiles (id, email, subscription_tier, created_at) VALUES (?, ?, ?, ?)`,
		"user-p", "user-p@example.com", models.TierPremium, time.Now().UTC(),
	); err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	verifier := &stubVerifier{subjects: map[string]string{"tok": "user-p"}}
	svc := NewService(db, nil, verifier)

	identity, err := svc.Authenticate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.Tier != models.TierPremium {
		t.Fatalf("tier = %q, want premium", identity.Tier)
	}
}

func TestAuthenticateRejectsUnknownToken(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db, nil, &stubVerifier{subjects: map[string]string{}})

	if _, err := svc.Authenticate(context.Background(), "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.Authenticate(context.Background(), ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("empty token err = %v, want ErrInvalidToken", err)
	}
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	svc := NewService(db, nil, &stubVerifier{subjects: map[string]string{"tok": "user-1"}})

	router := gin.New()
	router.GET("/protected", svc.Middleware(), func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "identity missing"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": identity.UserID})
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no header: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("non-bearer header: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPVerifier(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("apikey") != "service-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "user-42", "email": "u42@example.com"}`))
	}))
	defer provider.Close()

	verifier := NewHTTPVerifier(provider.URL, "service-key")

	userID, email, err := verifier.Verify(context.Background(), "good-token")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if userID != "user-42" || email != "u42@example.com" {
		t.Fatalf("subject = %q %q", userID, email)
	}

	if _, _, err := verifier.Verify(context.Background(), "bad-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("bad token err = %v, want ErrInvalidToken", err)
	}
}
