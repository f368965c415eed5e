package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func authedRequest(t *testing.T, token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthMiddlewareInjectsUser(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":   userID.String(),
		"staff": false,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	var gotUser uuid.UUID
	var gotOK bool
	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotOK = UserFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, token))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !gotOK || gotUser != userID {
		t.Fatalf("expected user %s in context, got %s (ok=%v)", userID, gotUser, gotOK)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	expired := signToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, "other-secret", jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	badSubject := signToken(t, testSecret, jwt.MapClaims{
		"sub": "not-a-uuid",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name  string
		token string
	}{
		{"missing token", ""},
		{"expired token", expired},
		{"wrong signing key", wrongKey},
		{"bad subject", badSubject},
	}

	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, authedRequest(t, tc.token))
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestRequireStaff(t *testing.T) {
	staffToken := signToken(t, testSecret, jwt.MapClaims{
		"sub":   uuid.New().String(),
		"staff": true,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	userToken := signToken(t, testSecret, jwt.MapClaims{
		"sub":   uuid.New().String(),
		"staff": false,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	var reached bool
	handler := AuthMiddleware(testSecret)(RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, userToken))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-staff caller, got %d", rec.Code)
	}
	if reached {
		t.Fatal("handler should not be reached by a non-staff caller")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(t, staffToken))
	if rec.Code != http.StatusOK || !reached {
		t.Fatalf("expected staff caller to pass, got %d", rec.Code)
	}
}
