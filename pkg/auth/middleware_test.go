package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mindburn-Labs/mintgov/pkg/auth"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// createTestToken generates a signed JWT for testing using the provided KeySet.
func createTestToken(t *testing.T, ks auth.KeySet, sub, addr string, roles []string, expiry time.Time) string {
	t.Helper()
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    auth.Issuer,
		},
		Address: addr,
		Roles:   roles,
	}
	token, err := ks.Sign(context.Background(), claims)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func setupValidator(t *testing.T) (auth.KeySet, *auth.JWTValidator) {
	ks, err := auth.NewEd25519KeySet()
	if err != nil {
		t.Fatalf("failed to create keyset: %v", err)
	}
	return ks, auth.NewJWTValidator(ks)
}

func TestMiddleware_ValidJWT(t *testing.T) {
	ks, validator := setupValidator(t)
	middleware := auth.NewMiddleware(validator)

	var capturedPrincipal auth.Principal
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := auth.GetPrincipal(r.Context())
		if err != nil {
			t.Errorf("expected principal in context: %v", err)
		}
		capturedPrincipal = p
		w.WriteHeader(http.StatusOK)
	}))

	token := createTestToken(t, ks, "ops-alice", "owner-1", []string{auth.RoleSigner}, time.Now().Add(1*time.Hour))

	req := httptest.NewRequest("GET", "/v1/actions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if capturedPrincipal == nil {
		t.Fatal("principal was not set in context")
	}
	if capturedPrincipal.GetID() != "ops-alice" {
		t.Errorf("expected subject 'ops-alice', got %q", capturedPrincipal.GetID())
	}
	if capturedPrincipal.GetAddress() != contracts.Address("owner-1") {
		t.Errorf("expected address 'owner-1', got %q", capturedPrincipal.GetAddress())
	}
}

func TestMiddleware_ExpiredJWT(t *testing.T) {
	ks, validator := setupValidator(t)
	middleware := auth.NewMiddleware(validator)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for expired token")
	}))

	token := createTestToken(t, ks, "ops-alice", "owner-1", []string{auth.RoleSigner}, time.Now().Add(-1*time.Hour))

	req := httptest.NewRequest("GET", "/v1/actions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	_, validator := setupValidator(t)
	middleware := auth.NewMiddleware(validator)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called without auth header")
	}))

	req := httptest.NewRequest("GET", "/v1/actions", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_InvalidSignature(t *testing.T) {
	// Create token with one KeySet, validate with another
	ks1, _ := setupValidator(t)
	_, validator2 := setupValidator(t) // Different keys

	middleware := auth.NewMiddleware(validator2)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for invalid signature")
	}))

	token := createTestToken(t, ks1, "ops-alice", "owner-1", []string{auth.RoleSigner}, time.Now().Add(1*time.Hour))

	req := httptest.NewRequest("GET", "/v1/actions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_PublicPathsBypass(t *testing.T) {
	_, validator := setupValidator(t)
	middleware := auth.NewMiddleware(validator)

	called := false
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if !called {
		t.Error("handler should be called for public paths without auth")
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestMiddleware_NilValidator_FailClosed(t *testing.T) {
	middleware := auth.NewMiddleware(nil)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called when validator is nil")
	}))

	req := httptest.NewRequest("GET", "/v1/actions", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_MissingAddressClaim(t *testing.T) {
	ks, validator := setupValidator(t)
	middleware := auth.NewMiddleware(validator)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for missing address claim")
	}))

	token := createTestToken(t, ks, "ops-alice", "", []string{auth.RoleSigner}, time.Now().Add(1*time.Hour))
	req := httptest.NewRequest("GET", "/v1/actions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_MissingSubjectClaim(t *testing.T) {
	ks, validator := setupValidator(t)
	middleware := auth.NewMiddleware(validator)

	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for missing subject claim")
	}))

	token := createTestToken(t, ks, "", "owner-1", []string{auth.RoleSigner}, time.Now().Add(1*time.Hour))
	req := httptest.NewRequest("GET", "/v1/actions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestGetRequestID_ExtractsFromContext(t *testing.T) {
	var got string
	handler := auth.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/v1/actions", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got == "" {
		t.Fatal("expected non-empty request id from context")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
}

func TestMiddleware_HMACKeySet(t *testing.T) {
	ks, err := auth.NewHMACKeySet([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("keyset: %v", err)
	}
	token, err := auth.IssueToken(context.Background(), ks, "ops-bob", "mint-key", []string{auth.RoleMintKey}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var caller contracts.Address
	handler := auth.NewMiddleware(auth.NewJWTValidator(ks))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, _ = auth.Caller(r)
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("POST", "/v1/mint/requests", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if caller != "mint-key" {
		t.Errorf("expected caller mint-key, got %q", caller)
	}
}

func TestNewHMACKeySet_RejectsShortSecret(t *testing.T) {
	if _, err := auth.NewHMACKeySet([]byte("short")); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}

func TestMiddleware_RejectsForeignIssuer(t *testing.T) {
	ks, validator := setupValidator(t)
	token, err := ks.Sign(context.Background(), auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-alice",
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Address: "owner-1",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := validator.Validate(token); err == nil {
		t.Fatal("expected foreign issuer to be rejected")
	}
}

func TestEd25519KeySet_RotationKeepsRecentKeys(t *testing.T) {
	ks, validator := setupValidator(t)
	old := createTestToken(t, ks, "ops-alice", "owner-1", nil, time.Now().Add(time.Hour))

	if err := ks.(*auth.Ed25519KeySet).Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, err := validator.Validate(old); err != nil {
		t.Fatalf("token from previous key should still verify: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := ks.(*auth.Ed25519KeySet).Rotate(); err != nil {
			t.Fatalf("rotate: %v", err)
		}
	}
	if _, err := validator.Validate(old); err == nil {
		t.Fatal("token from evicted key should not verify")
	}
}

func TestReadOnlyObservers(t *testing.T) {
	handler := auth.ReadOnlyObservers(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	observer := &auth.Operator{ID: "auditor", Address: "auditor", Roles: []string{auth.RoleObserver}}

	for method, want := range map[string]int{"GET": http.StatusOK, "POST": http.StatusForbidden} {
		req := httptest.NewRequest(method, "/v1/actions", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), observer))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("%s: expected %d, got %d", method, want, w.Code)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := auth.CORSMiddleware([]string{"https://console.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("OPTIONS", "/v1/actions", nil)
	req.Header.Set("Origin", "https://console.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}

	req = httptest.NewRequest("GET", "/v1/actions", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}
