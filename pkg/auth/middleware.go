package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mindburn-Labs/mintgov/pkg/api"
	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Issuer is the iss claim of operator tokens.
const Issuer = "mintgov"

// Claims are the JWT claims of an operator token. The governance address
// is carried separately from the subject so one operator can rotate keys.
type Claims struct {
	jwt.RegisteredClaims
	Address string   `json:"addr"`
	Roles   []string `json:"roles,omitempty"`
}

// JWTValidator validates operator tokens.
type JWTValidator struct {
	KeySet KeySet
	Leeway time.Duration
}

func NewJWTValidator(ks KeySet) *JWTValidator {
	if ks == nil {
		return nil
	}
	return &JWTValidator{KeySet: ks, Leeway: 30 * time.Second}
}

// Validate parses and validates a token string.
func (v *JWTValidator) Validate(tokenStr string) (*Claims, error) {
	if v.KeySet == nil {
		return nil, fmt.Errorf("validator uninitialized")
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.KeySet.KeyFunc(),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.Leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// IssueToken signs a token binding subject to a governance address.
func IssueToken(ctx context.Context, ks KeySet, subject string, addr contracts.Address, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	return ks.Sign(ctx, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Address: string(addr),
		Roles:   roles,
	})
}

// publicPaths are endpoints that do not require authentication.
var publicPaths = []string{
	"/health",
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// NewMiddleware creates JWT auth middleware. If validator is nil, all
// non-public requests are rejected.
func NewMiddleware(validator *JWTValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.WriteUnauthorized(w, "Missing Authorization header")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				api.WriteUnauthorized(w, "Invalid Authorization header format (expected 'Bearer <token>')")
				return
			}

			if validator == nil {
				api.WriteUnauthorized(w, "Authentication not configured")
				return
			}
			claims, err := validator.Validate(parts[1])
			if err != nil {
				api.WriteUnauthorized(w, "Invalid or expired token")
				return
			}
			if claims.Subject == "" {
				api.WriteUnauthorized(w, "Token subject is required")
				return
			}
			addr, err := contracts.ParseAddress(claims.Address)
			if err != nil {
				api.WriteUnauthorized(w, "Token address binding is required")
				return
			}

			ctx := WithPrincipal(r.Context(), &Operator{
				ID:      claims.Subject,
				Address: addr,
				Roles:   claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ReadOnlyObservers rejects mutating requests from tokens whose only role
// is RoleObserver.
func ReadOnlyObservers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		if p, err := GetPrincipal(r.Context()); err == nil {
			roles := p.GetRoles()
			if len(roles) == 1 && roles[0] == RoleObserver {
				api.WriteError(w, http.StatusForbidden, "Forbidden", "Observer tokens are read-only")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
