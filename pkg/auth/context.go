package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

type contextKey string

const (
	principalKey contextKey = "principal"
)

// ErrNoPrincipal is returned when a request carries no authenticated party.
var ErrNoPrincipal = errors.New("no principal in context")

// WithPrincipal attaches a Principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal retrieves the Principal from the context.
func GetPrincipal(ctx context.Context) (Principal, error) {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok {
		return nil, ErrNoPrincipal
	}
	return p, nil
}

// GetAddress returns the address of the context's Principal.
func GetAddress(ctx context.Context) (contracts.Address, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return "", err
	}
	return p.GetAddress(), nil
}

// Caller resolves the request's governance address. It has the shape the
// api server expects for its caller function.
func Caller(r *http.Request) (contracts.Address, error) {
	return GetAddress(r.Context())
}
