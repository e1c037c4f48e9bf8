package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeySet signs operator tokens and resolves verification keys.
type KeySet interface {
	Sign(ctx context.Context, claims jwt.Claims) (string, error)
	KeyFunc() jwt.Keyfunc
}

// maxRetainedKeys bounds how many rotated keys still verify.
const maxRetainedKeys = 4

// Ed25519KeySet holds rotating Ed25519 keys in memory. Tokens carry the
// signing key's id in the kid header.
type Ed25519KeySet struct {
	mu         sync.RWMutex
	currentKID string
	seq        int
	order      []string
	keys       map[string]ed25519.PrivateKey
}

func NewEd25519KeySet() (*Ed25519KeySet, error) {
	ks := &Ed25519KeySet{keys: make(map[string]ed25519.PrivateKey)}
	if err := ks.Rotate(); err != nil {
		return nil, err
	}
	return ks, nil
}

// Rotate makes a fresh key current. The oldest key stops verifying once
// more than maxRetainedKeys are held.
func (ks *Ed25519KeySet) Rotate() error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.seq++
	kid := fmt.Sprintf("key-%d-%d", time.Now().Unix(), ks.seq)
	ks.keys[kid] = priv
	ks.order = append(ks.order, kid)
	ks.currentKID = kid
	for len(ks.order) > maxRetainedKeys {
		delete(ks.keys, ks.order[0])
		ks.order = ks.order[1:]
	}
	return nil
}

func (ks *Ed25519KeySet) Sign(_ context.Context, claims jwt.Claims) (string, error) {
	ks.mu.RLock()
	key, kid := ks.keys[ks.currentKID], ks.currentKID
	ks.mu.RUnlock()
	if key == nil {
		return "", fmt.Errorf("no active key")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = kid
	return token.SignedString(key)
}

func (ks *Ed25519KeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("missing kid in header")
		}
		ks.mu.RLock()
		defer ks.mu.RUnlock()
		key, exists := ks.keys[kid]
		if !exists {
			return nil, fmt.Errorf("key not found: %s", kid)
		}
		return key.Public(), nil
	}
}

// HMACKeySet signs with a shared secret, for single-operator deployments
// configured through JWT_SECRET.
type HMACKeySet struct {
	secret []byte
}

// minSecretLen is the shortest accepted HS256 secret.
const minSecretLen = 32

func NewHMACKeySet(secret []byte) (*HMACKeySet, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes", minSecretLen)
	}
	return &HMACKeySet{secret: append([]byte(nil), secret...)}, nil
}

func (ks *HMACKeySet) Sign(_ context.Context, claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ks.secret)
}

func (ks *HMACKeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return ks.secret, nil
	}
}
