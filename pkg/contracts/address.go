// Package contracts holds the identities, amounts, events and collaborator
// interfaces shared by the governance packages.
package contracts

import (
	"fmt"
	"strings"
)

// Address identifies a signer, role holder or contract.
type Address string

// ZeroAddress is the unset identity.
const ZeroAddress Address = ""

// ParseAddress normalises s. Hex addresses ("0x" prefixed) are lower-cased.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroAddress, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		hex := strings.ToLower(s[2:])
		if len(hex) != 40 {
			return ZeroAddress, fmt.Errorf("%w: %q is not 20 bytes", ErrInvalidAddress, s)
		}
		for _, c := range hex {
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				return ZeroAddress, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
			}
		}
		return Address("0x" + hex), nil
	}
	return Address(s), nil
}

// MustAddress is ParseAddress for constants and tests.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is unset.
func (a Address) IsZero() bool { return a == ZeroAddress }

func (a Address) String() string { return string(a) }

// Addresses converts a slice of strings, failing on the first invalid one.
func Addresses(ss []string) ([]Address, error) {
	out := make([]Address, 0, len(ss))
	for _, s := range ss {
		a, err := ParseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
