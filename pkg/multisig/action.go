package multisig

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/sha3"

	"github.com/Mindburn-Labs/mintgov/pkg/contracts"
)

// Action is a privileged call: a typed payload bound to the contract it
// targets. Two actions are the same action iff their encodings are equal.
type Action struct {
	Target  contracts.Address
	Payload Payload
}

// Selector returns the 4-byte Keccak-256 method selector of signature.
func Selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel [4]byte
	copy(sel[:], h.Sum(nil))
	return sel
}

// Signature returns the method signature of the action's kind.
func (a Action) Signature() (string, error) {
	if a.Payload == nil {
		return "", fmt.Errorf("%w: empty action", contracts.ErrInvalidArgument)
	}
	e, ok := catalog[a.Payload.Kind()]
	if !ok {
		return "", fmt.Errorf("%w: unknown action kind %q", contracts.ErrInvalidArgument, a.Payload.Kind())
	}
	return e.signature, nil
}

// Args returns the RFC 8785 canonical JSON of the payload.
func (a Action) Args() ([]byte, error) {
	if a.Payload == nil {
		return nil, fmt.Errorf("%w: empty action", contracts.ErrInvalidArgument)
	}
	raw, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s args: %w", a.Payload.Kind(), err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize %s args: %w", a.Payload.Kind(), err)
	}
	return canon, nil
}

// Encode returns target || 0x00 || selector || canonical args.
func (a Action) Encode() ([]byte, error) {
	if a.Target.IsZero() {
		return nil, fmt.Errorf("%w: action has no target", contracts.ErrInvalidAddress)
	}
	sig, err := a.Signature()
	if err != nil {
		return nil, err
	}
	args, err := a.Args()
	if err != nil {
		return nil, err
	}
	sel := Selector(sig)
	out := make([]byte, 0, len(a.Target)+1+len(sel)+len(args))
	out = append(out, a.Target...)
	out = append(out, 0)
	out = append(out, sel[:]...)
	out = append(out, args...)
	return out, nil
}

// Digest is the hex SHA-256 of the encoding, prefixed "sha256:".
func (a Action) Digest() (string, error) {
	enc, err := a.Encode()
	if err != nil {
		return "", err
	}
	h := sha256.Sum256(enc)
	return "sha256:" + hex.EncodeToString(h[:]), nil
}

// DecodePayload rebuilds a payload from its kind and JSON arguments.
func DecodePayload(kind Kind, args []byte) (Payload, error) {
	e, ok := catalog[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown action kind %q", contracts.ErrInvalidArgument, kind)
	}
	p := e.zero()
	if len(args) > 0 {
		if err := json.Unmarshal(args, p); err != nil {
			return nil, fmt.Errorf("decode %s args: %w", kind, err)
		}
	}
	return reflect.ValueOf(p).Elem().Interface().(Payload), nil
}

// Kinds lists every supported kind.
func Kinds() []Kind {
	out := make([]Kind, 0, len(catalog))
	for k := range catalog {
		out = append(out, k)
	}
	return out
}

func isSelf(p Payload) bool {
	e, ok := catalog[p.Kind()]
	return ok && e.self
}

// TargetsEngine reports whether kind executes on the engine itself rather
// than on the controller.
func TargetsEngine(kind Kind) bool {
	e, ok := catalog[kind]
	return ok && e.self
}
