package paytoday

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrMalformedEnvelope = errors.New("malformed envelope")

// Verifier checks the signature of a three-part envelope before its payload
// is trusted. PayToday does not publish a verification key, so none is set by
// default and the envelope is treated as a serialization format only.
type Verifier interface {
	Verify(signingInput, signature string) error
}

// Payload is a decoded envelope body.
type Payload map[string]any

// DecodeEnvelope splits a JWT-shaped token and decodes its middle segment.
// The signature is checked only when verifier is non-nil.
func DecodeEnvelope(token string, verifier Verifier) (Payload, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedEnvelope, len(parts))
	}

	if verifier != nil {
		if err := verifier.Verify(parts[0]+"."+parts[1], parts[2]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
	}

	raw, err := decodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	// UseNumber keeps large numeric ids exact.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var payload Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after payload", ErrMalformedEnvelope)
	}
	if payload == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedEnvelope)
	}

	return payload, nil
}

// EncodeEnvelope builds an unsigned envelope around payload. It exists for
// fixtures and local fakes of the provider.
func EncodeEnvelope(payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".unsigned", nil
}

// Segments may use either alphabet, padded or not.
func decodeSegment(seg string) ([]byte, error) {
	seg = strings.TrimRight(seg, "=")
	if out, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return out, nil
	}
	return base64.RawStdEncoding.DecodeString(seg)
}

// Lookup walks nested objects by key.
func (p Payload) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(p)
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// String returns the value at path rendered as a string. Numbers are
// accepted since the provider is not consistent about id types.
func (p Payload) String(path ...string) string {
	v, ok := p.Lookup(path...)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return ""
	default:
		return ""
	}
}
