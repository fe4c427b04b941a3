// Package canonicalize implements RFC 8785 (JSON Canonicalization Scheme)
// byte-deterministic serialization and the SHA-256 digest built on top of it.
// It is the single source of truth for every downstream hash in the trust
// engine: canonical output must be byte-identical for logically equal values
// across processes.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/gowebpki/jcs"

	"github.com/attestia/trustengine/pkg/trust"
)

// Canonical returns the RFC 8785 canonical JSON form of v. v must be
// JSON-marshalable; anything encoding/json refuses (non-finite numbers, maps
// keyed by bool, float or struct types) surfaces as a VALIDATION_FAILED
// error. Maps with integer keys, or keys implementing encoding.TextMarshaler,
// are not rejected: encoding/json converts those keys to strings.
func Canonical(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, trust.Wrap(trust.CodeValidationFailed, "value is not JSON-representable", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, trust.Wrap(trust.CodeValidationFailed, "RFC 8785 transform failed", err)
	}
	return out, nil
}

// CanonicalString is Canonical rendered as a string.
func CanonicalString(v interface{}) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Digest returns the lowercase hex SHA-256 digest of the canonical form of v.
func Digest(v interface{}) (string, error) {
	b, err := Canonical(v)
	if err != nil {
		return "", err
	}
	return DigestBytes(b), nil
}

// DigestBytes returns the lowercase hex SHA-256 digest of raw bytes.
func DigestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Idempotent re-parses the canonical form and canonicalizes again, exposed so
// tests can assert canonicalize(parse(canonicalize(x))) == canonicalize(x)
// without duplicating the parse/marshal dance in every test file.
func Idempotent(v interface{}) ([]byte, []byte, error) {
	first, err := Canonical(v)
	if err != nil {
		return nil, nil, err
	}
	var parsed interface{}
	dec := json.NewDecoder(bytes.NewReader(first))
	dec.UseNumber()
	if err := dec.Decode(&parsed); err != nil {
		return nil, nil, trust.Wrap(trust.CodeValidationFailed, "re-parse of canonical form failed", err)
	}
	second, err := Canonical(parsed)
	if err != nil {
		return nil, nil, err
	}
	return first, second, nil
}
