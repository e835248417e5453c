// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// compliant serialization and content addressing for covenant artifacts.
//
// Every structured value the engine reasons about (tokens, policies, intents,
// decisions) is named by a CID: the hex digest of its canonical JSON form,
// prefixed with the hash algorithm. Identical canonical bytes always produce
// identical CIDs, which is what makes decisions re-checkable and cacheable.
package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/sha3"
)

// Supported digest algorithms for CID computation.
const (
	AlgSHA256  = "sha256"
	AlgSHA3256 = "sha3-256"
)

// ErrNotCanonicalizable indicates a value that cannot be serialized to
// canonical JSON (channels, funcs, cyclic structures). This is a programmer
// error: callers must not retry.
var ErrNotCanonicalizable = errors.New("value is not canonicalizable")

// CID is a content identifier of the form "<algorithm>:<hex digest>".
type CID string

// Algorithm returns the digest algorithm tag of the CID ("" if malformed).
func (c CID) Algorithm() string {
	alg, _, ok := strings.Cut(string(c), ":")
	if !ok {
		return ""
	}
	return alg
}

// Digest returns the hex digest portion of the CID ("" if malformed).
func (c CID) Digest() string {
	_, digest, ok := strings.Cut(string(c), ":")
	if !ok {
		return ""
	}
	return digest
}

func (c CID) String() string { return string(c) }

// JCS returns the RFC 8785 canonical JSON representation of v.
//
// The value is first marshalled with encoding/json (so struct tags are
// respected), then transformed to canonical form: keys sorted by UTF-8 bytes,
// no insignificant whitespace, no HTML escaping.
func JCS(v interface{}) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCanonicalizable, err)
	}
	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("%w: jcs transform: %v", ErrNotCanonicalizable, err)
	}
	return canonical, nil
}

// JCSString returns the JCS canonical form as a string.
func JCSString(v interface{}) (string, error) {
	data, err := JCS(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ComputeCID returns the sha256 CID of the canonical JSON form of v.
func ComputeCID(v interface{}) (CID, error) {
	return ComputeCIDWithAlgorithm(v, AlgSHA256)
}

// ComputeCIDWithAlgorithm returns the CID of v under the given digest
// algorithm. Supported algorithms: sha256, sha3-256.
func ComputeCIDWithAlgorithm(v interface{}, alg string) (CID, error) {
	canonical, err := JCS(v)
	if err != nil {
		return "", err
	}
	digest, err := hashBytes(canonical, alg)
	if err != nil {
		return "", err
	}
	return CID(alg + ":" + digest), nil
}

// HashBytes computes the SHA-256 hash of raw bytes and returns the hex string.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hashBytes(data []byte, alg string) (string, error) {
	switch alg {
	case AlgSHA256:
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	case AlgSHA3256:
		sum := sha3.Sum256(data)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("unsupported digest algorithm %q", alg)
	}
}
