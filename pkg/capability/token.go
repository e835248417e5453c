package capability

import (
	"time"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

// TokenSpec carries the fields of a delegation token under construction.
type TokenSpec struct {
	Issuer       string
	Audience     string
	Capabilities []Capability
	NotBefore    *time.Time
	Expiry       *time.Time
	ProofCID     *canonicalize.CID
	Signature    string
}

// Token is a grant of capabilities from an issuer to an audience, optionally
// chained to a parent grant via ProofCID. Tokens are immutable once
// constructed; the CID is computed at construction over every field except
// Signature, so the same logical grant always has the same CID regardless of
// which signing pass produced it.
type Token struct {
	Issuer       string            `json:"issuer"`
	Audience     string            `json:"audience"`
	Capabilities []Capability      `json:"capabilities"`
	NotBefore    *time.Time        `json:"not_before,omitempty"`
	Expiry       *time.Time        `json:"expiry,omitempty"`
	ProofCID     *canonicalize.CID `json:"proof_cid,omitempty"`
	Signature    string            `json:"signature,omitempty"`

	cid canonicalize.CID
}

// NewToken constructs a token and computes its CID. Returns ErrInvalidGrant
// when no capabilities are granted.
func NewToken(spec TokenSpec) (Token, error) {
	if len(spec.Capabilities) == 0 {
		return Token{}, ErrInvalidGrant
	}

	tok := Token{
		Issuer:       spec.Issuer,
		Audience:     spec.Audience,
		Capabilities: append([]Capability(nil), spec.Capabilities...),
		NotBefore:    spec.NotBefore,
		Expiry:       spec.Expiry,
		ProofCID:     spec.ProofCID,
		Signature:    spec.Signature,
	}

	cid, err := canonicalize.ComputeCID(tok.hashable())
	if err != nil {
		return Token{}, err
	}
	tok.cid = cid
	return tok, nil
}

// CID returns the content identifier of the token. It is the zero CID only
// for tokens not built through NewToken (e.g. raw JSON decodes); use
// Rehydrate for those.
func (t Token) CID() canonicalize.CID { return t.cid }

// Rehydrate recomputes the cached CID of a token decoded from JSON.
func Rehydrate(t Token) (Token, error) {
	return NewToken(TokenSpec{
		Issuer:       t.Issuer,
		Audience:     t.Audience,
		Capabilities: t.Capabilities,
		NotBefore:    t.NotBefore,
		Expiry:       t.Expiry,
		ProofCID:     t.ProofCID,
		Signature:    t.Signature,
	})
}

// IsValid reports whether the token's validity window contains at.
func (t Token) IsValid(at time.Time) bool {
	if t.Expiry != nil && at.After(*t.Expiry) {
		return false
	}
	if t.NotBefore != nil && at.Before(*t.NotBefore) {
		return false
	}
	return true
}

// Grants reports whether any capability of the token matches the queried
// resource and ability.
func (t Token) Grants(resource, ability string) bool {
	for _, c := range t.Capabilities {
		if c.Matches(resource, ability) {
			return true
		}
	}
	return false
}

// hashable builds the canonical hash input: every field except Signature.
// Optional fields are present only when set, so a token without an expiry
// hashes identically across encoders.
func (t Token) hashable() map[string]interface{} {
	m := map[string]interface{}{
		"issuer":       t.Issuer,
		"audience":     t.Audience,
		"capabilities": t.Capabilities,
	}
	if t.NotBefore != nil {
		m["not_before"] = t.NotBefore.UTC().Format(time.RFC3339Nano)
	}
	if t.Expiry != nil {
		m["expiry"] = t.Expiry.UTC().Format(time.RFC3339Nano)
	}
	if t.ProofCID != nil {
		m["proof_cid"] = t.ProofCID.String()
	}
	return m
}
