package capability

import (
	"fmt"
	"time"
)

// CoverageMode names the semantics of Chain.Covers.
type CoverageMode int

const (
	// CoverageAnyLink covers a right if any single link grants
	// it. Each link is trusted to have been attenuated by whoever
	// constructed it; the chain does not narrow capabilities link-by-link.
	// This is the default.
	CoverageAnyLink CoverageMode = iota

	// CoverageIntersection requires every link to grant the right. The strict
	// attenuation interpretation: no link can widen what its parent held.
	CoverageIntersection
)

// String implements fmt.Stringer for CoverageMode.
func (m CoverageMode) String() string {
	switch m {
	case CoverageAnyLink:
		return "ANY_LINK"
	case CoverageIntersection:
		return "INTERSECTION"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(m))
	}
}

// ParseCoverageMode maps a configuration string to a CoverageMode.
// Unrecognized values fall back to CoverageAnyLink.
func ParseCoverageMode(s string) CoverageMode {
	if s == "intersection" || s == "INTERSECTION" {
		return CoverageIntersection
	}
	return CoverageAnyLink
}

// Chain is the root-first sequence of tokens connecting an ultimate issuer
// to a leaf holder. Chains are assembled by the delegation evaluator and are
// immutable once built.
type Chain struct {
	Tokens []Token `json:"tokens"`
}

// Len returns the number of links in the chain.
func (c *Chain) Len() int { return len(c.Tokens) }

// Root returns the first (ultimate issuer) token. Panics on an empty chain;
// callers validate first.
func (c *Chain) Root() Token { return c.Tokens[0] }

// Leaf returns the last token in the chain.
func (c *Chain) Leaf() Token { return c.Tokens[len(c.Tokens)-1] }

// Validate checks structural and temporal validity of the chain at the given
// time. It reports the first failure: ErrEmptyChain, a ChainBrokenError with
// the offending index, or a TemporalError for the first token outside its
// validity window. Validity is time-dependent and therefore never cached.
func (c *Chain) Validate(at time.Time) error {
	if len(c.Tokens) == 0 {
		return ErrEmptyChain
	}

	for i := 1; i < len(c.Tokens); i++ {
		if c.Tokens[i-1].Audience != c.Tokens[i].Issuer {
			return &ChainBrokenError{
				Index:    i,
				Audience: c.Tokens[i-1].Audience,
				Issuer:   c.Tokens[i].Issuer,
			}
		}
	}

	for i, tok := range c.Tokens {
		if tok.IsValid(at) {
			continue
		}
		kind := ErrTokenExpired
		if tok.NotBefore != nil && at.Before(*tok.NotBefore) {
			kind = ErrTokenNotYetValid
		}
		return &TemporalError{Index: i, CID: tok.CID(), Kind: kind}
	}

	return nil
}

// Covers reports whether the chain grants the queried (resource, ability)
// under the given coverage mode. An empty chain covers nothing.
func (c *Chain) Covers(resource, ability string, mode CoverageMode) bool {
	if len(c.Tokens) == 0 {
		return false
	}

	switch mode {
	case CoverageIntersection:
		for _, tok := range c.Tokens {
			if !tok.Grants(resource, ability) {
				return false
			}
		}
		return true
	default:
		for _, tok := range c.Tokens {
			if tok.Grants(resource, ability) {
				return true
			}
		}
		return false
	}
}
