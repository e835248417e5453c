package policy

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

// Effect is the tagged outcome of a policy evaluation.
type Effect int

const (
	EffectDeny Effect = iota
	EffectAllow
	EffectAllowWithObligations
)

// String implements fmt.Stringer for Effect.
func (e Effect) String() string {
	switch e {
	case EffectAllow:
		return "allow"
	case EffectAllowWithObligations:
		return "allow_with_obligations"
	case EffectDeny:
		return "deny"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(e))
	}
}

// MarshalJSON encodes the effect as its string form.
func (e Effect) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON decodes the string form of an effect.
func (e *Effect) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "allow":
		*e = EffectAllow
	case "allow_with_obligations":
		*e = EffectAllowWithObligations
	case "deny":
		*e = EffectDeny
	default:
		return fmt.Errorf("unknown effect %q", s)
	}
	return nil
}

// Obligation is a duty attached to an allow decision, one per matching
// obligation clause. Wildcard matchers are resolved to the concrete intent
// coordinates.
type Obligation struct {
	Actor    string     `json:"actor"`
	Action   string     `json:"action"`
	Resource string     `json:"resource,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

// Decision is the immutable outcome of one evaluation. The evaluator may
// serve the same *Decision instance from its memoization cache, so callers
// can use pointer identity for cheap "did the decision change" comparisons.
type Decision struct {
	Effect        Effect           `json:"decision"`
	IntentCID     canonicalize.CID `json:"intent_cid"`
	PolicyCID     canonicalize.CID `json:"policy_cid"`
	Justification string           `json:"justification"`
	Obligations   []Obligation     `json:"obligations,omitempty"`

	cid canonicalize.CID
}

// newDecision builds a decision and computes its content-derived CID.
func newDecision(effect Effect, intentCID, policyCID canonicalize.CID, justification string, obligations []Obligation) (*Decision, error) {
	d := &Decision{
		Effect:        effect,
		IntentCID:     intentCID,
		PolicyCID:     policyCID,
		Justification: justification,
		Obligations:   obligations,
	}
	cid, err := canonicalize.ComputeCID(d)
	if err != nil {
		return nil, err
	}
	d.cid = cid
	return d, nil
}

// Allowed reports whether the decision permits the action (true for both
// allow variants).
func (d *Decision) Allowed() bool {
	return d.Effect == EffectAllow || d.Effect == EffectAllowWithObligations
}

// CID returns the content identifier of the decision.
func (d *Decision) CID() canonicalize.CID { return d.cid }
