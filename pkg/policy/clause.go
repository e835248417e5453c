// Package policy implements the temporal deontic policy model and its
// evaluator: permission, prohibition, and obligation clauses bundled into
// CID-addressed policy objects, evaluated against intents under closed-world
// semantics (everything is denied unless explicitly permitted, and any
// matching prohibition wins).
package policy

import (
	"fmt"
	"time"
)

// ClauseType is the deontic modality of a clause.
type ClauseType string

const (
	ClausePermission  ClauseType = "permission"
	ClauseProhibition ClauseType = "prohibition"
	ClauseObligation  ClauseType = "obligation"
)

// Valid reports whether the clause type is a known modality.
func (ct ClauseType) Valid() bool {
	switch ct {
	case ClausePermission, ClauseProhibition, ClauseObligation:
		return true
	}
	return false
}

// Clause is one deontic rule. Actor and Action are matchers where "*"
// matches anything; Resource is optional (empty matches any resource). A
// clause with no temporal bounds is always valid.
//
// Condition, when set, is a CEL expression over {actor, action, resource,
// timestamp} that must additionally evaluate to true for the clause to
// match. Evaluation failures count as no-match: the engine fails closed.
type Clause struct {
	Type               ClauseType `json:"clause_type"`
	Actor              string     `json:"actor"`
	Action             string     `json:"action"`
	Resource           string     `json:"resource,omitempty"`
	ValidFrom          *time.Time `json:"valid_from,omitempty"`
	ValidUntil         *time.Time `json:"valid_until,omitempty"`
	ObligationDeadline *time.Time `json:"obligation_deadline,omitempty"`
	Condition          string     `json:"condition,omitempty"`
}

// MatchesIntent reports whether the clause's actor/action/resource matchers
// cover the given intent coordinates. The Condition expression is evaluated
// separately by the evaluator.
func (c Clause) MatchesIntent(actor, action, resource string) bool {
	if c.Actor != "*" && c.Actor != actor {
		return false
	}
	if c.Action != "*" && c.Action != action {
		return false
	}
	if c.Resource != "" && c.Resource != "*" && c.Resource != resource {
		return false
	}
	return true
}

// IsTemporallyValid reports whether at falls within the clause's validity
// window. Unset bounds are open.
func (c Clause) IsTemporallyValid(at time.Time) bool {
	if c.ValidFrom != nil && at.Before(*c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && at.After(*c.ValidUntil) {
		return false
	}
	return true
}

// Validate checks structural well-formedness of the clause.
func (c Clause) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("unknown clause type %q", c.Type)
	}
	if c.Actor == "" {
		return fmt.Errorf("clause actor matcher must not be empty")
	}
	if c.Action == "" {
		return fmt.Errorf("clause action matcher must not be empty")
	}
	return nil
}
