package policy

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

// Object is a versioned bundle of clauses. Its CID is the content address of
// the clause list, so two objects with identical clauses share a CID
// regardless of description or registration path.
type Object struct {
	Clauses     []Clause `json:"clauses"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version,omitempty"`
}

// CID returns the content address of the clause list.
func (o *Object) CID() (canonicalize.CID, error) {
	return canonicalize.ComputeCID(o.Clauses)
}

// Validate checks every clause and, when Version is set, that it parses as
// semantic versioning.
func (o *Object) Validate() error {
	if len(o.Clauses) == 0 {
		return fmt.Errorf("policy object must contain at least one clause")
	}
	for i, c := range o.Clauses {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("clause %d: %w", i, err)
		}
	}
	if o.Version != "" {
		if _, err := semver.NewVersion(o.Version); err != nil {
			return fmt.Errorf("policy version %q is not semver: %w", o.Version, err)
		}
	}
	return nil
}
