// Package capability defines the immutable value types of the delegation
// model: a Capability (one grantable right), a Token (an issuer-to-audience
// grant of capabilities), and a Chain (the root-first provenance path from an
// ultimate issuer to a leaf holder).
package capability

// Wildcard matches any resource or ability.
const Wildcard = "*"

// Capability represents one grantable right: a (resource, ability) pair.
// Either field may be the wildcard "*".
type Capability struct {
	Resource string `json:"resource"`
	Ability  string `json:"ability"`
}

// Matches reports whether this capability covers the queried resource and
// ability. Wildcards match on either side; otherwise fields must be equal.
// No partial (prefix) wildcards are supported.
func (c Capability) Matches(resource, ability string) bool {
	resourceOK := c.Resource == Wildcard || resource == Wildcard || c.Resource == resource
	abilityOK := c.Ability == Wildcard || ability == Wildcard || c.Ability == ability
	return resourceOK && abilityOK
}
