package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObject_CIDFromClauses(t *testing.T) {
	clauses := []Clause{
		{Type: ClausePermission, Actor: "*", Action: "read"},
		{Type: ClauseProhibition, Actor: "mallory", Action: "read"},
	}

	a := &Object{Clauses: clauses, Description: "first", Version: "1.0.0"}
	b := &Object{Clauses: clauses, Description: "second", Version: "2.0.0"}

	cidA, err := a.CID()
	require.NoError(t, err)
	cidB, err := b.CID()
	require.NoError(t, err)

	// The CID addresses the clause list, not the surrounding metadata.
	assert.Equal(t, cidA, cidB)
}

func TestObject_CIDDistinguishesClauses(t *testing.T) {
	a := &Object{Clauses: []Clause{{Type: ClausePermission, Actor: "*", Action: "read"}}}
	b := &Object{Clauses: []Clause{{Type: ClausePermission, Actor: "*", Action: "write"}}}

	cidA, err := a.CID()
	require.NoError(t, err)
	cidB, err := b.CID()
	require.NoError(t, err)
	assert.NotEqual(t, cidA, cidB)
}

func TestObject_Validate(t *testing.T) {
	valid := &Object{
		Clauses: []Clause{{Type: ClausePermission, Actor: "*", Action: "read"}},
		Version: "1.2.3",
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&Object{}).Validate(), "empty clause list")

	badVersion := &Object{
		Clauses: []Clause{{Type: ClausePermission, Actor: "*", Action: "read"}},
		Version: "not-semver",
	}
	assert.Error(t, badVersion.Validate())

	badClause := &Object{
		Clauses: []Clause{{Type: "whim", Actor: "*", Action: "read"}},
	}
	assert.Error(t, badClause.Validate())
}
