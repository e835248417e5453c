package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covenant-labs/covenant/pkg/canonicalize"
)

func readPolicy() *Object {
	return &Object{
		Clauses: []Clause{
			{Type: ClausePermission, Actor: "*", Action: "read"},
		},
		Description: "everyone may read",
		Version:     "1.0.0",
	}
}

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry(nil)

	cid, err := r.Register("read-for-all", readPolicy())
	require.NoError(t, err)
	require.NotEmpty(t, cid)

	refs := r.ListPolicies()
	require.Len(t, refs, 1)
	assert.Equal(t, "read-for-all", refs[0].PolicyID)
	assert.Equal(t, cid, refs[0].PolicyCID)
}

func TestRegistry_RegisterEmptyID(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Register("", readPolicy())
	assert.Error(t, err)
}

func TestRegistry_EvaluateByID(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Register("read-for-all", readPolicy())
	require.NoError(t, err)

	in, err := NewIntent("read", canonicalize.CID("sha256:input"), "")
	require.NoError(t, err)

	d := r.EvaluateByID(context.Background(), "read-for-all", EvalRequest{Intent: in, Actor: "bob"})
	assert.Equal(t, EffectAllow, d.Effect)

	d = r.EvaluateByID(context.Background(), "no-such-policy", EvalRequest{Intent: in, Actor: "bob"})
	assert.Equal(t, EffectDeny, d.Effect)
	assert.Contains(t, d.Justification, "no-such-policy")
}

func TestRegistry_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")

	r := NewRegistry(nil)
	cid, err := r.Register("read-for-all", readPolicy())
	require.NoError(t, err)
	_, err = r.Register("deny-mallory", &Object{
		Clauses: []Clause{
			{Type: ClausePermission, Actor: "*", Action: "*"},
			{Type: ClauseProhibition, Actor: "mallory", Action: "*"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, r.Save(path))

	restored := NewRegistry(nil)
	n, err := restored.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	refs := restored.ListPolicies()
	require.Len(t, refs, 2)

	// Content addressing survives the round trip.
	assert.Equal(t, "deny-mallory", refs[0].PolicyID)
	assert.Equal(t, "read-for-all", refs[1].PolicyID)
	assert.Equal(t, cid, refs[1].PolicyCID)

	// Restored policies are immediately evaluable.
	in, err := NewIntent("read", canonicalize.CID("sha256:input"), "")
	require.NoError(t, err)
	d := restored.EvaluateByID(context.Background(), "read-for-all", EvalRequest{Intent: in, Actor: "bob"})
	assert.Equal(t, EffectAllow, d.Effect)
}

func TestRegistry_LoadMissingFile(t *testing.T) {
	r := NewRegistry(nil)
	n, err := r.Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegistry_LoadRejectsSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	// An entry without the required policy field.
	require.NoError(t, os.WriteFile(path, []byte(`[{"policy_id":"p1"}]`), 0600))

	r := NewRegistry(nil)
	_, err := r.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema")
	assert.Empty(t, r.ListPolicies())
}

func TestRegistry_LoadRejectsUnknownClauseType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	snapshot := `[{"policy_id":"p1","policy":{"clauses":[{"clause_type":"whim","actor":"*","action":"*"}]}}]`
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0600))

	r := NewRegistry(nil)
	_, err := r.Load(path)
	require.Error(t, err)
	assert.Empty(t, r.ListPolicies())
}

func TestDefaultRegistry_SingletonIdentity(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}
