package canonicalize

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashHelper(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestJCS_Sorting(t *testing.T) {
	input := map[string]interface{}{
		"c": 3,
		"a": 1,
		"b": 2,
	}

	b, err := JCS(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"b":2,"c":3}`, string(b))
}

func TestJCS_RecursiveSorting(t *testing.T) {
	input := map[string]interface{}{
		"z": map[string]interface{}{
			"y": "foo",
			"x": "bar",
		},
		"a": 1,
	}

	b, err := JCS(input)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"z":{"x":"bar","y":"foo"}}`, string(b))
}

func TestJCS_NoHTMLEscaping(t *testing.T) {
	// RFC 8785 forbids HTML escaping of <, >, &.
	input := map[string]interface{}{"html": "<b>&</b>"}

	b, err := JCS(input)
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<b>&</b>"}`, string(b))
}

func TestJCS_Unserializable(t *testing.T) {
	_, err := JCS(map[string]interface{}{"ch": make(chan int)})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotCanonicalizable)
}

func TestComputeCID_Deterministic(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
	}{
		{
			name:  "simple object",
			input: map[string]interface{}{"b": 2, "a": 1},
		},
		{
			name: "nested object",
			input: map[string]interface{}{
				"x": map[string]interface{}{"z": 10, "y": 5},
			},
		},
		{
			name:  "array",
			input: []interface{}{"one", 2, true, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c1, err := ComputeCID(tt.input)
			require.NoError(t, err)
			c2, err := ComputeCID(tt.input)
			require.NoError(t, err)
			assert.Equal(t, c1, c2)
		})
	}
}

func TestComputeCID_KeyOrderIndependent(t *testing.T) {
	c1, err := ComputeCID(map[string]interface{}{"a": 1, "b": 2})
	require.NoError(t, err)
	c2, err := ComputeCID(map[string]interface{}{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
}

func TestComputeCID_DifferentContent(t *testing.T) {
	c1, err := ComputeCID(map[string]interface{}{"a": 1})
	require.NoError(t, err)
	c2, err := ComputeCID(map[string]interface{}{"a": 2})
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestComputeCID_Format(t *testing.T) {
	c, err := ComputeCID(map[string]interface{}{"a": 1})
	require.NoError(t, err)

	assert.Equal(t, AlgSHA256, c.Algorithm())
	assert.Equal(t, hashHelper(`{"a":1}`), c.Digest())
	assert.Equal(t, "sha256:"+hashHelper(`{"a":1}`), c.String())
}

func TestComputeCIDWithAlgorithm_SHA3(t *testing.T) {
	c, err := ComputeCIDWithAlgorithm(map[string]interface{}{"a": 1}, AlgSHA3256)
	require.NoError(t, err)
	assert.Equal(t, AlgSHA3256, c.Algorithm())
	assert.Len(t, c.Digest(), 64)

	s256, err := ComputeCID(map[string]interface{}{"a": 1})
	require.NoError(t, err)
	assert.NotEqual(t, s256.Digest(), c.Digest())
}

func TestComputeCIDWithAlgorithm_Unknown(t *testing.T) {
	_, err := ComputeCIDWithAlgorithm(map[string]interface{}{"a": 1}, "md5")
	require.Error(t, err)
}

func TestCID_Malformed(t *testing.T) {
	c := CID("nocolon")
	assert.Equal(t, "", c.Algorithm())
	assert.Equal(t, "", c.Digest())
}
