package signing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covenant-labs/covenant/pkg/capability"
)

func testToken(t *testing.T) capability.Token {
	t.Helper()
	tok, err := capability.NewToken(capability.TokenSpec{
		Issuer:   "alice",
		Audience: "bob",
		Capabilities: []capability.Capability{
			{Resource: "docs/report", Ability: "read"},
		},
	})
	require.NoError(t, err)
	return tok
}

func TestJWTCodec_RoundTrip(t *testing.T) {
	codec, err := NewJWTCodec([]byte("test-key-material"), "covenant-test")
	require.NoError(t, err)

	tok := testToken(t)
	raw, err := codec.Sign(tok, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	restored, err := codec.Verify(raw)
	require.NoError(t, err)

	// The same logical grant has the same CID on both sides.
	assert.Equal(t, tok.CID(), restored.CID())
	assert.Equal(t, tok.Issuer, restored.Issuer)
	assert.Equal(t, tok.Audience, restored.Audience)
	assert.Equal(t, tok.Capabilities, restored.Capabilities)
}

func TestJWTCodec_RejectsTamperedToken(t *testing.T) {
	codec, err := NewJWTCodec([]byte("test-key-material"), "covenant-test")
	require.NoError(t, err)

	raw, err := codec.Sign(testToken(t), time.Hour)
	require.NoError(t, err)

	_, err = codec.Verify(raw + "x")
	assert.Error(t, err)
}

func TestJWTCodec_RejectsWrongKey(t *testing.T) {
	signer, err := NewJWTCodec([]byte("key-one"), "covenant-test")
	require.NoError(t, err)
	verifier, err := NewJWTCodec([]byte("key-two"), "covenant-test")
	require.NoError(t, err)

	raw, err := signer.Sign(testToken(t), time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.Error(t, err)
}

func TestJWTCodec_RejectsExpiredEnvelope(t *testing.T) {
	codec, err := NewJWTCodec([]byte("test-key-material"), "covenant-test")
	require.NoError(t, err)

	raw, err := codec.Sign(testToken(t), -time.Minute)
	require.NoError(t, err)

	_, err = codec.Verify(raw)
	assert.Error(t, err)
}

func TestNewJWTCodec_RequiresKey(t *testing.T) {
	_, err := NewJWTCodec(nil, "covenant-test")
	assert.ErrorIs(t, err, ErrKeyRequired)
}
