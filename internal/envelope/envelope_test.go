package envelope

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashKeyIsDeterministicAndFixedLength(t *testing.T) {
	e, err := New("sha256", false, "")
	require.NoError(t, err)

	h1 := e.HashKey("piet")
	h2 := e.HashKey("piet")
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64) // hex-encoded SHA-256
	require.NotEqual(t, h1, e.HashKey("klaas"))
}

func TestHashKeyNoneIsPassthrough(t *testing.T) {
	e, err := New("none", false, "")
	require.NoError(t, err)
	require.Equal(t, "piet", e.HashKey("piet"))
}

func TestNewRejectsUnknownHashAlgo(t *testing.T) {
	_, err := New("md5", false, "")
	require.Error(t, err)
}

func TestNewRequiresPassphraseWhenEncrypting(t *testing.T) {
	_, err := New("sha256", true, "")
	require.ErrorIs(t, err, ErrNoPassphrase)
}

func TestSealOpenRoundTrip(t *testing.T) {
	e, err := New("sha256", true, "s3cr3t")
	require.NoError(t, err)

	sealed, err := e.Seal([]byte("hello world"))
	require.NoError(t, err)
	require.NotEqual(t, []byte("hello world"), sealed)

	plain, err := e.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), plain)
}

func TestSealIsNondeterministic(t *testing.T) {
	e, err := New("sha256", true, "s3cr3t")
	require.NoError(t, err)

	a, err := e.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	b, err := e.Seal([]byte("same plaintext"))
	require.NoError(t, err)
	require.NotEqual(t, a, b, "random nonce must make ciphertext non-deterministic")
}

func TestOpenFailsWithWrongPassphrase(t *testing.T) {
	writer, err := New("sha256", true, "correct")
	require.NoError(t, err)
	reader, err := New("sha256", true, "wrong")
	require.NoError(t, err)

	sealed, err := writer.Seal([]byte("secret"))
	require.NoError(t, err)

	_, err = reader.Open(sealed)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestOpenFailsOnTamperedCiphertext(t *testing.T) {
	e, err := New("sha256", true, "s3cr3t")
	require.NoError(t, err)

	sealed, err := e.Seal([]byte("secret"))
	require.NoError(t, err)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = e.Open(tampered)
	require.ErrorIs(t, err, ErrAuthFailed)
}

func TestUnencryptedEnvelopeIsPassthrough(t *testing.T) {
	e, err := New("sha256", false, "")
	require.NoError(t, err)

	sealed, err := e.Seal([]byte("plain"))
	require.NoError(t, err)
	require.Equal(t, []byte("plain"), sealed)
	require.False(t, e.Encrypted())
}

func TestConstantTimeEqual(t *testing.T) {
	require.True(t, ConstantTimeEqual([]byte("abc"), []byte("abc")))
	require.False(t, ConstantTimeEqual([]byte("abc"), []byte("abd")))
	require.False(t, ConstantTimeEqual([]byte("abc"), []byte("abcd")))
}
