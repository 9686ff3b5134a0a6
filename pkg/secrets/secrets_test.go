package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func TestCipherRoundTrip(t *testing.T) {
	c, err := NewCipher(newKey(t))
	require.NoError(t, err)

	sealed, err := c.Seal("123456782")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "123456782")

	again, err := c.Seal("123456782")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonces are random")

	plain, err := c.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "123456782", plain)
}

func TestCipherEmptyValues(t *testing.T) {
	c, err := NewCipher(newKey(t))
	require.NoError(t, err)

	sealed, err := c.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	plain, err := c.Open("")
	require.NoError(t, err)
	assert.Empty(t, plain)
}

func TestCipherRejectsForeignCiphertext(t *testing.T) {
	a, err := NewCipher(newKey(t))
	require.NoError(t, err)
	b, err := NewCipher(newKey(t))
	require.NoError(t, err)

	sealed, err := a.Seal("123456782")
	require.NoError(t, err)

	_, err = b.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	_, err = a.Open("not base64!")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	_, err = a.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestNewCipherKeyLength(t *testing.T) {
	_, err := NewCipher(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
	_, err = NewCipher("%%%")
	assert.Error(t, err)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "123 456 782", FormatTFN("123456782"))
	assert.Equal(t, "1234", FormatTFN("12-34"))
	assert.Equal(t, "51 824 753 556", FormatABN("51824753556"))
	assert.Equal(t, "062-000", FormatBSB("062 000"))
	assert.Equal(t, "••• ••• 782", MaskTFN("123 456 782"))
	assert.Empty(t, MaskTFN("12"))
}
