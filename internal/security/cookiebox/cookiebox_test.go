package cookiebox

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBox(t *testing.T) *Box {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	b, err := New(key)
	require.NoError(t, err)
	return b
}

func TestSealOpenRoundTrip(t *testing.T) {
	b := newTestBox(t)

	sealed, err := b.Seal([]byte(`{"uid":"abc","exp":123}`))
	require.NoError(t, err)
	assert.Contains(t, sealed, "|")
	assert.NotContains(t, sealed, "uid") // nada del plaintext visible

	plain, err := b.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"uid":"abc","exp":123}`, string(plain))
}

func TestSealNonceUnique(t *testing.T) {
	b := newTestBox(t)

	a, err := b.Seal([]byte("same"))
	require.NoError(t, err)
	c, err := b.Seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestOpenRejectsTampering(t *testing.T) {
	b := newTestBox(t)

	sealed, err := b.Seal([]byte("payload"))
	require.NoError(t, err)

	// Flip de un carácter del ciphertext
	tampered := sealed[:len(sealed)-1]
	if strings.HasSuffix(sealed, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}

	_, err = b.Open(tampered)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealed, err := newTestBox(t).Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = newTestBox(t).Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestOpenMalformed(t *testing.T) {
	b := newTestBox(t)

	for _, in := range []string{"", "solo-una-parte", "a|b|c", "!!!|!!!", "dG9v|"} {
		_, err := b.Open(in)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestNewRejectsBadKeyLength(t *testing.T) {
	_, err := New(make([]byte, 16))
	assert.Error(t, err)
}
