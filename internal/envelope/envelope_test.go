package envelope_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ouhud/qrlink/internal/envelope"
)

const testSecret = "8f3a2b1c4d5e6f708192a3b4c5d6e7f8091a2b3c4d5e6f708192a3b4c5d6e7f8"

type payload struct {
	URL    string            `json:"url,omitempty"`
	SSID   string            `json:"ssid,omitempty"`
	Hidden bool              `json:"hidden,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

func TestNewRejectsBadSecret(t *testing.T) {
	assert := assert.New(t)

	_, err := envelope.New("")
	assert.ErrorIs(err, envelope.ErrBadSecret)

	_, err = envelope.New("deadbeef") // too short
	assert.ErrorIs(err, envelope.ErrBadSecret)

	_, err = envelope.New(strings.Repeat("zz", 32)) // not hex
	assert.ErrorIs(err, envelope.ErrBadSecret)

	_, err = envelope.New(testSecret)
	assert.NoError(err)
}

func TestRoundTrip(t *testing.T) {
	require := require.New(t)
	env, err := envelope.New(testSecret)
	require.NoError(err)

	in := payload{
		URL:    "https://example.com/x?a=1",
		SSID:   "Café Gästezugang", // non-ASCII must survive
		Hidden: true,
		Extra:  map[string]string{"k": "v"},
	}
	blob, err := env.Encrypt(in)
	require.NoError(err)
	require.NotEmpty(blob)

	var out payload
	require.True(env.Decrypt(blob, &out))
	require.Equal(in, out)
}

func TestEncryptIsSaltedPerCall(t *testing.T) {
	require := require.New(t)
	env, err := envelope.New(testSecret)
	require.NoError(err)

	in := payload{URL: "https://example.com"}
	a, err := env.Encrypt(in)
	require.NoError(err)
	b, err := env.Encrypt(in)
	require.NoError(err)

	// Fresh salt and nonce per call: identical payloads never produce
	// identical blobs.
	require.NotEqual(a, b)

	rawA, err := base64.StdEncoding.DecodeString(a)
	require.NoError(err)
	rawB, err := base64.StdEncoding.DecodeString(b)
	require.NoError(err)
	require.NotEqual(rawA[:16], rawB[:16], "salts must differ")
}

func TestTamperDetection(t *testing.T) {
	require := require.New(t)
	env, err := envelope.New(testSecret)
	require.NoError(err)

	blob, err := env.Encrypt(payload{URL: "https://example.com"})
	require.NoError(err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(err)

	// Flip one bit in every ciphertext/tag byte in turn; GCM must reject
	// each mutation.
	for i := 28; i < len(raw); i++ {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01

		var out payload
		ok := env.Decrypt(base64.StdEncoding.EncodeToString(mutated), &out)
		require.Falsef(ok, "decrypt accepted blob with byte %d flipped", i)
	}
}

func TestKeyIsolation(t *testing.T) {
	require := require.New(t)
	envA, err := envelope.New(testSecret)
	require.NoError(err)
	envB, err := envelope.New("00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")
	require.NoError(err)

	blob, err := envA.Encrypt(payload{URL: "https://example.com"})
	require.NoError(err)

	var out payload
	require.False(envB.Decrypt(blob, &out), "foreign master secret must not open the blob")
}

func TestDecryptIsTotal(t *testing.T) {
	assert := assert.New(t)
	env, err := envelope.New(testSecret)
	assert.NoError(err)

	var out payload
	assert.False(env.Decrypt("", &out))
	assert.False(env.Decrypt("not base64 !!!", &out))
	// Valid base64 but shorter than salt+nonce.
	assert.False(env.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")), &out))
	// Valid base64, right length, garbage content.
	assert.False(env.Decrypt(base64.StdEncoding.EncodeToString(make([]byte, 64)), &out))
}
