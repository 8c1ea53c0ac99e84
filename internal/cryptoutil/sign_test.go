package cryptoutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignAndVerify(t *testing.T) {
	key := []byte("secret")
	payload := []byte(`{"events":[]}`)

	sig := Sign(key, payload)
	assert.Len(t, sig, 64)
	assert.Equal(t, sig, Sign(key, payload))

	assert.True(t, Verify(key, payload, sig))
	assert.False(t, Verify([]byte("other"), payload, sig))
	assert.False(t, Verify(key, []byte("tampered"), sig))
	assert.False(t, Verify(key, payload, "not-hex"))
}
