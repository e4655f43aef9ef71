package auth_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/internal/server/api/auth"
)

func TestGenerateKey(t *testing.T) {
	seen := make(map[string]bool)
	for range 8 {
		key, err := auth.GenerateKey()
		require.NoError(t, err)
		require.Len(t, key, auth.AutoGenKeyLength)
		for _, r := range key {
			assert.True(t, strings.ContainsRune(auth.Base62Chars, r), "unexpected %q in %s", r, key)
		}
		assert.False(t, seen[key], "key %s generated twice", key)
		seen[key] = true

		// Every generated key must be usable as an API password.
		_, err = auth.DeriveKey(key)
		assert.NoError(t, err)
	}
}

func BenchmarkDeriveKey(b *testing.B) {
	for b.Loop() {
		if _, err := auth.DeriveKey("swordfish"); err != nil {
			b.Fatal(err)
		}
	}
}

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		password string
		want     string
		wantErr  error
	}{
		{password: "password123", want: "05720d5903f58ab747a5f200d2e5be6cef8cdd3727a3df5ef1127decec6d4b29"},
		{password: "1", want: "bd206836d812489502617030ad1410ec147ec933a92a56655add3897710a5375"},
		{password: "swordfish", want: "ed94f55a527aedae8a1530409e3e525a09bc65608b2395e86d633df08182ae4a"},
		{password: "dkfghdfg90d78h350ß8dgfjkdfg#---23489dfg!!!@!@#$$%&/()=", want: "3e7187eb2d9809377314b956b8fdd5cc8d19500ee0a950217856bb627407ca0a"},
		{password: "", wantErr: auth.ErrEmptyPassword},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			key, err := auth.DeriveKey(tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, key)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key, auth.KeySize)
			assert.Equal(t, tt.want, hex.EncodeToString(key))
		})
	}
}

func TestDeriveSessionKey(t *testing.T) {
	key := make([]byte, auth.KeySize)
	serverNonce := make([]byte, 32)
	clientNonce := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
		serverNonce[i] = byte(i + 10)
		clientNonce[i] = byte(i + 20)
	}

	got := auth.DeriveSessionKey(key, serverNonce, clientNonce)
	assert.Equal(t, "d2943daf7facb1b0d2588283547a9417f3e361f3e08b24b3f345f1dc2114587d", hex.EncodeToString(got))

	// Both sides must pass the nonces in the same order.
	swapped := auth.DeriveSessionKey(key, clientNonce, serverNonce)
	assert.Equal(t, "4cfd697e079c79f7d6170edcbaae638ad86f74572abae30189432bc01a7ae89e", hex.EncodeToString(swapped))

	clientNonce[0] ^= 0xff
	assert.NotEqual(t, got, auth.DeriveSessionKey(key, serverNonce, clientNonce))
}
