package pairing_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/internal/pairing"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pairing.yaml")
	s := pairing.NewStore(path)

	_, err := s.Load()
	assert.ErrorIs(t, err, pairing.ErrNotPaired)

	creds, err := pipe.ParseCredentials("a0-b1-c2-d3-e4-f5", "ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00ff00")
	require.NoError(t, err)
	require.NoError(t, s.Save(creds, "local"))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	p, err := s.Pairing()
	require.NoError(t, err)
	assert.Equal(t, "a0:b1:c2:d3:e4:f5", p.BSSID)
	assert.Equal(t, "local", p.Address)
	assert.False(t, p.SyncedAt.IsZero())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
		errText string
	}{
		{name: "empty file", content: "", wantErr: pairing.ErrNotPaired},
		{name: "not yaml", content: "bssid: [", errText: "parse"},
		{name: "bad psk", content: "bssid: 00:11:22:33:44:55\npsk: abc\n", errText: "psk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pairing.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			_, err := pairing.NewStore(path).Load()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.ErrorContains(t, err, tt.errText)
		})
	}
}
