package handler_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/apitypes"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

func creds(t *testing.T) pipe.Credentials {
	t.Helper()
	c, err := pipe.ParseCredentials("00:11:22:33:44:55", "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff")
	require.NoError(t, err)
	return c
}

// problem decodes a problem+json line; it fails the test on any other line.
func problem(t *testing.T, line string) apitypes.ApiError {
	t.Helper()
	var e apitypes.ApiError
	require.NoError(t, json.Unmarshal([]byte(line), &e), line)
	require.NotZero(t, e.Status, line)
	return e
}
