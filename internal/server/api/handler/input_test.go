package handler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanilla-wiiu/govanilla/apiclient"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/server/api"
	"github.com/vanilla-wiiu/govanilla/internal/server/api/handler"
	th "github.com/vanilla-wiiu/govanilla/internal/testing"
)

func TestInputHandlers(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		payload    string
		wantStatus int
		check      func(t *testing.T, in gamepad.InputState)
	}{
		{
			name:    "touch",
			path:    "input/touch",
			payload: `{"x":100,"y":9000}`,
			check: func(t *testing.T, in gamepad.InputState) {
				assert.True(t, in.Touching)
				assert.Equal(t, uint16(100), in.TouchX)
				assert.Equal(t, uint16(gamepad.TouchMaxY), in.TouchY)
			},
		},
		{
			name:    "touch lift",
			path:    "input/touch",
			payload: `{"x":-1,"y":-1}`,
			check:   func(t *testing.T, in gamepad.InputState) { assert.False(t, in.Touching) },
		},
		{
			name:    "button press",
			path:    "input/button",
			payload: `{"button":"A","value":1}`,
			check:   func(t *testing.T, in gamepad.InputState) { assert.Equal(t, gamepad.BtnA, in.Buttons) },
		},
		{
			name:    "axis",
			path:    "input/button",
			payload: `{"button":"left-x","value":-40000}`,
			check:   func(t *testing.T, in gamepad.InputState) { assert.Equal(t, int16(-32768), in.LX) },
		},
		{name: "unknown button", path: "input/button", payload: `{"button":"turbo","value":1}`, wantStatus: 400},
		{name: "missing payload", path: "input/button", wantStatus: 400},
		{
			name:    "region",
			path:    "input/region",
			payload: `{"region":2}`,
			check:   func(t *testing.T, in gamepad.InputState) { assert.Equal(t, uint8(2), in.Region) },
		},
		{
			name:    "battery",
			path:    "input/battery",
			payload: `{"status":4}`,
			check:   func(t *testing.T, in gamepad.InputState) { assert.Equal(t, gamepad.BatteryLow, in.Battery) },
		},
		{name: "battery out of range", path: "input/battery", payload: `{"status":9}`, wantStatus: 400},
		{
			name: "idr without session",
			path: "video/idr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, e, done := th.StartAPIServer(t, t.TempDir(), api.ServerConfig{}, func(r *api.Router, e *gamepad.Engine, apiSrv *api.Server) {
				r.Register("input/touch", handler.InputTouch(e))
				r.Register("input/button", handler.InputButton(e))
				r.Register("input/region", handler.InputRegion(e))
				r.Register("input/battery", handler.InputBattery(e))
				r.Register("video/idr", handler.VideoIDR(e))
			})
			defer done()

			var payload any
			if tt.payload != "" {
				payload = tt.payload
			}
			line, err := apiclient.NewTransport(addr).Do(tt.path, payload, nil)
			require.NoError(t, err)
			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, problem(t, line).Status)
				return
			}
			assert.Empty(t, line)
			if tt.check != nil {
				tt.check(t, e.Input())
			}
		})
	}
}
