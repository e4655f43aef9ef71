package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/vanilla-wiiu/govanilla/apitypes"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/server/api"
	apierror "github.com/vanilla-wiiu/govanilla/internal/server/api/error"
)

func decode(payload string, v any) error {
	if payload == "" {
		return apierror.ErrBadRequest("missing payload")
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return apierror.ErrBadRequest(fmt.Sprintf("invalid payload: %v", err))
	}
	return nil
}

// InputTouch moves or lifts the touch point.
func InputTouch(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var tr apitypes.TouchRequest
		if err := decode(req.Payload, &tr); err != nil {
			return err
		}
		e.SetTouch(tr.X, tr.Y)
		return nil
	}
}

// InputButton presses, releases or moves a named button or axis.
func InputButton(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var br apitypes.ButtonRequest
		if err := decode(req.Payload, &br); err != nil {
			return err
		}
		b, err := gamepad.ParseButton(br.Button)
		if err != nil {
			return apierror.ErrBadRequest(err.Error())
		}
		return engineError(e.SetButton(b, br.Value))
	}
}

func InputRegion(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var rr apitypes.RegionRequest
		if err := decode(req.Payload, &rr); err != nil {
			return err
		}
		e.SetRegion(rr.Region)
		return nil
	}
}

func InputBattery(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var br apitypes.BatteryRequest
		if err := decode(req.Payload, &br); err != nil {
			return err
		}
		if br.Status > gamepad.BatteryFull {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid battery status %d", br.Status))
		}
		e.SetBatteryStatus(br.Status)
		return nil
	}
}

// VideoIDR asks the console for a full frame.
func VideoIDR(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		e.RequestIDR()
		return nil
	}
}
