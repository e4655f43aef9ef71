package handler

import (
	"errors"

	"github.com/vanilla-wiiu/govanilla/gamepad"
	apierror "github.com/vanilla-wiiu/govanilla/internal/server/api/error"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

// engineError maps engine failures onto problem+json errors.
func engineError(err error) error {
	var st pipe.Status
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gamepad.ErrBusy):
		return apierror.ErrConflict(err.Error())
	case errors.Is(err, gamepad.ErrClosed):
		return apierror.ErrUnavailable(err.Error())
	case errors.As(err, &st) && st == pipe.StatusInvalidArgument:
		return apierror.ErrBadRequest(err.Error())
	default:
		return apierror.ErrInternal(err.Error())
	}
}
