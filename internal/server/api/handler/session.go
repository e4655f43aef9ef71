package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vanilla-wiiu/govanilla/apitypes"
	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/server/api"
	apierror "github.com/vanilla-wiiu/govanilla/internal/server/api/error"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

// CredentialLoader supplies credentials saved by an earlier sync.
type CredentialLoader interface {
	Load() (pipe.Credentials, error)
}

func sessionResponse(e *gamepad.Engine, res *api.Response) error {
	st := e.Stats()
	out, err := json.Marshal(apitypes.SessionResponse{Session: st.Session, State: st.State.String()})
	if err != nil {
		return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
	}
	res.JSON = string(out)
	return nil
}

func parseAddress(s string) (channel.Address, error) {
	addr, err := channel.ParseAddress(s)
	if err != nil {
		return addr, apierror.ErrBadRequest(fmt.Sprintf("invalid address: %v", err))
	}
	return addr, nil
}

// SessionState returns the state and counters of the current session.
func SessionState(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		st := e.Stats()
		out, err := json.Marshal(apitypes.SessionState{
			Session: st.Session,
			Address: st.Address,
			State:   st.State.String(),
			Running: e.Running(),
			Queue: apitypes.QueueStats{
				Produced: st.Queue.Produced,
				Consumed: st.Queue.Consumed,
				Evicted:  st.Queue.Evicted,
				Dropped:  st.Queue.Dropped,
			},
			VideoPackets: st.VideoPackets,
			VideoGaps:    st.VideoGaps,
			AudioPackets: st.AudioPackets,
			Messages:     st.Messages,
			Commands:     st.Commands,
			InputReports: st.InputReports,
			Malformed:    st.Malformed,
			PushFailures: st.PushFailures,
		})
		if err != nil {
			return apierror.ErrInternal(fmt.Sprintf("failed to marshal response: %v", err))
		}
		res.JSON = string(out)
		return nil
	}
}

// SessionSync starts pairing with the code shown on the TV.
func SessionSync(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		if req.Payload == "" {
			return apierror.ErrBadRequest("missing sync request")
		}
		var sr apitypes.SyncRequest
		if err := json.Unmarshal([]byte(req.Payload), &sr); err != nil {
			return apierror.ErrBadRequest(fmt.Sprintf("invalid sync request: %v", err))
		}
		addr, err := parseAddress(sr.Address)
		if err != nil {
			return err
		}
		if err := e.StartSync(addr, sr.Code); err != nil {
			return engineError(err)
		}
		logger.Info("sync requested", "address", addr)
		return sessionResponse(e, res)
	}
}

// SessionConnect connects with the given credentials. Without bssid and psk
// it falls back to the credentials saved by the last successful sync.
func SessionConnect(e *gamepad.Engine, saved CredentialLoader) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		var cr apitypes.ConnectRequest
		if req.Payload != "" {
			if err := json.Unmarshal([]byte(req.Payload), &cr); err != nil {
				return apierror.ErrBadRequest(fmt.Sprintf("invalid connect request: %v", err))
			}
		}
		addr, err := parseAddress(cr.Address)
		if err != nil {
			return err
		}

		var creds pipe.Credentials
		switch {
		case cr.BSSID != "" || cr.PSK != "":
			creds, err = pipe.ParseCredentials(cr.BSSID, cr.PSK)
			if err != nil {
				return apierror.ErrBadRequest(fmt.Sprintf("invalid credentials: %v", err))
			}
		case saved != nil:
			creds, err = saved.Load()
			if err != nil {
				return apierror.ErrNotFound(fmt.Sprintf("no saved credentials: %v", err))
			}
		default:
			return apierror.ErrBadRequest("missing credentials")
		}

		if err := e.StartConnect(addr, creds); err != nil {
			return engineError(err)
		}
		logger.Info("connect requested", "address", addr, "bssid", creds.BSSIDString())
		return sessionResponse(e, res)
	}
}

// SessionInterrupt interrupts the running session and waits for its worker
// to exit, or for the client to give up.
func SessionInterrupt(e *gamepad.Engine) api.HandlerFunc {
	return func(req *api.Request, res *api.Response, logger *slog.Logger) error {
		e.Interrupt()
		done := make(chan struct{})
		go func() {
			e.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-req.Ctx.Done():
			return engineError(errors.Join(pipe.ErrInterrupted, req.Ctx.Err()))
		}
		return sessionResponse(e, res)
	}
}
