package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanilla-wiiu/govanilla/apitypes"
	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/event"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/log"
	"github.com/vanilla-wiiu/govanilla/internal/pairing"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

type Sync struct {
	Engine      gamepad.Config `embed:""`
	Code        string         `arg:"" help:"Four digit code shown on the TV"`
	Address     string         `help:"Console address: local, direct or the bridge IPv4 address" default:"local" env:"VANILLA_ADDRESS"`
	Save        bool           `help:"Save the credentials for later connects" default:"true" negatable:""`
	PairingFile string         `help:"Pairing file to write" type:"path" env:"VANILLA_PAIRING_FILE"`
}

func (s *Sync) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := s.Execute(ctx, gamepad.New(s.Engine, logger, rawLogger), logger)
	if err != nil {
		return err
	}
	fmt.Printf("bssid: %s\npsk:   %s\n", creds.BSSIDString(), creds.PSKString())
	return nil
}

// Execute runs one sync on e, saves the result when asked to and closes e.
func (s *Sync) Execute(ctx context.Context, e *gamepad.Engine, logger *slog.Logger) (pipe.Credentials, error) {
	defer e.Close()

	code, err := apitypes.ParseSyncCode(s.Code)
	if err != nil {
		return pipe.Credentials{}, err
	}
	addr, err := channel.ParseAddress(s.Address)
	if err != nil {
		return pipe.Credentials{}, err
	}
	var store *pairing.Store
	if s.Save {
		if store, err = pairing.DefaultStore(s.PairingFile); err != nil {
			return pipe.Credentials{}, err
		}
	}

	if err := e.StartSync(addr, code); err != nil {
		return pipe.Credentials{}, err
	}
	stop := context.AfterFunc(ctx, e.Interrupt)
	defer stop()

	logger.Info("Waiting for the console; open the sync screen on the TV", "address", addr)
	creds, err := awaitSync(e)
	if err != nil {
		return creds, fmt.Errorf("sync failed: %w", err)
	}
	logger.Info("Synced", "bssid", creds.BSSIDString())

	if store != nil {
		if err := store.Save(creds, addr.String()); err != nil {
			return creds, fmt.Errorf("save pairing: %w", err)
		}
		logger.Info("Pairing saved", "path", store.Path())
	}
	return creds, nil
}

// awaitSync blocks for the terminal event of a sync session.
func awaitSync(e *gamepad.Engine) (pipe.Credentials, error) {
	for {
		ev, ok := e.PullEvent(true)
		if !ok {
			return pipe.Credentials{}, errors.New("event queue closed")
		}
		switch ev.Kind {
		case event.KindSync:
			creds, err := gamepad.DecodeSyncEvent(ev)
			ev.Release()
			return creds, err
		case event.KindError:
			st, err := gamepad.DecodeErrorEvent(ev)
			ev.Release()
			if err != nil {
				return pipe.Credentials{}, err
			}
			return pipe.Credentials{}, st
		default:
			ev.Release()
		}
	}
}
