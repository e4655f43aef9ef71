package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanilla-wiiu/govanilla/channel"
	"github.com/vanilla-wiiu/govanilla/event"
	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/log"
	"github.com/vanilla-wiiu/govanilla/internal/pairing"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

type Connect struct {
	Engine        gamepad.Config `embed:""`
	Address       string         `help:"Console address: local, direct or the bridge IPv4 address" default:"local" env:"VANILLA_ADDRESS"`
	BSSID         string         `name:"bssid" help:"Console BSSID; defaults to the saved pairing" env:"VANILLA_BSSID"`
	PSK           string         `name:"psk" help:"Console PSK as 64 hex digits; defaults to the saved pairing" env:"VANILLA_PSK"`
	PairingFile   string         `help:"Pairing file to read" type:"path" env:"VANILLA_PAIRING_FILE"`
	StatsInterval time.Duration  `help:"Period of the stream statistics log line; 0 disables it" default:"5s"`
	VideoOut      string         `help:"Write every video payload to this file" type:"path"`
	AudioOut      string         `help:"Write every audio payload to this file" type:"path"`
}

func (c *Connect) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.Execute(ctx, gamepad.New(c.Engine, logger, rawLogger), logger)
}

func (c *Connect) credentials() (pipe.Credentials, error) {
	if c.BSSID != "" || c.PSK != "" {
		return pipe.ParseCredentials(c.BSSID, c.PSK)
	}
	store, err := pairing.DefaultStore(c.PairingFile)
	if err != nil {
		return pipe.Credentials{}, err
	}
	creds, err := store.Load()
	if errors.Is(err, pairing.ErrNotPaired) {
		return creds, errors.New("no credentials given and no console paired yet; run sync first")
	}
	return creds, err
}

// Execute runs a session on e until ctx is done or the session fails. Closing
// e on return interrupts the session and waits for its teardown.
func (c *Connect) Execute(ctx context.Context, e *gamepad.Engine, logger *slog.Logger) error {
	defer e.Close()

	creds, err := c.credentials()
	if err != nil {
		return err
	}
	addr, err := channel.ParseAddress(c.Address)
	if err != nil {
		return err
	}

	sinks := map[event.Kind]io.Writer{}
	for kind, path := range map[event.Kind]string{event.KindVideo: c.VideoOut, event.KindAudio: c.AudioOut} {
		if path == "" {
			continue
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		sinks[kind] = f
	}

	if err := e.StartConnect(addr, creds); err != nil {
		return err
	}
	logger.Info("Connecting", "address", addr, "bssid", creds.BSSIDString())

	if c.StatsInterval > 0 {
		statsCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go logStats(statsCtx, e, c.StatsInterval, logger)
	}

	for {
		ev, ok := e.PullEventContext(ctx)
		if !ok {
			logger.Info("Disconnecting")
			return nil
		}
		err := handleEvent(ev, sinks, logger)
		ev.Release()
		if err != nil {
			return err
		}
	}
}

func handleEvent(ev *event.Event, sinks map[event.Kind]io.Writer, logger *slog.Logger) error {
	switch ev.Kind {
	case event.KindVibrate:
		on, err := gamepad.DecodeVibrateEvent(ev)
		if err != nil {
			logger.Warn("malformed vibrate event", "error", err)
			return nil
		}
		logger.Info("Rumble", "on", on)
	case event.KindError:
		st, err := gamepad.DecodeErrorEvent(ev)
		if err != nil {
			return err
		}
		return st
	case event.KindVideo, event.KindAudio:
		if w, ok := sinks[ev.Kind]; ok {
			if _, err := w.Write(ev.Data()); err != nil {
				return fmt.Errorf("write %s: %w", ev.Kind, err)
			}
		}
	}
	return nil
}

func logStats(ctx context.Context, e *gamepad.Engine, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := e.Stats()
			logger.Info("Stream",
				"state", st.State,
				"video", st.VideoPackets,
				"videoGaps", st.VideoGaps,
				"audio", st.AudioPackets,
				"inputReports", st.InputReports,
				"evicted", st.Queue.Evicted,
				"dropped", st.Queue.Dropped,
			)
		}
	}
}
