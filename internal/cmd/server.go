package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/vanilla-wiiu/govanilla/gamepad"
	"github.com/vanilla-wiiu/govanilla/internal/configpaths"
	"github.com/vanilla-wiiu/govanilla/internal/log"
	"github.com/vanilla-wiiu/govanilla/internal/pairing"
	"github.com/vanilla-wiiu/govanilla/internal/server/api"
	"github.com/vanilla-wiiu/govanilla/internal/server/api/auth"
	"github.com/vanilla-wiiu/govanilla/internal/server/api/handler"
)

const keyFileName = "vanilla.key.txt"

type Server struct {
	Engine          gamepad.Config   `embed:""`
	ApiServerConfig api.ServerConfig `embed:"" prefix:"api."`
	KeyFile         string           `help:"File holding the API password; generated when missing" type:"path" env:"VANILLA_KEY_FILE"`
	PairingFile     string           `help:"Pairing file used when session/connect carries no credentials" type:"path" env:"VANILLA_PAIRING_FILE"`
}

// Run is called by Kong when the server command is executed.
func (s *Server) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.StartServer(ctx, logger, rawLogger)
}

// StartServer serves the management API until ctx is done.
func (s *Server) StartServer(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	if s.ApiServerConfig.Addr == "" {
		return errors.New("API server address must be set (default localhost:3243)")
	}

	if s.ApiServerConfig.RequireAuth && s.ApiServerConfig.Password == "" {
		keyFile := s.KeyFile
		if keyFile == "" {
			var err error
			if keyFile, err = configpaths.DefaultFile(keyFileName); err != nil {
				return fmt.Errorf("failed to resolve key file path: %w", err)
			}
		}
		pwd, err := loadOrCreateKey(keyFile, logger)
		if err != nil {
			return err
		}
		s.ApiServerConfig.Password = pwd
	} else if !s.ApiServerConfig.RequireAuth {
		logger.Warn("API authentication is disabled; anyone who can reach the port controls the gamepad", "addr", s.ApiServerConfig.Addr)
	}

	store, err := pairing.DefaultStore(s.PairingFile)
	if err != nil {
		return err
	}

	e := gamepad.New(s.Engine, logger, rawLogger)
	defer e.Close()

	apiSrv := api.New(e, s.ApiServerConfig.Addr, s.ApiServerConfig, logger)
	registerRoutes(apiSrv.Router(), e, store)

	logger.Info("Starting govanilla", "version", Version, "addr", s.ApiServerConfig.Addr, "pairing", store.Path())
	if err := apiSrv.Start(); err != nil {
		logger.Error("failed to start API server", "error", err)
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	apiSrv.Close()
	return nil
}

func registerRoutes(r *api.Router, e *gamepad.Engine, store handler.CredentialLoader) {
	r.Register("ping", handler.Ping(Version))
	r.Register("session/state", handler.SessionState(e))
	r.Register("session/sync", handler.SessionSync(e))
	r.Register("session/connect", handler.SessionConnect(e, store))
	r.Register("session/interrupt", handler.SessionInterrupt(e))
	r.Register("input/touch", handler.InputTouch(e))
	r.Register("input/button", handler.InputButton(e))
	r.Register("input/region", handler.InputRegion(e))
	r.Register("input/battery", handler.InputBattery(e))
	r.Register("video/idr", handler.VideoIDR(e))
	r.RegisterStream("events", handler.Events(e))
}

// loadOrCreateKey returns the password stored in path, generating and
// writing a new one when the file does not exist.
func loadOrCreateKey(path string, logger *slog.Logger) (string, error) {
	if pwd, err := os.ReadFile(path); err == nil {
		if p := strings.TrimSpace(string(pwd)); p != "" {
			return p, nil
		}
		return "", fmt.Errorf("key file %s is empty", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read key file: %w", err)
	}

	newPwd, err := auth.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate new API password: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config dir for key file: %w", err)
	}
	if err := os.WriteFile(path, []byte(newPwd), 0o600); err != nil {
		return "", fmt.Errorf("failed to write new API password to file: %w", err)
	}
	logger.Info("Generated API server password", "path", path)
	logger.Info("-------------------------------------")
	logger.Info("Your govanilla API server password is:")
	logger.Info("-------------------------------------")
	logger.Info(newPwd)
	logger.Info("-------------------------------------")
	logger.Info("You can change this password at any time by editing the file")
	return newPwd, nil
}
