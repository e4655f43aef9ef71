package api

import "time"

// ServerConfig represents the management API configuration of the server command.
type ServerConfig struct {
	Addr              string        `help:"API server listen address" default:"localhost:3243" env:"VANILLA_API_ADDR"`
	RequireAuth       bool          `help:"Require the password handshake from every client" default:"true" negatable:"" env:"VANILLA_API_REQUIRE_AUTH"`
	ConnectionTimeout time.Duration `help:"Time a client has to send its request" default:"30s" env:"VANILLA_API_CONNECTION_TIMEOUT"`
	Password          string        `kong:"-"`
}
