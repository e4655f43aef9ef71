package cmd

import (
	"github.com/alecthomas/kong"

	"github.com/vanilla-wiiu/govanilla/internal/log"
)

// Version is stamped at build time with -ldflags "-X".
var Version = "0.1.0-dev"

// CLI is the root command line of govanilla.
type CLI struct {
	Config      string           `help:"Path to a JSON, YAML or TOML configuration file" type:"path" env:"VANILLA_CONFIG"`
	Log         log.Config       `embed:"" prefix:"log."`
	ShowVersion kong.VersionFlag `name:"version" help:"Print the version and exit"`

	Server    Server        `cmd:"" help:"Run the gamepad engine behind the management API"`
	Sync      Sync          `cmd:"" help:"Pair with a console using the code shown on the TV"`
	Connect   Connect       `cmd:"" help:"Connect to a paired console and report the stream"`
	Pairing   PairingShow   `cmd:"" help:"Show the saved pairing"`
	Configure ConfigCommand `cmd:"" name:"config" help:"Configuration helpers"`
	Install   Install       `cmd:"" help:"Install the server as a system service"`
	Uninstall Uninstall     `cmd:"" help:"Remove the system service"`
}
