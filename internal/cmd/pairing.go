package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vanilla-wiiu/govanilla/internal/pairing"
)

// PairingShow prints the saved pairing.
type PairingShow struct {
	PairingFile string `help:"Pairing file to read" type:"path" env:"VANILLA_PAIRING_FILE"`
	ShowPSK     bool   `name:"show-psk" help:"Print the PSK instead of a masked value"`
}

func (p *PairingShow) Run() error {
	return p.print(os.Stdout)
}

func (p *PairingShow) print(w io.Writer) error {
	store, err := pairing.DefaultStore(p.PairingFile)
	if err != nil {
		return err
	}
	rec, err := store.Pairing()
	if err != nil {
		return err
	}
	psk := rec.PSK
	if !p.ShowPSK && len(psk) > 8 {
		psk = psk[:4] + strings.Repeat("*", len(psk)-8) + psk[len(psk)-4:]
	}
	fmt.Fprintf(w, "file:     %s\n", store.Path())
	fmt.Fprintf(w, "bssid:    %s\n", rec.BSSID)
	fmt.Fprintf(w, "psk:      %s\n", psk)
	if rec.Address != "" {
		fmt.Fprintf(w, "address:  %s\n", rec.Address)
	}
	if !rec.SyncedAt.IsZero() {
		fmt.Fprintf(w, "synced:   %s\n", rec.SyncedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}
