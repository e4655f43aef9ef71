// Package pairing persists the credentials obtained by a successful sync so
// later connects do not need them on the command line.
package pairing

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanilla-wiiu/govanilla/internal/configpaths"
	"github.com/vanilla-wiiu/govanilla/pipe"
)

// DefaultFileName is the pairing file inside the configuration directory.
const DefaultFileName = "pairing.yaml"

var ErrNotPaired = errors.New("no console paired yet")

// Pairing is the on-disk record of one console.
type Pairing struct {
	BSSID    string    `yaml:"bssid"`
	PSK      string    `yaml:"psk"`
	Address  string    `yaml:"address,omitempty"`
	SyncedAt time.Time `yaml:"syncedAt"`
}

// Credentials parses the stored credentials.
func (p Pairing) Credentials() (pipe.Credentials, error) {
	return pipe.ParseCredentials(p.BSSID, p.PSK)
}

// Store reads and writes a pairing file.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// DefaultStore returns the store at the default location, or at path when set.
func DefaultStore(path string) (*Store, error) {
	if path != "" {
		return NewStore(path), nil
	}
	p, err := configpaths.DefaultFile(DefaultFileName)
	if err != nil {
		return nil, fmt.Errorf("resolve pairing file: %w", err)
	}
	return NewStore(p), nil
}

func (s *Store) Path() string { return s.path }

// Pairing returns the stored record, or ErrNotPaired when there is none.
func (s *Store) Pairing() (*Pairing, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotPaired
	}
	if err != nil {
		return nil, err
	}
	var p Pairing
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if p.BSSID == "" && p.PSK == "" {
		return nil, ErrNotPaired
	}
	return &p, nil
}

// Load returns the stored credentials.
func (s *Store) Load() (pipe.Credentials, error) {
	p, err := s.Pairing()
	if err != nil {
		return pipe.Credentials{}, err
	}
	c, err := p.Credentials()
	if err != nil {
		return c, fmt.Errorf("%s: %w", s.path, err)
	}
	return c, nil
}

// Save replaces the stored record. The file is written with owner-only
// permissions since the PSK grants access to the console network.
func (s *Store) Save(creds pipe.Credentials, address string) error {
	data, err := yaml.Marshal(Pairing{
		BSSID:    creds.BSSIDString(),
		PSK:      creds.PSKString(),
		Address:  address,
		SyncedAt: time.Now().UTC().Truncate(time.Second),
	})
	if err != nil {
		return err
	}
	if err := configpaths.EnsureDir(s.path); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
