// Package roster reads signup lists from YAML, e.g.
//
//	players:
//	  - nick: RED_scout
//	    roles: [scout]
//	    captain: true
//	  - nick: flex
//	    roles: [soldier, demoman]
package roster

import (
	"fmt"
	"os"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/hl-pug-backend/internal/engine"
)

type Player struct {
	Nick    string   `yaml:"nick"`
	Roles   []string `yaml:"roles"`
	Captain bool     `yaml:"captain"`
}

type Roster struct {
	Players []Player `yaml:"players"`
}

// Entry is a validated player ready for engine.Add.
type Entry struct {
	Nick    string
	Roles   []engine.Role
	Captain bool
}

func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a roster, reporting every bad entry at once.
func Parse(data []byte) ([]Entry, error) {
	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	var errs error
	seen := map[string]bool{}
	entries := make([]Entry, 0, len(r.Players))
	for i, p := range r.Players {
		if p.Nick == "" {
			errs = multierr.Append(errs, fmt.Errorf("player %d: %w", i, engine.ErrEmptyNickname))
			continue
		}
		if seen[p.Nick] {
			errs = multierr.Append(errs, fmt.Errorf("player %d: duplicate nick %q", i, p.Nick))
			continue
		}
		seen[p.Nick] = true

		if len(p.Roles) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("player %s: %w", p.Nick, engine.ErrMissingRole))
			continue
		}
		e := Entry{Nick: p.Nick, Captain: p.Captain}
		for _, name := range p.Roles {
			role, err := engine.ParseRole(name)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("player %s: %w", p.Nick, err))
				continue
			}
			e.Roles = append(e.Roles, role)
		}
		if len(e.Roles) == len(p.Roles) {
			entries = append(entries, e)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return entries, nil
}

// Apply signs every entry up on e.
func Apply(e *engine.Engine, entries []Entry) error {
	for _, en := range entries {
		if err := e.Add(en.Nick, en.Roles, en.Captain); err != nil {
			return err
		}
	}
	return nil
}
