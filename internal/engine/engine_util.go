package engine

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
)

// RandomCaptains draws two distinct captain volunteers uniformly at random.
// Index 0 captains team 0.
func RandomCaptains(pool map[string]Signup) ([2]string, error) {
	eligible := make([]string, 0, len(pool))
	for nick, s := range pool {
		if s.Captain {
			eligible = append(eligible, nick)
		}
	}
	if len(eligible) < CaptainsNeeded {
		return [2]string{}, fmt.Errorf("%w: have %d", ErrInsufficientCaptains, len(eligible))
	}
	slices.Sort(eligible)

	first := rand.IntN(len(eligible))
	second := rand.IntN(len(eligible) - 1)
	if second >= first {
		second++
	}
	return [2]string{eligible[first], eligible[second]}, nil
}

// State is a detached copy of everything an engine knows, for snapshots.
type State struct {
	Phase       Phase             `json:"phase"`
	Unstaged    map[string]Signup `json:"unstaged"`
	Staged      map[string]Signup `json:"staged,omitempty"`
	Captains    []string          `json:"captains,omitempty"`
	Teams       []Team            `json:"teams,omitempty"`
	PickingTeam *int              `json:"picking_team,omitempty"`
	Need        Need              `json:"need"`
}

func (e *Engine) Snapshot() State {
	s := State{
		Phase:    e.Phase(),
		Unstaged: e.Unstaged(),
		Need:     e.Need(),
	}
	if captains, ok := e.Captains(); ok {
		teams := e.Teams()
		picking := e.pickingTeam
		s.Staged = e.Staged()
		s.Captains = captains[:]
		s.Teams = teams[:]
		s.PickingTeam = &picking
	}
	return s
}

// OpenRoles lists the roles team still has to draft, in display order,
// leaving out the role its captain will take at finalize.
func (e *Engine) OpenRoles(team int) []Role {
	if e.captains == nil || team < 0 || team >= TeamCount {
		return nil
	}
	reserved, _ := captainRole(e.teams[team], e.captainSignups[team])
	open := []Role{}
	for _, r := range Roles {
		if _, taken := e.teams[team][r]; taken || r == reserved {
			continue
		}
		open = append(open, r)
	}
	return open
}

// SortedNicks returns the pool's nicknames in lexical order.
func SortedNicks(pool map[string]Signup) []string {
	return slices.Sorted(maps.Keys(pool))
}
