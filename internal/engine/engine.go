package engine

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap"
)

var ErrMissingRole = errors.New("at least one role is required")
var ErrUnknownRole = errors.New("unknown role")
var ErrEmptyNickname = errors.New("nickname is empty")
var ErrPlayerNotFound = errors.New("player not found")
var ErrPlayerInDraft = errors.New("player is part of the running draft")
var ErrPlayerNotStaged = errors.New("player is not available to pick")
var ErrRoleAlreadyPicked = errors.New("role already picked")
var ErrRoleNotEligible = errors.New("player did not sign up for role")
var ErrInsufficientCaptains = errors.New("need two captains")
var ErrInvalidCaptains = errors.New("invalid captain selection")
var ErrAlreadyDrafting = errors.New("draft already running")
var ErrNotDrafting = errors.New("no draft running")

type Role string

const (
	RoleScout    Role = "scout"
	RoleSoldier  Role = "soldier"
	RolePyro     Role = "pyro"
	RoleDemoman  Role = "demoman"
	RoleHeavy    Role = "heavy"
	RoleEngineer Role = "engineer"
	RoleMedic    Role = "medic"
	RoleSniper   Role = "sniper"
	RoleSpy      Role = "spy"
)

// Roles is the Highlander class universe in display order.
var Roles = []Role{
	RoleScout,
	RoleSoldier,
	RolePyro,
	RoleDemoman,
	RoleHeavy,
	RoleEngineer,
	RoleMedic,
	RoleSniper,
	RoleSpy,
}

const (
	TeamCount       = 2
	PlayersPerRole  = TeamCount
	CaptainsNeeded  = TeamCount
	PlayersRequired = TeamCount * roleCount

	roleCount = 9
)

func ParseRole(name string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(name)))
	if !slices.Contains(Roles, r) {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, name)
	}
	return r, nil
}

type Phase string

const (
	PhaseSignup Phase = "signup"
	PhaseDraft  Phase = "draft"
)

// Signup is one registered player: the roles they will play, in order of
// preference, and whether they volunteer to captain.
type Signup struct {
	Roles   []Role `json:"roles"`
	Captain bool   `json:"captain"`
}

func (s Signup) clone() Signup {
	return Signup{Roles: slices.Clone(s.Roles), Captain: s.Captain}
}

func (s Signup) Plays(r Role) bool { return slices.Contains(s.Roles, r) }

// Team maps each filled role to the nickname playing it.
type Team map[Role]string

// Need is the readiness report for the signup pool.
type Need struct {
	Captains int          `json:"captains"`
	Players  int          `json:"players"`
	Roles    map[Role]int `json:"roles"`
}

func (n Need) Satisfied() bool {
	return n.Captains == 0 && n.Players == 0 && len(n.Roles) == 0
}

// CaptainPicker chooses the two captains, team 0 first, from the pool.
type CaptainPicker func(pool map[string]Signup) ([2]string, error)

type Option func(*Engine)

func WithCaptainPicker(p CaptainPicker) Option {
	return func(e *Engine) { e.pickCaptains = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine manages exactly one game in formation. It is not safe for
// concurrent use; the lobby package serializes access to it.
type Engine struct {
	unstaged map[string]Signup

	// Only set while drafting.
	staged         map[string]Signup
	picked         map[string]Signup
	captains       *[2]string
	captainSignups [2]Signup
	teams          [2]Team
	order          *PickingOrder
	pickingTeam    int

	pickCaptains CaptainPicker
	log          *zap.Logger
}

func New(opts ...Option) *Engine {
	e := &Engine{
		unstaged:     map[string]Signup{},
		pickCaptains: RandomCaptains,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Phase() Phase {
	if e.captains == nil {
		return PhaseSignup
	}
	return PhaseDraft
}

// Add registers nick or replaces their previous signup entirely.
func (e *Engine) Add(nick string, roles []Role, captain bool) error {
	if nick == "" {
		return ErrEmptyNickname
	}
	if len(roles) == 0 {
		return fmt.Errorf("add %s: %w", nick, ErrMissingRole)
	}
	clean := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !slices.Contains(Roles, r) {
			return fmt.Errorf("add %s: %w: %q", nick, ErrUnknownRole, r)
		}
		if !slices.Contains(clean, r) {
			clean = append(clean, r)
		}
	}
	if e.inDraft(nick) {
		return fmt.Errorf("add %s: %w", nick, ErrPlayerInDraft)
	}

	e.unstaged[nick] = Signup{Roles: clean, Captain: captain}
	e.log.Debug("signup added", zap.String("nick", nick), zap.Any("roles", clean), zap.Bool("captain", captain))
	return nil
}

func (e *Engine) Remove(nick string) error {
	if _, ok := e.unstaged[nick]; !ok {
		return fmt.Errorf("remove %s: %w", nick, ErrPlayerNotFound)
	}
	delete(e.unstaged, nick)
	e.log.Debug("signup removed", zap.String("nick", nick))
	return nil
}

func (e *Engine) inDraft(nick string) bool {
	if e.captains == nil {
		return false
	}
	if e.captains[0] == nick || e.captains[1] == nick {
		return true
	}
	_, staged := e.staged[nick]
	_, picked := e.picked[nick]
	return staged || picked
}

// Need tallies what the unstaged pool still lacks. A multi-role signup
// counts towards every role it lists.
func (e *Engine) Need() Need {
	captains, coverage := 0, map[Role]int{}
	for _, s := range e.unstaged {
		if s.Captain {
			captains++
		}
		for _, r := range s.Roles {
			coverage[r]++
		}
	}

	n := Need{
		Captains: max(0, CaptainsNeeded-captains),
		Players:  max(0, PlayersRequired-len(e.unstaged)),
		Roles:    map[Role]int{},
	}
	for _, r := range Roles {
		if short := PlayersPerRole - coverage[r]; short > 0 {
			n.Roles[r] = short
		}
	}
	return n
}

func (e *Engine) CanStage() bool { return e.Need().Satisfied() }

// Stage locks the unstaged pool into a draft and elects captains.
func (e *Engine) Stage() ([2]string, error) {
	if e.captains != nil {
		return [2]string{}, ErrAlreadyDrafting
	}

	captains, err := e.pickCaptains(e.Unstaged())
	if err != nil {
		return [2]string{}, fmt.Errorf("stage: %w", err)
	}
	if captains[0] == captains[1] {
		return [2]string{}, fmt.Errorf("stage: %w: %s twice", ErrInvalidCaptains, captains[0])
	}
	for _, c := range captains {
		s, ok := e.unstaged[c]
		if !ok || !s.Captain {
			return [2]string{}, fmt.Errorf("stage: %w: %s", ErrInvalidCaptains, c)
		}
	}

	for i, c := range captains {
		e.captainSignups[i] = e.unstaged[c]
		delete(e.unstaged, c)
	}
	e.staged = e.unstaged
	e.unstaged = map[string]Signup{}
	e.picked = map[string]Signup{}
	e.captains = &captains
	e.teams = [2]Team{{}, {}}
	e.order = NewPickingOrder()
	e.pickingTeam = e.order.Next()

	e.log.Info("draft staged",
		zap.Strings("captains", captains[:]),
		zap.Int("staged", len(e.staged)),
	)
	return captains, nil
}

// Pick drafts nick onto the picking team at role and advances the turn.
func (e *Engine) Pick(nick string, role Role) error {
	if e.captains == nil {
		return ErrNotDrafting
	}
	s, ok := e.staged[nick]
	if !ok {
		return fmt.Errorf("pick %s: %w", nick, ErrPlayerNotStaged)
	}
	if !slices.Contains(Roles, role) {
		return fmt.Errorf("pick %s: %w: %q", nick, ErrUnknownRole, role)
	}
	team := e.teams[e.pickingTeam]
	if _, taken := team[role]; taken {
		return fmt.Errorf("pick %s as %s: %w", nick, role, ErrRoleAlreadyPicked)
	}
	if !s.Plays(role) {
		return fmt.Errorf("pick %s as %s: %w", nick, role, ErrRoleNotEligible)
	}

	team[role] = nick
	e.picked[nick] = s
	delete(e.staged, nick)
	e.log.Debug("player picked",
		zap.Int("team", e.pickingTeam),
		zap.String("nick", nick),
		zap.String("role", string(role)),
	)
	e.pickingTeam = e.order.Next()
	return nil
}

// MakeGame seats the captains, returns unpicked players to the signup pool
// and hands back both rosters. The engine is back in the signup phase after.
func (e *Engine) MakeGame() ([2]Team, error) {
	if e.captains == nil {
		return [2]Team{}, ErrNotDrafting
	}

	teams := e.teams
	for i, c := range e.captains {
		role, displaced := captainRole(teams[i], e.captainSignups[i])
		if displaced != "" {
			// Every role the captain plays was drafted; the captain keeps their
			// first role and the drafted player goes back to the pool.
			e.staged[displaced] = e.picked[displaced]
			e.log.Warn("captain displaced drafted player",
				zap.String("captain", c),
				zap.String("nick", displaced),
				zap.String("role", string(role)),
			)
		}
		teams[i][role] = c
	}

	for nick, s := range e.staged {
		e.unstaged[nick] = Signup{Roles: s.Roles}
	}

	e.log.Info("game finalized", zap.Strings("captains", e.captains[:]), zap.Int("returned", len(e.staged)))

	e.staged = nil
	e.picked = nil
	e.captains = nil
	e.captainSignups = [2]Signup{}
	e.teams = [2]Team{}
	e.order = nil
	e.pickingTeam = 0
	return teams, nil
}

// captainRole is the first role the captain signed up for that their team
// has not drafted yet. When none is free the first role is used and the
// nickname currently holding it is returned as displaced.
// Provisional: how a multi-role captain is seated is still an open product
// decision.
func captainRole(team Team, s Signup) (Role, string) {
	for _, r := range s.Roles {
		if _, taken := team[r]; !taken {
			return r, ""
		}
	}
	r := s.Roles[0]
	return r, team[r]
}

// CanStartHighlander reports whether both teams are at most one role short.
func CanStartHighlander(teams [2]Team) bool {
	for _, team := range teams {
		filled := 0
		for _, r := range Roles {
			if _, ok := team[r]; ok {
				filled++
			}
		}
		if filled < len(Roles)-1 {
			return false
		}
	}
	return true
}

func (e *Engine) Unstaged() map[string]Signup { return clonePool(e.unstaged) }

// Staged is nil outside a draft.
func (e *Engine) Staged() map[string]Signup {
	if e.staged == nil {
		return nil
	}
	return clonePool(e.staged)
}

func (e *Engine) Captains() ([2]string, bool) {
	if e.captains == nil {
		return [2]string{}, false
	}
	return *e.captains, true
}

func (e *Engine) Teams() [2]Team {
	if e.captains == nil {
		return [2]Team{}
	}
	return [2]Team{maps.Clone(e.teams[0]), maps.Clone(e.teams[1])}
}

func (e *Engine) PickingTeam() (int, bool) {
	if e.captains == nil {
		return 0, false
	}
	return e.pickingTeam, true
}

func clonePool(pool map[string]Signup) map[string]Signup {
	out := make(map[string]Signup, len(pool))
	for nick, s := range pool {
		out[nick] = s.clone()
	}
	return out
}
