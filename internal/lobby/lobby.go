package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hl-pug-backend/internal/engine"
)

var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrNotStageable = errors.New("signups do not cover a full game yet")
var ErrLobbyClosed = errors.New("lobby closed")

type Msg interface{ isLobbyMsg() }

type CommandType string

const (
	CmdAdd      CommandType = "add"
	CmdRemove   CommandType = "remove"
	CmdStage    CommandType = "stage"
	CmdPick     CommandType = "pick"
	CmdMakeGame CommandType = "make_game"
)

type Command struct {
	Type    CommandType
	Nick    string
	Roles   []engine.Role
	Captain bool
	Role    engine.Role
}

// Result is what a command produced. Teams is only set by make_game and
// Captains only when the command staged a draft (explicitly or
// automatically after add or make_game).
type Result struct {
	Err      error
	Captains *[2]string
	Teams    *[2]engine.Team
}

type FromClient struct {
	Cmd   Command
	Reply chan Result // optional
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Snapshot is broadcast after every state change. Game is set on the
// snapshot that follows a make_game.
type Snapshot struct {
	Version int
	State   engine.State
	Game    *[2]engine.Team
}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

// Recorder receives every finalized game.
type Recorder interface {
	RecordGame(ctx context.Context, code string, captains [2]string, teams [2]engine.Team) error
}

type Options struct {
	Code      string
	Engine    *engine.Engine
	AutoStage bool
	Recorder  Recorder
	Logger    *zap.Logger
}

type Lobby struct {
	code      string
	inbox     chan Msg
	engine    *engine.Engine
	version   int
	clients   map[string]chan Snapshot
	autoStage bool
	recorder  Recorder
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewLobby(parent context.Context, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("lobby", opts.Code))

	eng := opts.Engine
	if eng == nil {
		eng = engine.New(engine.WithLogger(log))
	}

	l := &Lobby{
		code:      opts.Code,
		inbox:     make(chan Msg, 64), // Small buffer
		engine:    eng,
		clients:   make(map[string]chan Snapshot),
		autoStage: opts.AutoStage,
		recorder:  opts.Recorder,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go l.loop()
	return l
}

func (l *Lobby) Code() string { return l.code }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- l.snapshot(nil)

			case Leave:
				if ch, ok := l.clients[msg.ClientID]; ok {
					close(ch)
					delete(l.clients, msg.ClientID)
				}

			case FromClient:
				res := l.apply(msg.Cmd)
				if res.Err != nil {
					l.log.Debug("command rejected", zap.String("type", string(msg.Cmd.Type)), zap.Error(res.Err))
				} else {
					l.version++
					l.broadcast(l.snapshot(res.Teams))
				}
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.engine.Snapshot(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) apply(cmd Command) Result {
	switch cmd.Type {
	case CmdAdd:
		if err := l.engine.Add(cmd.Nick, cmd.Roles, cmd.Captain); err != nil {
			return Result{Err: err}
		}
		return Result{Captains: l.maybeStage()}

	case CmdRemove:
		return Result{Err: l.engine.Remove(cmd.Nick)}

	case CmdStage:
		if l.engine.Phase() == engine.PhaseSignup && !l.engine.CanStage() {
			return Result{Err: ErrNotStageable}
		}
		return l.stage()

	case CmdPick:
		return Result{Err: l.engine.Pick(cmd.Nick, cmd.Role)}

	case CmdMakeGame:
		captains, _ := l.engine.Captains()
		teams, err := l.engine.MakeGame()
		if err != nil {
			return Result{Err: err}
		}
		l.record(captains, teams)
		// Players returned to the pool may already cover the next game.
		return Result{Teams: &teams, Captains: l.maybeStage()}

	default:
		return Result{Err: fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Type)}
	}
}

// maybeStage starts the draft when auto-staging is on and the pool is full.
// A failed stage leaves the engine in the signup phase; the command that
// triggered it still succeeded.
func (l *Lobby) maybeStage() *[2]string {
	if !l.autoStage || l.engine.Phase() != engine.PhaseSignup || !l.engine.CanStage() {
		return nil
	}
	res := l.stage()
	if res.Err != nil {
		l.log.Warn("auto stage failed", zap.Error(res.Err))
		return nil
	}
	return res.Captains
}

func (l *Lobby) stage() Result {
	captains, err := l.engine.Stage()
	if err != nil {
		return Result{Err: err}
	}
	return Result{Captains: &captains}
}

func (l *Lobby) record(captains [2]string, teams [2]engine.Team) {
	if l.recorder == nil {
		return
	}
	if err := l.recorder.RecordGame(l.ctx, l.code, captains, teams); err != nil {
		l.log.Error("record game", zap.Error(err))
	}
}

func (l *Lobby) snapshot(game *[2]engine.Team) Snapshot {
	return Snapshot{Version: l.version, State: l.engine.Snapshot(), Game: game}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		select {
		case ch <- snap:
			//ok
		default:
			// Client is slow/full - drop them.
			l.log.Warn("dropping slow client", zap.String("client", id))
			close(ch)
			delete(l.clients, id)
		}
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Do sends cmd and waits for its result.
func (l *Lobby) Do(ctx context.Context, cmd Command) (Result, error) {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: reply}:
	case <-l.done:
		return Result{}, ErrLobbyClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-l.done:
		return Result{}, ErrLobbyClosed
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// View asks the lobby for its current state.
func (l *Lobby) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.done:
		return View{}, ErrLobbyClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-l.done:
		return View{}, ErrLobbyClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}
