package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hl-pug-backend/internal/engine"
	"github.com/DoyleJ11/hl-pug-backend/internal/hub"
	"github.com/DoyleJ11/hl-pug-backend/internal/lobby"
	"github.com/DoyleJ11/hl-pug-backend/pkg/types"
)

var ErrUnknownMessage = errors.New("unknown message type")

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 3 * time.Second
)

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		lb := <-reply
		if lb == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			log.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan lobby.Snapshot, 8)
		clientID := uuid.NewString()
		clog := log.With(zap.String("lobby", code), zap.String("client", clientID))

		if !join(lb, clientID, out) {
			_ = conn.Close(websocket.StatusGoingAway, "lobby closed")
			return
		}
		defer leave(lb, clientID)
		clog.Debug("client joined")

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			defer func() {
				// Lobby dropped us or shut down.
				writeCancel()
				_ = conn.Close(websocket.StatusGoingAway, "lobby closed")
			}()
			for {
				select {
				case snap, ok := <-out:
					if !ok {
						return
					}
					if err := write(writeCtx, conn, EncodeSnapshot(snap)); err != nil {
						clog.Debug("write snapshot", zap.Error(err))
					}
				case <-lb.Done():
					// A join still queued when the lobby stopped is never answered.
					return
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = write(writeCtx, conn, errorMessage(errors.New("bad json")))
				continue
			}

			cmd, err := ToLobbyCommand(cm)
			if err != nil {
				_ = write(writeCtx, conn, errorMessage(err))
				continue
			}

			res, err := lb.Do(r.Context(), cmd)
			if err != nil {
				return
			}
			if res.Err != nil {
				_ = write(writeCtx, conn, errorMessage(res.Err))
			}
		}
	}
}

// join registers out with the lobby. It reports false once the lobby has
// stopped, in which case out is never written to or closed.
func join(lb *lobby.Lobby, clientID string, out chan lobby.Snapshot) bool {
	select {
	case <-lb.Done():
		return false
	default:
	}
	select {
	case lb.Inbox() <- lobby.Join{ClientID: clientID, Outbox: out}:
		return true
	case <-lb.Done():
		return false
	}
}

func leave(lb *lobby.Lobby, clientID string) {
	select {
	case <-lb.Done():
		return
	default:
	}
	select {
	case lb.Inbox() <- lobby.Leave{ClientID: clientID}:
	case <-lb.Done():
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}

func errorMessage(err error) types.ServerMessage {
	return types.ServerMessage{Type: types.MsgError, Error: err.Error()}
}

func EncodeSnapshot(snap lobby.Snapshot) types.ServerMessage {
	msg := types.ServerMessage{Type: types.MsgStateSnapshot, Version: snap.Version, State: &snap.State}
	if snap.Game != nil {
		msg.Type = types.MsgGameFinished
		msg.Teams = snap.Game[:]
	}
	return msg
}

func ToLobbyCommand(m types.ClientMessage) (lobby.Command, error) {
	switch lobby.CommandType(m.Type) {
	case lobby.CmdAdd:
		roles := make([]engine.Role, 0, len(m.Roles))
		for _, name := range m.Roles {
			r, err := engine.ParseRole(name)
			if err != nil {
				return lobby.Command{}, err
			}
			roles = append(roles, r)
		}
		return lobby.Command{Type: lobby.CmdAdd, Nick: m.Nick, Roles: roles, Captain: m.Captain}, nil
	case lobby.CmdRemove:
		return lobby.Command{Type: lobby.CmdRemove, Nick: m.Nick}, nil
	case lobby.CmdStage:
		return lobby.Command{Type: lobby.CmdStage}, nil
	case lobby.CmdPick:
		r, err := engine.ParseRole(m.Role)
		if err != nil {
			return lobby.Command{}, err
		}
		return lobby.Command{Type: lobby.CmdPick, Nick: m.Nick, Role: r}, nil
	case lobby.CmdMakeGame:
		return lobby.Command{Type: lobby.CmdMakeGame}, nil
	default:
		return lobby.Command{}, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
	}
}
