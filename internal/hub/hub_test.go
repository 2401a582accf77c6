package hub

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/hl-pug-backend/internal/engine"
	"github.com/DoyleJ11/hl-pug-backend/internal/lobby"
)

func TestHub_Create_Get_SamePointer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Code: "ZED123", Reply: reply}
	lb1 := <-reply

	h.Inbox() <- GetLobby{Code: "ZED123", Reply: reply}
	lb2 := <-reply

	h.Inbox() <- EnsureLobby{Code: "ZED123", Reply: reply}
	lb3 := <-reply

	if lb1 == nil || lb2 == nil || lb1 != lb2 || lb2 != lb3 {
		t.Fatalf("expected same lobby pointer")
	}
	assert.Equal(t, "ZED123", lb1.Code())
}

func TestHub_LobbiesHaveSeparateEngines(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Code: "AAA111", Reply: reply}
	a := <-reply
	h.Inbox() <- CreateLobby{Code: "BBB222", Reply: reply}
	b := <-reply

	res, err := a.Do(ctx, lobby.Command{Type: lobby.CmdAdd, Nick: "nick", Roles: nil, Captain: false})
	require.NoError(t, err)
	require.Error(t, res.Err)

	res, err = a.Do(ctx, lobby.Command{Type: lobby.CmdAdd, Nick: "nick", Roles: []engine.Role{engine.RoleMedic}})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	va, err := a.View(ctx)
	require.NoError(t, err)
	vb, err := b.View(ctx)
	require.NoError(t, err)
	assert.Len(t, va.State.Unstaged, 1)
	assert.Empty(t, vb.State.Unstaged)

	codes := make(chan []string, 1)
	h.Inbox() <- ListLobbies{Reply: codes}
	got := <-codes
	slices.Sort(got)
	assert.Equal(t, []string{"AAA111", "BBB222"}, got)
}

func TestHub_RemoveLobbyStopsIt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{Code: "ZED123", Reply: reply}
	lb := <-reply

	h.Inbox() <- RemoveLobby{Code: "ZED123"}
	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatalf("removed lobby still running")
	}

	h.Inbox() <- GetLobby{Code: "ZED123", Reply: reply}
	assert.Nil(t, <-reply)
}
