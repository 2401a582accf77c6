package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/hl-pug-backend/internal/engine"
	"github.com/DoyleJ11/hl-pug-backend/internal/hub"
	"github.com/DoyleJ11/hl-pug-backend/internal/store"
)

type fakeGames struct {
	games     []store.Game
	err       error
	lastLimit int
}

func (f *fakeGames) RecentGames(_ context.Context, limit int) ([]store.Game, error) {
	f.lastLimit = limit
	return f.games, f.err
}

func (f *fakeGames) GetGame(_ context.Context, id uuid.UUID) (store.Game, error) {
	if f.err != nil {
		return store.Game{}, f.err
	}
	for _, g := range f.games {
		if g.ID == id {
			return g, nil
		}
	}
	return store.Game{}, store.ErrGameNotFound
}

func newRouter(t *testing.T, games GameLister) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return SetupRoutes(hub.NewHub(ctx, hub.Config{}), games, zap.NewNop())
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Equal(t, strings.ToUpper(code), code)
}

func TestCreateThenGetLobby(t *testing.T) {
	r := newRouter(t, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/lobbies", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Len(t, created.Code, 6)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lobbies/"+created.Code, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Code    string       `json:"code"`
		Version int          `json:"version"`
		State   engine.State `json:"state"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, created.Code, got.Code)
	assert.Equal(t, engine.PhaseSignup, got.State.Phase)
	assert.Equal(t, 18, got.State.Need.Players)
}

func TestGetUnknownLobby(t *testing.T) {
	r := newRouter(t, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lobbies/NOPE00", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentGames(t *testing.T) {
	cases := []struct {
		name      string
		games     GameLister
		query     string
		wantCode  int
		wantLimit int
	}{
		{name: "history disabled", games: nil, wantCode: http.StatusServiceUnavailable},
		{name: "default limit", games: &fakeGames{games: []store.Game{{LobbyCode: "ABC123"}}}, wantCode: http.StatusOK, wantLimit: 20},
		{name: "explicit limit", games: &fakeGames{}, query: "?limit=5", wantCode: http.StatusOK, wantLimit: 5},
		{name: "bad limit", games: &fakeGames{}, query: "?limit=-1", wantCode: http.StatusBadRequest},
		{name: "store error", games: &fakeGames{err: errors.New("boom")}, wantCode: http.StatusInternalServerError, wantLimit: 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(t, tc.games)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games"+tc.query, nil))
			assert.Equal(t, tc.wantCode, rec.Code)
			if f, ok := tc.games.(*fakeGames); ok && tc.wantLimit != 0 {
				assert.Equal(t, tc.wantLimit, f.lastLimit)
			}
		})
	}
}

func TestListLobbies(t *testing.T) {
	r := newRouter(t, nil)

	list := func() []string {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lobbies", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Codes []string `json:"codes"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		return body.Codes
	}

	assert.Empty(t, list())

	created := []string{}
	for range 3 {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/lobbies", nil))
		require.Equal(t, http.StatusCreated, rec.Code)
		var body struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		created = append(created, body.Code)
	}

	got := list()
	assert.ElementsMatch(t, created, got)
	assert.IsNonDecreasing(t, got)
}

func TestGetGame(t *testing.T) {
	known := store.Game{ID: uuid.New(), LobbyCode: "ABC123"}

	cases := []struct {
		name     string
		games    GameLister
		id       string
		wantCode int
	}{
		{name: "history disabled", games: nil, id: known.ID.String(), wantCode: http.StatusServiceUnavailable},
		{name: "found", games: &fakeGames{games: []store.Game{known}}, id: known.ID.String(), wantCode: http.StatusOK},
		{name: "unknown id", games: &fakeGames{games: []store.Game{known}}, id: uuid.NewString(), wantCode: http.StatusNotFound},
		{name: "malformed id", games: &fakeGames{}, id: "not-a-uuid", wantCode: http.StatusBadRequest},
		{name: "store error", games: &fakeGames{err: errors.New("boom")}, id: known.ID.String(), wantCode: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(t, tc.games)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/games/"+tc.id, nil))
			require.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode == http.StatusOK {
				var got store.Game
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, known.ID, got.ID)
				assert.Equal(t, "ABC123", got.LobbyCode)
			}
		})
	}
}

func TestHealthz(t *testing.T) {
	r := newRouter(t, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
