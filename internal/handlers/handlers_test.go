package handlers

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	mathrand "math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/vancomm/pairs-server/internal/config"
	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/middleware"
	"github.com/vancomm/pairs-server/internal/pairs"
)

type testServer struct {
	handler http.Handler
	manager *games.Manager
	clock   *pairs.ManualClock
	cookies *config.Cookies
	players *memoryPlayers
}

func newCookies(t *testing.T) *config.Cookies {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	j, err := config.NewJWTFromPEM(privatePEM, publicPEM, time.Hour)
	require.NoError(t, err)
	return config.NewCookies(config.CookiesConfig{}, j)
}

// newTestServer serves the API over a manual clock. refresh is the
// websocket push interval.
func newTestServer(t *testing.T, refresh time.Duration) *testServer {
	t.Helper()
	return newTestServerWith(t, refresh, config.Default().Game)
}

func newTestServerWith(t *testing.T, refresh time.Duration, cfg config.GameConfig) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s := &testServer{
		clock:   pairs.NewManualClock(),
		cookies: newCookies(t),
		players: newMemoryPlayers(),
	}
	s.manager = games.NewManager(games.Options{
		Game:   cfg,
		Logger: logger,
		Rand:   mathrand.New(mathrand.NewPCG(1, 2)),
		Clock:  s.clock,
	})

	game := NewGameHandler(logger, s.manager, config.NewWebSocket(refresh))
	auth := NewAuth(logger, s.players, s.cookies)
	auth.bcryptCost = 4

	mux := http.NewServeMux()
	mux.HandleFunc("POST /game", game.NewGame)
	mux.HandleFunc("GET /game/{id}", game.Fetch)
	mux.HandleFunc("POST /game/{id}/start", game.Start)
	mux.HandleFunc("POST /game/{id}/flip", game.Flip)
	mux.HandleFunc("POST /game/{id}/reset", game.Reset)
	mux.HandleFunc("/game/{id}/connect", game.ConnectWS)
	mux.HandleFunc("GET /difficulties", game.Difficulties)
	mux.HandleFunc("POST /register", auth.Register)
	mux.HandleFunc("POST /login", auth.Login)
	mux.HandleFunc("POST /logout", auth.Logout)
	mux.HandleFunc("GET /status", auth.Status)

	s.handler = middleware.Wrap(mux, middleware.Auth(logger, s.cookies))
	return s
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// loginAs returns cookies carrying claims for the given player.
func (s *testServer) loginAs(t *testing.T, playerID int64, username string) []*http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, s.cookies.Refresh(rec, config.NewPlayerClaims(playerID, username)))
	return rec.Result().Cookies()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
