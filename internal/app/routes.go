package app

import (
	"hash/maphash"
	"math/rand/v2"

	"github.com/vancomm/pairs-server/internal/handlers"
	"github.com/vancomm/pairs-server/internal/repository"
)

func createRand() *rand.Rand {
	return rand.New(rand.NewPCG(
		new(maphash.Hash).Sum64(), new(maphash.Hash).Sum64(),
	))
}

func (a *App) loadRoutes() {
	game := handlers.NewGameHandler(a.logger, a.manager, a.ws)

	a.router.HandleFunc("POST /game", game.NewGame)
	a.router.HandleFunc("GET /game/{id}", game.Fetch)
	a.router.HandleFunc("POST /game/{id}/start", game.Start)
	a.router.HandleFunc("POST /game/{id}/flip", game.Flip)
	a.router.HandleFunc("POST /game/{id}/reset", game.Reset)
	a.router.HandleFunc("/game/{id}/connect", game.ConnectWS)
	a.router.HandleFunc("GET /difficulties", game.Difficulties)

	if a.db == nil || a.cookies == nil {
		a.logger.Info("accounts disabled")
		return
	}

	auth := handlers.NewAuth(a.logger, repository.New(a.db), a.cookies)

	a.router.HandleFunc("POST /register", auth.Register)
	a.router.HandleFunc("POST /login", auth.Login)
	a.router.HandleFunc("POST /logout", auth.Logout)
	a.router.HandleFunc("GET /status", auth.Status)
}
