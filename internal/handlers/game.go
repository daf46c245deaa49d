package handlers

import (
	"net/http"

	"github.com/gorilla/schema"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/pairs-server/internal/config"
	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/middleware"
)

type GameHandler struct {
	logger  logrus.FieldLogger
	manager *games.Manager
	ws      *config.WebSocket
	decoder *schema.Decoder
}

func NewGameHandler(
	logger logrus.FieldLogger,
	manager *games.Manager,
	ws *config.WebSocket,
) *GameHandler {
	handler := &GameHandler{
		logger:  logger,
		manager: manager,
		ws:      ws,
		decoder: newDecoder(),
	}

	return handler
}

// lookup finds the live game named in the path and checks that the
// requester may play it.
func (g GameHandler) lookup(w http.ResponseWriter, r *http.Request) (*games.Game, bool) {
	game, err := g.manager.Get(r.PathValue("id"))
	if err == nil {
		err = games.Authorize(game, middleware.PlayerID(r))
	}
	if err != nil {
		handleError(w, g.logger, err)
		return nil, false
	}
	return game, true
}

func (g GameHandler) sendGame(w http.ResponseWriter, game *games.Game) {
	sendJSONOrLog(w, g.logger, NewGameSessionDTO(g.manager.View(game)))
}

func (g GameHandler) NewGame(w http.ResponseWriter, r *http.Request) {
	var dto NewGameDTO
	if err := g.decoder.Decode(&dto, r.URL.Query()); err != nil {
		sendError(w, g.logger, http.StatusBadRequest, err)
		return
	}

	dimension, err := g.manager.Resolve(dto.Dimension, dto.Difficulty)
	if err != nil {
		handleError(w, g.logger, err)
		return
	}

	game, err := g.manager.Create(r.Context(), dimension, middleware.PlayerID(r))
	if err != nil {
		handleError(w, g.logger, err)
		return
	}

	g.sendGame(w, game)
}

func (g GameHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	view, err := g.manager.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		handleError(w, g.logger, err)
		return
	}
	if err := games.AuthorizeOwner(view.OwnerID, middleware.PlayerID(r)); err != nil {
		handleError(w, g.logger, err)
		return
	}

	sendJSONOrLog(w, g.logger, NewGameSessionDTO(*view))
}

func (g GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	game, ok := g.lookup(w, r)
	if !ok {
		return
	}

	if err := g.manager.Start(r.Context(), game); err != nil {
		handleError(w, g.logger, err)
		return
	}

	g.sendGame(w, game)
}

func (g GameHandler) Flip(w http.ResponseWriter, r *http.Request) {
	var dto FlipDTO
	if err := g.decoder.Decode(&dto, r.URL.Query()); err != nil {
		sendError(w, g.logger, http.StatusBadRequest, err)
		return
	}

	game, ok := g.lookup(w, r)
	if !ok {
		return
	}

	res, err := g.manager.Flip(r.Context(), game, dto.Tile)
	if err != nil {
		handleError(w, g.logger, err)
		return
	}

	sendJSONOrLog(w, g.logger, FlipResponseDTO{
		Flip: res,
		Game: NewGameSessionDTO(g.manager.View(game)),
	})
}

func (g GameHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var dto ResetDTO
	if err := g.decoder.Decode(&dto, r.URL.Query()); err != nil {
		sendError(w, g.logger, http.StatusBadRequest, err)
		return
	}

	game, ok := g.lookup(w, r)
	if !ok {
		return
	}

	dimension := dto.Dimension
	if dimension != 0 || dto.Difficulty != "" {
		var err error
		if dimension, err = g.manager.Resolve(dto.Dimension, dto.Difficulty); err != nil {
			handleError(w, g.logger, err)
			return
		}
	}

	if err := g.manager.Reset(r.Context(), game, dimension); err != nil {
		handleError(w, g.logger, err)
		return
	}

	g.sendGame(w, game)
}

func (g GameHandler) Difficulties(w http.ResponseWriter, r *http.Request) {
	dimensions := g.manager.Difficulties()
	def := g.manager.DefaultDifficulty()

	dtos := make([]DifficultyDTO, 0, len(dimensions))
	for _, name := range g.manager.DifficultyNames() {
		dtos = append(dtos, DifficultyDTO{
			Name:      name,
			Dimension: dimensions[name],
			Default:   name == def,
		})
	}

	sendJSONOrLog(w, g.logger, dtos)
}
