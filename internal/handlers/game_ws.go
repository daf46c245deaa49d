package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/pairs-server/internal/games"
	"github.com/vancomm/pairs-server/internal/pairs"
)

type wsMessage struct {
	Game  *GameSessionDTO `json:"game,omitempty"`
	Error string          `json:"error,omitempty"`
}

// ConnectWS plays a game over a websocket. Each text frame holds one or more
// newline-separated commands; every frame is answered with the game state
// or an error. The state is also pushed whenever it changes on its own, as
// when the timer ticks or a mismatched pair is turned back. The connection
// is closed once the game is evicted.
func (g GameHandler) ConnectWS(w http.ResponseWriter, r *http.Request) {
	game, ok := g.lookup(w, r)
	if !ok {
		return
	}

	// clients fetch the state they connect to, so only changes are pushed
	last, err := json.Marshal(wsMessage{Game: NewGameSessionDTO(g.manager.View(game))})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		g.logger.WithError(err).Error("unable to encode game state")
		return
	}

	c, err := g.ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.WithError(err).Error("unable to upgrade")
		return
	}
	defer c.Close()

	logger := g.logger.WithField("game", game.ID)
	logger.Debug("websocket connected")

	updates := make(chan wsMessage, 1)
	eg, ctx := errgroup.WithContext(r.Context())

	eg.Go(func() error {
		defer close(updates)
		for {
			mt, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}
				return err
			}
			if mt != websocket.TextMessage {
				return nil
			}

			text := strings.TrimSpace(string(message))
			logger.Debugf("\t> %s", text)

			var msg wsMessage
			cmds, err := games.ParseCommands(text)
			if err == nil {
				err = g.manager.Execute(ctx, game, cmds)
			}
			if err != nil {
				if statusFor(err) == http.StatusInternalServerError {
					return err
				}
				msg.Error = err.Error()
			} else {
				msg.Game = NewGameSessionDTO(g.manager.View(game))
			}

			select {
			case updates <- msg:
			case <-ctx.Done():
				return nil
			}
			if errors.Is(err, games.ErrGameNotFound) {
				// the writer sends the error and closes the connection
				return nil
			}
		}
	})

	eg.Go(func() error {
		// closing the connection unblocks the reader
		defer c.Close()

		refresh := g.ws.RefreshInterval
		if refresh <= 0 {
			refresh = pairs.DefaultTickInterval
		}
		ticker := time.NewTicker(refresh)
		defer ticker.Stop()

		write := func(msg wsMessage, force bool) error {
			b, err := json.Marshal(msg)
			if err != nil {
				return err
			}
			if !force && bytes.Equal(b, last) {
				return nil
			}
			if msg.Game != nil {
				last = b
			}
			logger.Debug("\t< <session data>")
			return c.WriteMessage(websocket.TextMessage, b)
		}

		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-updates:
				if !ok {
					return nil
				}
				if err := write(msg, true); err != nil {
					return err
				}
			case <-ticker.C:
				if game.Evicted() {
					return write(wsMessage{Error: games.ErrGameNotFound.Error()}, true)
				}
				view := g.manager.View(game)
				if err := write(wsMessage{Game: NewGameSessionDTO(view)}, false); err != nil {
					return err
				}
			}
		}
	})

	if err := eg.Wait(); err != nil && !isClosedConn(err) {
		logger.WithError(err).Warn("abnormal ws break")
	}
	logger.Debug("websocket disconnected")
}

func isClosedConn(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, net.ErrClosed) ||
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
