package config

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type WebSocket struct {
	Upgrader websocket.Upgrader
	// RefreshInterval is how often an idle connection is sent a fresh
	// snapshot so that settles and ticks reach the client.
	RefreshInterval time.Duration
}

func NewWebSocket(refresh time.Duration) *WebSocket {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	ws := &WebSocket{
		Upgrader:        upgrader,
		RefreshInterval: refresh,
	}

	return ws
}
