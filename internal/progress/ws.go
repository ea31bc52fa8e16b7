package progress

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mediastudio/internal/infra"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// OwnerFunc extracts the authenticated owner from a request context.
type OwnerFunc func(ctx context.Context) string

// NewUpgrader accepts browser origins listed in allowed; "*" accepts any.
func NewUpgrader(allowed []string) *websocket.Upgrader {
	set := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, origin := range allowed {
		if origin == "*" {
			wildcard = true
		}
		set[origin] = struct{}{}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || wildcard {
				return true
			}
			_, ok := set[origin]
			return ok
		},
	}
}

// ServeWS streams the authenticated owner's progress messages as JSON text
// frames until the client disconnects.
func ServeWS(hub *Hub, logger infra.Logger, upgrader *websocket.Upgrader, ownerOf OwnerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := ownerOf(r.Context())
		if owner == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		sub := hub.Subscribe(owner)
		logger.Debug().Str("owner", owner).Int("listeners", hub.Listeners(owner)).Msg("progress listener connected")

		done := make(chan struct{})
		go readPump(conn, done)
		writePump(conn, sub, done, logger)

		sub.Close()
		_ = conn.Close()
		logger.Debug().Str("owner", owner).Msg("progress listener disconnected")
	}
}

// readPump drains client frames so pongs and close frames are processed.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, sub *Subscription, done <-chan struct{}, logger infra.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("progress write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
