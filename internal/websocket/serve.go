package websocket

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authenticator turns an access token into a user id.
type Authenticator func(token string) (userID string, err error)

// ServeWS authenticates the request before upgrading it. The token comes
// from the token query parameter or a Bearer Authorization header.
func ServeWS(hub *Hub, authenticate Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
				token = strings.TrimSpace(h[7:])
			}
		}
		if token == "" {
			http.Error(w, "Auth token required", http.StatusUnauthorized)
			return
		}
		userID, err := authenticate(token)
		if err != nil {
			hub.logger.Debug("websocket auth rejected", "error", err)
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the response.
			hub.logger.Debug("websocket upgrade failed", "error", err)
			return
		}
		hub.logger.Info("websocket connected", "user_id", userID, "remote", r.RemoteAddr)

		client := NewClient(hub, conn, userID)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}
}
