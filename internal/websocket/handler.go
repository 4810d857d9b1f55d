package websocket

import (
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/pocketcal/internal/auth"
)

// HandleWebSocket upgrades an authenticated request and runs it as a Hub
// client for the signed-in user. originPatterns lists extra hosts allowed to
// connect; same-origin requests are always accepted.
func HandleWebSocket(hub *Hub, originPatterns []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			hub.logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		hub.logger.Debug("websocket connected", "user_id", userID)
		NewClient(hub, conn, userID).Run(r.Context())
	}
}
