package websocket

import (
	"log/slog"
	"net/http"
	"strconv"

	ws "github.com/coder/websocket"
)

// HandleWebSocket upgrades GET /ws?shop_id=N and streams that shop's transaction events.
// Omitting shop_id subscribes to every shop.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var shopID int64
		if raw := r.URL.Query().Get("shop_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "invalid shop_id", http.StatusBadRequest)
				return
			}
			shopID = id
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // origin policy is enforced by the CORS middleware
		})
		if err != nil {
			logger.Error("websocket accept", "error", err)
			return
		}

		logger.Debug("websocket subscribed", "shop_id", shopID, "remote", r.RemoteAddr)
		NewClient(hub, conn, shopID).Run(r.Context())
	}
}
