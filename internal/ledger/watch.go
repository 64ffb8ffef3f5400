package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/pointqr/internal/websocket"
)

// Event is a transaction change pushed by the ledger.
type Event struct {
	Action string
	ID     int64
	ShopID int64
	Points int
	CodeID string
}

// Watch subscribes to shopID's transaction events and calls fn for each until ctx is
// cancelled or the connection drops. A cancelled context returns nil.
func (c *Client) Watch(ctx context.Context, shopID int64, fn func(Event)) error {
	url := c.baseURL + fmt.Sprintf("/ws?shop_id=%d", shopID)
	url = "ws" + strings.TrimPrefix(url, "http")

	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		return &TransportError{Op: "dial events", Err: err}
	}
	defer conn.CloseNow()

	c.logger.Info("watching ledger events", "shop_id", shopID)
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			if ws.CloseStatus(err) == ws.StatusNormalClosure {
				return nil
			}
			return &TransportError{Op: "read events", Err: err}
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Warn("skipping malformed event", "error", err)
			continue
		}
		if msg.Entity != "transaction" {
			continue
		}
		fn(eventFromMessage(msg))
	}
}

func eventFromMessage(msg websocket.Message) Event {
	ev := Event{Action: msg.Action, ID: msg.ID, ShopID: msg.ShopID}
	if code, ok := msg.Extra["code_id"].(string); ok {
		ev.CodeID = code
	}
	if pts, ok := msg.Extra["points"].(float64); ok {
		ev.Points = int(pts)
	}
	return ev
}
