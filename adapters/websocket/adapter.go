package websocket

import (
	"net/http"
	"strconv"
	"time"

	gorillaws "github.com/gorilla/websocket"

	"arcadesync/core"
	"arcadesync/realtime"
)

// Handler returns an http.Handler that upgrades to WebSocket and streams
// events from the hub. An optional account_id query parameter narrows the
// stream to a single account.
func Handler(hub *realtime.Hub) http.Handler {
	upgrader := gorillaws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var id int
		var ch <-chan core.Event
		if raw := r.URL.Query().Get("account_id"); raw != "" {
			accountID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				_ = conn.WriteMessage(gorillaws.CloseMessage,
					gorillaws.FormatCloseMessage(gorillaws.ClosePolicyViolation, "bad account_id"))
				return
			}
			id, ch = hub.SubscribeAccount(256, accountID)
		} else {
			id, ch = hub.Subscribe(256)
		}
		defer hub.Unsubscribe(id)

		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		for ev := range ch {
			if err := conn.WriteMessage(gorillaws.TextMessage, realtime.MarshalJSON(ev)); err != nil {
				return
			}
		}
	})
}
