package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"teamsync/internal/app/realtime"
	"teamsync/internal/pkg/limiter"
	"teamsync/internal/pkg/logx"
)

// HandleWebSocket upgrades the connection and runs the session until it closes. The session
// stays anonymous until it sends user:join.
func HandleWebSocket(deps *AppDeps, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := realtime.NewClient(deps.Hub, conn)

		if !deps.Hub.Register(client) {
			logx.Warn("WebSocket connection rejected: hub is shutting down.", "conn_id", client.ID())
			_ = conn.Close()
			return
		}

		logx.Info("WebSocket connection established",
			"conn_id", client.ID(),
			"ip", logx.AnonymizeIP(limiter.ClientIP(r)),
		)

		go client.WritePump()
		client.ReadPump()
	}
}
