package wallet

import (
	"log"
	"net/http"

	"tiffin/middleware"
	"tiffin/mq"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins; adjust for production if needed
		return true
	},
}

// HandleEventsWS streams the requester's wallet events over a websocket.
// The token arrives as a query parameter because browsers cannot set
// headers on websocket upgrades.
func HandleEventsWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	claims, err := middleware.ValidateRawToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "WebSocket upgrade failed", http.StatusBadRequest)
		return
	}
	defer conn.Close()

	events, stop := mq.Subscribe(r.Context())
	defer stop()

	// Drain client reads so we notice disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.OwnerID != claims.UserID {
				continue
			}
			if err := conn.WriteJSON(event); err != nil {
				log.Printf("wallet ws write failed for %s: %v", claims.UserID, err)
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}
