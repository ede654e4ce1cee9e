package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/ScriptGraph/internal/events"
)

const (
	// recent events replayed to a new client, filtered like live ones
	recentEventsCount = 50

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second // must be less than pongWait
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// editor front ends are served from other origins
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsEventsHandler streams events to the client as JSON text frames.
// ?request_id= limits the stream to one compile request and ?event= to
// names with the given prefix ("compile.").
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter := eventFilter{
		requestID: r.URL.Query().Get("request_id"),
		prefix:    r.URL.Query().Get("event"),
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}

	sub := events.Subscribe()

	for _, e := range events.RecentEvents(recentEventsCount) {
		if !filter.match(e) {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("ws write recent event failed: %v", err)
			events.Unsubscribe(sub)
			conn.Close()
			return
		}
	}

	done := make(chan struct{})

	// reader: pongs and close frames
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			events.Unsubscribe(sub)
			conn.Close()
			return

		case e, ok := <-sub:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				conn.Close()
				return
			}
			if !filter.match(e) {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws write event failed: %v", err)
				events.Unsubscribe(sub)
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				events.Unsubscribe(sub)
				conn.Close()
				return
			}
		}
	}
}

type eventFilter struct {
	requestID string
	prefix    string
}

func (f eventFilter) match(e events.Event) bool {
	if f.prefix != "" && !strings.HasPrefix(e.Name, f.prefix) {
		return false
	}
	if f.requestID != "" {
		id, _ := e.Fields["request_id"].(string)
		return id == f.requestID
	}
	return true
}
