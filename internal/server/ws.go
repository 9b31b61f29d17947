package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/storyreel/internal/pipeline"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message types sent over /ws.
const (
	MessageEvent  = "event"
	MessageResult = "result"
	MessageError  = "error"
)

// Message is one frame sent to a websocket client.
type Message struct {
	Type   string           `json:"type"`
	Event  *pipeline.Event  `json:"event,omitempty"`
	Result *pipeline.Result `json:"result,omitempty"`
	Error  string           `json:"error,omitempty"`
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)) //nolint:errcheck
	return c.conn.WriteJSON(m)
}

// handleWebsocket reads one story from the client, runs it and streams the
// run's events followed by a result or error frame. The run is cancelled
// when the client goes away.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close() //nolint:errcheck
	ws := &wsConn{conn: conn}

	var req storyRequest
	if err := conn.ReadJSON(&req); err != nil {
		ws.send(Message{Type: MessageError, Error: "expected a story: " + err.Error()}) //nolint:errcheck
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Any further read failing means the client closed the connection.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	observer := pipeline.ObserverFunc(func(e pipeline.Event) {
		if err := ws.send(Message{Type: MessageEvent, Event: &e}); err != nil {
			log.Debug("dropping event for closed websocket", "run", e.RunID, "err", err)
		}
	})

	res, err := s.runner.Generate(ctx, req.story(), pipeline.WithObserver(observer), pipeline.WithSource("ws"))
	if err != nil {
		log.Error("websocket run failed", "err", err)
		ws.send(Message{Type: MessageError, Error: err.Error()}) //nolint:errcheck
		return
	}
	if err := ws.send(Message{Type: MessageResult, Result: res}); err != nil {
		log.Warn("unable to send result", "run", res.RunID, "err", err)
		return
	}

	ws.mu.Lock()
	conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	ws.mu.Unlock()
}
