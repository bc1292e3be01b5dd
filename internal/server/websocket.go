package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/engine"
	"github.com/verte-zerg/codetype/internal/identity"
	"github.com/verte-zerg/codetype/internal/session"
)

const writeWait = 5 * time.Second

// clientMessage is sent by the browser. Type is one of key, settings or retry.
type clientMessage struct {
	Type     string `json:"type"`
	Key      string `json:"key,omitempty"`
	Duration int    `json:"duration,omitempty"`
	Category string `json:"category,omitempty"`
}

type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	logger  *slog.Logger
}

func (c *wsClient) send(ev session.Event) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("failed to set write deadline", "error", err)
		return
	}
	if err := c.conn.WriteJSON(ev); err != nil {
		c.logger.Debug("failed to write event", "error", err, "type", ev.Type)
	}
}

func (s *Server) handlePractice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var ident *identity.Identity
	if id, ok := identity.FromContext(r.Context()); ok {
		ident = &id
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	client := &wsClient{conn: conn, logger: s.logger}

	runner := session.New(session.Config{
		Source:   s.source,
		Recorder: s.recorder,
		Identity: ident,
		Category: q.Get("category"),
		Duration: config.ParseDuration(q.Get("duration")),
		Emit:     client.send,
		Logger:   s.logger,
	})
	logger := s.logger.With("runner_id", runner.ID())
	logger.Info("practice connected", "signed_in", ident != nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			break
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Debug("ignoring malformed message", "error", err)
			continue
		}
		switch msg.Type {
		case "key":
			runner.Key(engine.ParseKey(msg.Key))
		case "settings":
			runner.Settings(msg.Duration, msg.Category)
		case "retry":
			runner.Retry()
		default:
			logger.Debug("ignoring unknown message", "type", msg.Type)
		}
	}

	cancel()
	<-done
	if cerr := conn.Close(); cerr != nil {
		// Best-effort close after the peer went away.
		_ = cerr
	}
	logger.Info("practice disconnected")
}
