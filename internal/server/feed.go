package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/battleadvisor/internal/database"
	"github.com/lawnchairsociety/battleadvisor/internal/logger"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
	feedSendBuffer = 16
)

// FeedMessage is the envelope pushed to feed subscribers.
type FeedMessage struct {
	Type string                `json:"type"`
	Data database.BattleRecord `json:"data"`
}

// Feed fans stored battles out to WebSocket subscribers. A subscriber that
// falls behind by more than feedSendBuffer messages is disconnected.
type Feed struct {
	mu             sync.Mutex
	clients        map[*feedClient]struct{}
	closed         bool
	maxMessageSize int64
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	ip   string
	once sync.Once
}

func (c *feedClient) close() {
	c.once.Do(func() { close(c.send) })
}

// NewFeed creates an empty feed. Inbound messages larger than
// maxMessageSize bytes close the connection.
func NewFeed(maxMessageSize int64) *Feed {
	if maxMessageSize <= 0 {
		maxMessageSize = 4096
	}
	return &Feed{
		clients:        make(map[*feedClient]struct{}),
		maxMessageSize: maxMessageSize,
	}
}

// Publish sends rec to every subscriber without blocking.
func (f *Feed) Publish(rec database.BattleRecord) {
	msg, err := json.Marshal(FeedMessage{Type: "battle", Data: rec})
	if err != nil {
		logger.Error("Failed to encode feed message", "battle_id", rec.BattleID, "error", err)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for c := range f.clients {
		select {
		case c.send <- msg:
		default:
			logger.Warning("Dropping slow feed subscriber", "client_ip", c.ip)
			delete(f.clients, c)
			c.close()
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (f *Feed) ClientCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	for c := range f.clients {
		delete(f.clients, c)
		c.close()
	}
}

func (f *Feed) register(c *feedClient) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	f.clients[c] = struct{}{}
	return true
}

func (f *Feed) unregister(c *feedClient) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		c.close()
	}
}

// serve runs one subscriber until it disconnects or the feed closes.
func (f *Feed) serve(conn *websocket.Conn, ip string) {
	c := &feedClient{
		conn: conn,
		send: make(chan []byte, feedSendBuffer),
		ip:   ip,
	}
	if !f.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"),
			time.Now().Add(feedWriteWait))
		conn.Close()
		return
	}

	logger.Debug("Feed subscriber connected", "client_ip", ip)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.writePump(c)
	}()

	f.readPump(c)
	f.unregister(c)
	<-done
	logger.Debug("Feed subscriber disconnected", "client_ip", ip)
}

// readPump discards inbound messages and keeps the read deadline alive on
// pongs. It returns when the connection fails.
func (f *Feed) readPump(c *feedClient) {
	c.conn.SetReadLimit(f.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Feed read error", "client_ip", c.ip, "error", err)
			}
			return
		}
	}
}

// writePump is the only writer on the connection. It closes the connection
// when the send channel is closed.
func (f *Feed) writePump(c *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFeed upgrades the request and blocks for the life of the
// subscription, so the connection limiter holds its slot throughout.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Feed.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("Feed connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		logger.Warning("Feed upgrade failed", "error", err)
		return
	}

	s.feed.serve(conn, s.clientIP(r))
}
