// Package testclient is a client for a running battle advisor server, used
// by the integration test runner.
package testclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/battleadvisor/internal/battle"
	"github.com/lawnchairsociety/battleadvisor/internal/database"
	"github.com/lawnchairsociety/battleadvisor/internal/server"
	"github.com/lawnchairsociety/battleadvisor/internal/units"
)

const requestTimeout = 10 * time.Second

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

// TestClient represents a test client of the battle advisor API
type TestClient struct {
	Name    string
	baseURL string
	apiKey  string
	http    *http.Client

	feed     *websocket.Conn
	messages []server.FeedMessage
	mu       sync.Mutex
	done     chan struct{}
}

// NewTestClient creates a client for the server at address (host:port or a
// full http URL). apiKey may be empty when auth is disabled.
func NewTestClient(name, address, apiKey string) *TestClient {
	base := address
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &TestClient{
		Name:    name,
		baseURL: strings.TrimSuffix(base, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
		done:    make(chan struct{}),
	}
}

// Do sends a request and returns the status and body. Non-2xx statuses are
// not errors here.
func (c *TestClient) Do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to connect: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// call sends a request and decodes a 2xx JSON reply into out.
func (c *TestClient) call(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	status, data, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status}
		var detail struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &detail) == nil {
			apiErr.Detail = detail.Detail
		}
		return apiErr
	}
	return json.Unmarshal(data, out)
}

// Health returns the health endpoint body.
func (c *TestClient) Health(ctx context.Context) (map[string]string, error) {
	var out map[string]string
	err := c.call(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}

// Simulate submits a battle.
func (c *TestClient) Simulate(ctx context.Context, player, enemy battle.Army, scenario string) (battle.Result, error) {
	in := struct {
		PlayerArmy battle.Army `json:"player_army"`
		EnemyArmy  battle.Army `json:"enemy_army"`
		Scenario   string      `json:"scenario,omitempty"`
	}{player, enemy, scenario}

	var out battle.Result
	err := c.call(ctx, http.MethodPost, "/api/battle/simulate", in, &out)
	return out, err
}

// History lists stored battles, newest first.
func (c *TestClient) History(ctx context.Context, limit int) ([]database.BattleRecord, error) {
	path := "/api/battle/history"
	if limit != 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out struct {
		Battles []database.BattleRecord `json:"battles"`
	}
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out.Battles, err
}

// GetBattle fetches one stored battle.
func (c *TestClient) GetBattle(ctx context.Context, battleID string) (*database.BattleRecord, error) {
	var out database.BattleRecord
	if err := c.call(ctx, http.MethodGet, "/api/battle/"+url.PathEscape(battleID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Optimize asks for a composition against enemy.
func (c *TestClient) Optimize(ctx context.Context, totalTroops int, enemy units.Composition) (battle.Optimization, error) {
	q := url.Values{"total_troops": {strconv.Itoa(totalTroops)}}
	for _, t := range units.All {
		if enemy[t] != 0 {
			q.Set("enemy_"+t.String(), strconv.Itoa(enemy[t]))
		}
	}
	var out battle.Optimization
	err := c.call(ctx, http.MethodGet, "/api/army/optimize?"+q.Encode(), nil, &out)
	return out, err
}

// SubscribeFeed opens the live battle feed and starts collecting messages.
func (c *TestClient) SubscribeFeed(ctx context.Context) error {
	u, err := url.Parse(c.baseURL + "/ws/battles")
	if err != nil {
		return err
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	if c.apiKey != "" {
		u.RawQuery = url.Values{"key": {c.apiKey}}.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to open feed (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("failed to open feed: %w", err)
	}

	c.mu.Lock()
	c.feed = conn
	c.mu.Unlock()

	go c.readMessages(conn)
	return nil
}

// readMessages continuously reads feed messages from the server
func (c *TestClient) readMessages(conn *websocket.Conn) {
	for {
		select {
		case <-c.done:
			return
		default:
			var msg server.FeedMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			c.mu.Lock()
			c.messages = append(c.messages, msg)
			c.mu.Unlock()
		}
	}
}

// GetMessages returns all feed messages received so far
func (c *TestClient) GetMessages() []server.FeedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy
	result := make([]server.FeedMessage, len(c.messages))
	copy(result, c.messages)
	return result
}

// ClearMessages clears the message buffer
func (c *TestClient) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
}

// WaitForBattle waits for the feed to announce battleID (with timeout)
func (c *TestClient) WaitForBattle(battleID string, timeout time.Duration) (server.FeedMessage, bool) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		for _, msg := range c.GetMessages() {
			if msg.Data.BattleID == battleID {
				return msg, true
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	return server.FeedMessage{}, false
}

// Close closes the feed connection, if any
func (c *TestClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	if c.feed != nil {
		return c.feed.Close()
	}
	return nil
}
