// Package realtime implements a WebSocket client for the hosted store's
// change feed. Subscriptions are per table; every committed insert, update,
// and delete on a subscribed table arrives as a Change.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// DefaultHeartbeatInterval is how often the client sends heartbeats.
var DefaultHeartbeatInterval = 30 * time.Second

// DefaultPingTimeout is how long we wait without receiving any frame
// (including heartbeat replies) before treating the connection as dead.
var DefaultPingTimeout = 75 * time.Second

// ErrPingTimeout is returned when no frames are received within the ping timeout.
var ErrPingTimeout = errors.New("ping timeout: no frames received")

// ChangeType is the kind of row change.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is one committed row change on a subscribed table. Record carries
// the new row for inserts and updates; OldRecord carries the prior row (or
// at least its primary key) for updates and deletes.
type Change struct {
	Table     string          `json:"table"`
	Type      ChangeType      `json:"type"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// Event is a message received from the change feed.
type Event struct {
	Change *Change
	Err    error // non-nil on read error or disconnect
}

// frame is a raw phoenix-protocol JSON frame.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// Client is a change-feed WebSocket client.
type Client struct {
	conn   *websocket.Conn
	url    string
	topics []string
	ref    atomic.Int64
}

// maxReadSize caps the maximum WebSocket frame size to 1 MB.
// Change frames are small JSON; anything larger is likely malformed.
const maxReadSize = 1 << 20 // 1 MB

// Connect dials the change-feed endpoint.
func Connect(ctx context.Context, baseURL, apiKey string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/realtime/v1/websocket"
	q := u.Query()
	q.Set("apikey", apiKey)
	q.Set("vsn", "1.0.0")
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	conn.SetReadLimit(maxReadSize)

	return &Client{conn: conn, url: u.String()}, nil
}

// Close gracefully closes the connection.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Client) nextRef() string {
	return strconv.FormatInt(c.ref.Add(1), 10)
}

// Subscribe joins the change topic for a table and waits for the join reply.
func (c *Client) Subscribe(ctx context.Context, table string) error {
	topic := "realtime:public:" + table
	join := frame{
		Topic: topic,
		Event: "phx_join",
		Payload: json.RawMessage(fmt.Sprintf(
			`{"config":{"postgres_changes":[{"event":"*","schema":"public","table":%q}]}}`, table)),
		Ref: c.nextRef(),
	}
	data, _ := json.Marshal(join)
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write join: %w", err)
	}

	// Wait for the join reply, skipping heartbeat replies and frames for
	// topics joined earlier.
	for {
		_, resp, err := c.conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read join reply: %w", err)
		}

		var f frame
		if err := json.Unmarshal(resp, &f); err != nil {
			return fmt.Errorf("parse join reply: %w", err)
		}
		if f.Topic != topic {
			continue
		}

		switch f.Event {
		case "phx_reply":
			var reply struct {
				Status string `json:"status"`
			}
			if err := json.Unmarshal(f.Payload, &reply); err != nil {
				return fmt.Errorf("parse join status: %w", err)
			}
			if reply.Status != "ok" {
				return fmt.Errorf("join rejected for %s (status=%s)", table, reply.Status)
			}
			c.topics = append(c.topics, topic)
			return nil
		case "phx_error", "phx_close":
			return fmt.Errorf("join failed for %s", table)
		default:
			continue
		}
	}
}

// StartHeartbeat sends protocol heartbeats at the given interval. Stops when
// ctx is cancelled. If onError is non-nil, it is called once on the first
// write failure before the goroutine exits.
func (c *Client) StartHeartbeat(ctx context.Context, interval time.Duration, onError func(error)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hb := frame{
					Topic:   "phoenix",
					Event:   "heartbeat",
					Payload: json.RawMessage(`{}`),
					Ref:     c.nextRef(),
				}
				data, _ := json.Marshal(hb)
				if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
					if onError != nil && ctx.Err() == nil {
						onError(fmt.Errorf("heartbeat write: %w", err))
					}
					return
				}
			}
		}
	}()
}

// Listen starts the read loop and returns a channel of events.
// Heartbeat replies and protocol frames are handled silently.
// The channel closes when the connection drops or ctx is cancelled.
//
// A rolling ping timeout detects half-dead connections: if no frame
// (including heartbeat replies) arrives within DefaultPingTimeout, the
// connection is treated as dead and an ErrPingTimeout is emitted.
func (c *Client) Listen(ctx context.Context) <-chan Event {
	return c.ListenWithTimeout(ctx, DefaultPingTimeout)
}

// ListenWithTimeout is like Listen but with a configurable ping timeout.
// Use 0 to disable the timeout (not recommended in production).
func (c *Client) ListenWithTimeout(ctx context.Context, pingTimeout time.Duration) <-chan Event {
	ch := make(chan Event, 64)
	go func() {
		defer close(ch)
		for {
			// Create a per-read context with a deadline so that half-dead
			// connections (no FIN/RST, just silence) get detected.
			readCtx := ctx
			var readCancel context.CancelFunc
			if pingTimeout > 0 {
				readCtx, readCancel = context.WithTimeout(ctx, pingTimeout)
			}

			_, data, err := c.conn.Read(readCtx)

			if readCancel != nil {
				readCancel()
			}

			if err != nil {
				// Distinguish ping timeout from parent context cancellation.
				if pingTimeout > 0 && ctx.Err() == nil && readCtx.Err() != nil {
					err = ErrPingTimeout
				}
				select {
				case ch <- Event{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			var f frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue // skip malformed frames
			}

			switch f.Event {
			case "phx_reply", "presence_state", "presence_diff", "system":
				continue
			case "phx_error", "phx_close":
				select {
				case ch <- Event{Err: fmt.Errorf("channel closed (topic=%s)", f.Topic)}:
				case <-ctx.Done():
				}
				return
			case "postgres_changes":
				change, err := decodeChange(f.Payload)
				if err != nil {
					continue // skip frames we cannot decode
				}
				select {
				case ch <- Event{Change: change}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch
}

// decodeChange extracts the row change from a postgres_changes payload.
func decodeChange(payload json.RawMessage) (*Change, error) {
	var wrapper struct {
		Data Change `json:"data"`
	}
	if err := json.Unmarshal(payload, &wrapper); err != nil {
		return nil, err
	}
	if wrapper.Data.Table == "" || wrapper.Data.Type == "" {
		return nil, errors.New("change frame missing table or type")
	}
	return &wrapper.Data, nil
}
