package server

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/telemetry/internal/core/notify"
	"github.com/zeusync/telemetry/internal/core/observability/log"
)

// Update is one message sent to a feed client. Value is null when the
// variable has no numeric value.
type Update struct {
	Entity uuid.UUID `json:"entity"`
	Name   string    `json:"name"`
	Value  *float64  `json:"value"`
	Error  string    `json:"error,omitempty"`
}

type client struct {
	id     uuid.UUID
	entity uuid.UUID
	names  []string
	conn   *websocket.Conn
	out    chan Update

	// subs is owned by the tick thread.
	subs []notify.Subscription

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(conn *websocket.Conn, entity uuid.UUID, names []string, queue int) *client {
	return &client{
		id:     uuid.New(),
		entity: entity,
		names:  names,
		conn:   conn,
		out:    make(chan Update, queue),
		done:   make(chan struct{}),
	}
}

// push is the change callback. It runs on the tick thread and never
// blocks: when the queue is full the oldest update is dropped.
func (c *client) push(name string, value float64) {
	u := Update{Entity: c.entity, Name: name}
	if !math.IsNaN(value) && !math.IsInf(value, 0) {
		u.Value = &value
	}
	c.enqueue(u)
}

func (c *client) enqueue(u Update) {
	if c.isClosed() {
		return
	}
	for {
		select {
		case c.out <- u:
			return
		default:
		}
		select {
		case <-c.out:
		default:
		}
	}
}

// fail queues an error message; the writer closes the connection after
// delivering it.
func (c *client) fail(err error) {
	c.enqueue(Update{Entity: c.entity, Error: err.Error()})
}

func (c *client) writeLoop(timeout time.Duration, logger log.Log) {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(timeout))
			return
		case u := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
			if err := c.conn.WriteJSON(u); err != nil {
				logger.Debug("Feed write failed", log.Error(err))
				c.close()
				return
			}
			if u.Error != "" {
				c.close()
				return
			}
		}
	}
}

// readLoop discards client messages until the connection fails or closes.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}
