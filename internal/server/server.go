// Package server exposes change notifications to remote displays over
// websocket. Connections are served concurrently, but subscriptions are
// applied on the tick thread: the host calls Pump between ticks.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/telemetry/internal/core/notify"
	"github.com/zeusync/telemetry/internal/core/observability/log"
)

// Config holds feed configuration
type Config struct {
	ListenAddr   string        `yaml:"listen_addr" validate:"required"`
	MaxClients   int           `yaml:"max_clients" validate:"min=1"`
	QueueSize    int           `yaml:"queue_size" validate:"min=1"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gt=0"`
}

// DefaultConfig returns default feed configuration
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:8080",
		MaxClients:   256,
		QueueSize:    64,
		WriteTimeout: 5 * time.Second,
	}
}

// Subscriber is the part of the engine the feed drives.
type Subscriber interface {
	Subscribe(id uuid.UUID, name string, cb notify.Callback) (notify.Subscription, error)
	Unsubscribe(id uuid.UUID, sub notify.Subscription) error
}

type requestKind uint8

const (
	requestSubscribe requestKind = iota + 1
	requestUnsubscribe
)

type request struct {
	kind   requestKind
	client *client
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Feed serves /feed?entity=<uuid>&vars=A,B and streams an Update for every
// change of the requested variables.
type Feed struct {
	config   Config
	engine   Subscriber
	logger   log.Log
	requests chan request

	mu      sync.Mutex
	clients map[uuid.UUID]*client

	mux     *http.ServeMux
	server  *http.Server
	running int32 // atomic bool
}

func NewFeed(config Config, engine Subscriber, logger log.Log) *Feed {
	if logger == nil {
		logger = log.NewNop()
	}
	f := &Feed{
		config:   config,
		engine:   engine,
		logger:   logger.With(log.String("component", "feed")),
		requests: make(chan request, config.MaxClients*2),
		clients:  make(map[uuid.UUID]*client),
		mux:      http.NewServeMux(),
	}
	f.mux.Handle("/feed", f)
	return f
}

// Mount serves an additional handler next to the feed, such as metrics.
// It must be called before Start.
func (f *Feed) Mount(pattern string, h http.Handler) {
	f.mux.Handle(pattern, h)
}

// Start listens on the configured address and serves until Stop.
func (f *Feed) Start(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&f.running, 0, 1) {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", f.config.ListenAddr)
	if err != nil {
		atomic.StoreInt32(&f.running, 0)
		f.logger.Error("Failed to create listener", log.Error(err))
		return err
	}

	f.server = &http.Server{Handler: f.mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("Feed server failed", log.Error(err))
		}
	}()

	f.logger.Info("Feed listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Stop shuts the listener down and disconnects every client.
func (f *Feed) Stop(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&f.running, 1, 0) {
		return ErrServerNotRunning
	}

	err := f.server.Shutdown(ctx)

	f.mu.Lock()
	for _, c := range f.clients {
		c.close()
	}
	f.mu.Unlock()

	f.logger.Info("Feed stopped")
	return err
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entity, names, err := parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	full := len(f.clients) >= f.config.MaxClients
	f.mu.Unlock()
	if full {
		f.logger.Warn("Maximum clients reached, rejecting connection")
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn("Websocket upgrade failed", log.Error(err))
		return
	}

	c := newClient(conn, entity, names, f.config.QueueSize)
	f.mu.Lock()
	f.clients[c.id] = c
	f.mu.Unlock()

	clientLogger := f.logger.With(
		log.Stringer("client_id", c.id),
		log.Stringer("entity", entity),
	)
	clientLogger.Info("Client connected", log.Int("vars", len(names)))

	go c.writeLoop(f.config.WriteTimeout, clientLogger)

	select {
	case f.requests <- request{kind: requestSubscribe, client: c}:
	case <-r.Context().Done():
		c.close()
	}

	c.readLoop()
	c.close()

	f.mu.Lock()
	delete(f.clients, c.id)
	f.mu.Unlock()

	// The subscriptions belong to the tick thread; hand the removal back.
	// A closed client ignores further pushes, so a dropped request only
	// leaves inert callbacks behind.
	select {
	case f.requests <- request{kind: requestUnsubscribe, client: c}:
	default:
		clientLogger.Warn("Feed request queue full, subscriptions left to the entity")
	}
	clientLogger.Info("Client disconnected")
}

// Pump applies queued subscription changes. It must be called from the
// thread that ticks the engine and never blocks. It returns the number of
// requests applied.
func (f *Feed) Pump() int {
	n := 0
	for {
		select {
		case req := <-f.requests:
			f.apply(req)
			n++
		default:
			return n
		}
	}
}

func (f *Feed) apply(req request) {
	c := req.client
	switch req.kind {
	case requestSubscribe:
		if c.isClosed() {
			return
		}
		for _, name := range c.names {
			sub, err := f.engine.Subscribe(c.entity, name, c.push)
			if err != nil {
				f.logger.Warn("Feed subscription rejected",
					log.Stringer("client_id", c.id),
					log.Error(err),
				)
				c.fail(err)
				f.unsubscribeAll(c)
				return
			}
			c.subs = append(c.subs, sub)
		}
	case requestUnsubscribe:
		f.unsubscribeAll(c)
	}
}

func (f *Feed) unsubscribeAll(c *client) {
	for _, sub := range c.subs {
		_ = f.engine.Unsubscribe(c.entity, sub)
	}
	c.subs = nil
}

// Clients reports the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

func parseRequest(r *http.Request) (uuid.UUID, []string, error) {
	q := r.URL.Query()
	id, err := uuid.Parse(q.Get("entity"))
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w: entity: %v", ErrInvalidRequest, err)
	}
	var names []string
	for _, n := range strings.Split(q.Get("vars"), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		return uuid.Nil, nil, fmt.Errorf("%w: no vars requested", ErrInvalidRequest)
	}
	return id, names, nil
}
