// Package transport is the client side of the real-time socket: a websocket
// carrying JSON {event, data} frames, with publish and observer registration.
package transport

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/pelusa-v/mailgram/internal/events"
)

const (
	defaultQueueSize    = 64
	defaultPingInterval = 30 * time.Second
	handshakeTimeout    = 10 * time.Second
)

var (
	ErrClosed    = errors.New("transport: client closed")
	ErrQueueFull = errors.New("transport: send queue full")
)

// Conn is the subset of a websocket connection the client drives.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	Close() error
}

type Option func(*options)

type options struct {
	logger       zerolog.Logger
	queueSize    int
	pingInterval time.Duration
	netDial      func(ctx context.Context, network, addr string) (net.Conn, error)
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithPingInterval sets how often the write pump pings the server. Zero or
// less disables pings.
func WithPingInterval(d time.Duration) Option {
	return func(o *options) { o.pingInterval = d }
}

// WithNetDial overrides how the underlying connection is opened.
func WithNetDial(dial func(ctx context.Context, network, addr string) (net.Conn, error)) Option {
	return func(o *options) { o.netDial = dial }
}

type handler struct {
	id uint64
	fn func(json.RawMessage)
}

// Client publishes outbound events and dispatches inbound ones. A single
// read loop delivers events to handlers in arrival order.
type Client struct {
	conn         Conn
	send         chan []byte
	logger       zerolog.Logger
	pingInterval time.Duration

	mu       sync.RWMutex
	handlers map[string][]handler
	nextID   uint64

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Dial opens a websocket to rawURL and starts the client.
func Dial(ctx context.Context, rawURL string, header http.Header, opts ...Option) (*Client, error) {
	o := buildOptions(opts)
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		NetDialContext:   o.netDial,
	}
	conn, resp, err := dialer.DialContext(ctx, rawURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial %s", rawURL)
	}
	return newClient(conn, o), nil
}

// New starts a client over an established connection.
func New(conn Conn, opts ...Option) (*Client, error) {
	if conn == nil {
		return nil, errors.New("transport: conn must not be nil")
	}
	return newClient(conn, buildOptions(opts)), nil
}

func buildOptions(opts []Option) options {
	o := options{logger: zerolog.Nop(), queueSize: defaultQueueSize, pingInterval: defaultPingInterval}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newClient(conn Conn, o options) *Client {
	c := &Client{
		conn:         conn,
		send:         make(chan []byte, o.queueSize),
		logger:       o.logger,
		pingInterval: o.pingInterval,
		handlers:     map[string][]handler{},
		done:         make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
	return c
}

// Emit queues one event. It never blocks and never retries.
func (c *Client) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "transport: encode %s", event)
	}
	frame, err := json.Marshal(events.Envelope{Event: event, Data: data})
	if err != nil {
		return errors.Wrapf(err, "transport: encode %s", event)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrQueueFull
	}
}

// On registers fn for event and returns its disposer.
func (c *Client) On(event string, fn func(data json.RawMessage)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.handlers[event] = append(c.handlers[event], handler{id: id, fn: fn})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.off(event, id) })
	}
}

func (c *Client) off(event string, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	hs := c.handlers[event]
	for i, h := range hs {
		if h.id == id {
			c.handlers[event] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(c.handlers[event]) == 0 {
		delete(c.handlers, event)
	}
}

// Done is closed when the client stops.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err reports why the client stopped, once Done is closed.
func (c *Client) Err() error {
	<-c.done
	return c.err
}

func (c *Client) Close() error {
	c.shutdown(ErrClosed)
	return nil
}

func (c *Client) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.err = cause
		close(c.done)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("close connection")
		}
	})
}

func (c *Client) readPump() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.shutdown(errors.Wrap(err, "transport: read"))
			return
		}
		var env events.Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
			c.logger.Debug().Bytes("frame", data).Msg("dropping malformed frame")
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env events.Envelope) {
	c.mu.RLock()
	hs := append([]handler(nil), c.handlers[env.Event]...)
	c.mu.RUnlock()
	for _, h := range hs {
		h.fn(env.Data)
	}
}

func (c *Client) writePump() {
	var ping <-chan time.Time
	if c.pingInterval > 0 {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.shutdown(errors.Wrap(err, "transport: write"))
				return
			}
		case <-ping:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.shutdown(errors.Wrap(err, "transport: ping"))
				return
			}
		}
	}
}
