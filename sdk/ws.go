package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SubprotocolGraphQLTransportWS is the websocket subprotocol spoken by the transport.
const SubprotocolGraphQLTransportWS = "graphql-transport-ws"

// graphql-transport-ws message types.
const (
	MessageConnectionInit = "connection_init"
	MessageConnectionAck  = "connection_ack"
	MessagePing           = "ping"
	MessagePong           = "pong"
	MessageSubscribe      = "subscribe"
	MessageNext           = "next"
	MessageError          = "error"
	MessageComplete       = "complete"
)

// Close codes used by graphql-transport-ws servers.
const (
	CloseUnauthorized          = 4401
	CloseForbidden             = 4403
	CloseConnectionInitTimeout = 4408
	CloseSubscriberExists      = 4409
	CloseTooManyInitRequests   = 4429
)

const (
	subscriptionBacklog = 256
	writeTimeout        = 10 * time.Second
)

// WSMessage is a graphql-transport-ws protocol message.
type WSMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// InitPayload is the connection_init payload carrying the bearer token.
type InitPayload struct {
	Token string `json:"token,omitempty"`
}

// DialError reports a failed websocket handshake.
type DialError struct {
	URL        string
	StatusCode int
}

func (e *DialError) Error() string {
	return fmt.Sprintf("connecting to websocket %s (http status code = %d)", e.URL, e.StatusCode)
}

// Unwrap maps the handshake status to an SDK sentinel.
func (e *DialError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= 500:
		return ErrServerError
	}
	return ErrBadRequest
}

// IsExpectedWSCloseError returns boolean indicating whether the error is a
// clean disconnection.
func IsExpectedWSCloseError(err error) bool {
	return err == io.EOF || err == io.ErrClosedPipe || websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure,
	)
}

// WSTransport carries operations over a single multiplexed
// graphql-transport-ws connection. The connection is dialled on first use
// and dialled again after it drops.
type WSTransport struct {
	endpoint   string
	token      TokenProvider
	userAgent  string
	keepAlive  time.Duration
	ackTimeout time.Duration
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu   sync.Mutex
	conn *wsConn
}

// NewWSTransport creates a websocket transport from a validated configuration.
func NewWSTransport(config ClientConfig) *WSTransport {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: config.Timeout,
		Subprotocols:     []string{SubprotocolGraphQLTransportWS},
		Jar:              config.HTTPClient.Jar,
	}
	if tr, ok := config.HTTPClient.Transport.(*http.Transport); ok {
		dialer.TLSClientConfig = tr.TLSClientConfig
	}

	return &WSTransport{
		endpoint:   config.WSEndpoint,
		token:      config.TokenProvider,
		userAgent:  config.UserAgent,
		keepAlive:  config.KeepAlive,
		ackTimeout: config.AckTimeout,
		dialer:     dialer,
		logger:     config.Logger,
	}
}

// Execute runs a query or mutation as a subscription with a single result.
func (t *WSTransport) Execute(ctx context.Context, req *Request) (*Response, error) {
	sub, err := t.Subscribe(ctx, req)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	if !sub.Next(ctx) {
		if err := sub.Err(); err != nil {
			return nil, err
		}
		return nil, ErrEmptyResponse
	}
	return sub.Response(), nil
}

// Subscribe starts req on the shared connection. Cancelling ctx or closing
// the subscription sends "complete" to the server.
func (t *WSTransport) Subscribe(ctx context.Context, req *Request) (*Subscription, error) {
	conn, err := t.connection(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal subscribe payload: %w", err)
	}

	id := uuid.NewString()
	sub := newSubscription(id, subscriptionBacklog)
	sub.stop = func() {
		if conn.remove(id) != nil {
			if err := conn.write(WSMessage{ID: id, Type: MessageComplete}); err != nil {
				t.logger.Debug("failed to send complete", zap.String("subscription_id", id), zap.Error(err))
			}
		}
	}

	if !conn.register(sub) {
		return nil, ErrConnectionLost
	}
	if err := conn.write(WSMessage{ID: id, Type: MessageSubscribe, Payload: payload}); err != nil {
		conn.remove(id)
		return nil, fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.Done():
		case <-sub.closed:
		}
	}()

	t.logger.Debug("subscription started",
		zap.String("subscription_id", id),
		zap.String("operation", req.OperationName),
	)

	return sub, nil
}

// Close closes the shared connection. Active subscriptions end with
// ErrSubscriptionClosed.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.close()
}

// connection returns the live connection, dialling a new one when needed.
func (t *WSTransport) connection(ctx context.Context) (*wsConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil && !t.conn.isClosed() {
		return t.conn, nil
	}

	conn, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	t.conn = conn
	return conn, nil
}

func (t *WSTransport) dial(ctx context.Context) (*wsConn, error) {
	header := http.Header{}
	header.Set("User-Agent", t.userAgent)

	token, err := resolveToken(ctx, t.token)
	if err != nil {
		return nil, err
	}
	if token != "" {
		header.Set(HeaderAuthorization, "Bearer "+token)
	}

	ws, resp, err := t.dialer.DialContext(ctx, t.endpoint, header)
	if err != nil {
		if resp != nil {
			return nil, &DialError{URL: t.endpoint, StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("failed to dial %s: %w", t.endpoint, err)
	}

	if err := t.handshake(ws, token); err != nil {
		ws.Close()
		return nil, err
	}

	conn := &wsConn{
		ws:     ws,
		logger: t.logger,
		subs:   make(map[string]*Subscription),
		done:   make(chan struct{}),
	}
	go conn.readLoop()
	go conn.keepAlive(t.keepAlive)

	t.logger.Debug("websocket connected", zap.String("endpoint", t.endpoint))
	return conn, nil
}

// handshake sends connection_init and waits for connection_ack.
func (t *WSTransport) handshake(ws *websocket.Conn, token string) error {
	init := WSMessage{Type: MessageConnectionInit}
	if token != "" {
		payload, err := json.Marshal(InitPayload{Token: token})
		if err != nil {
			return fmt.Errorf("failed to marshal init payload: %w", err)
		}
		init.Payload = payload
	}

	ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := ws.WriteJSON(init); err != nil {
		return fmt.Errorf("failed to send connection_init: %w", err)
	}

	ws.SetReadDeadline(time.Now().Add(t.ackTimeout))
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return ErrConnectionAckTimeout
			}
			if websocket.IsCloseError(err, CloseUnauthorized, CloseForbidden) {
				return ErrUnauthorized
			}
			return fmt.Errorf("failed to read connection_ack: %w", err)
		}

		switch msg.Type {
		case MessageConnectionAck:
			ws.SetReadDeadline(time.Time{})
			ws.SetWriteDeadline(time.Time{})
			return nil
		case MessagePing:
			ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(WSMessage{Type: MessagePong}); err != nil {
				return fmt.Errorf("failed to send pong: %w", err)
			}
		default:
			return fmt.Errorf("%w: unexpected %q before connection_ack", ErrBadRequest, msg.Type)
		}
	}
}

// wsConn is one established graphql-transport-ws connection.
type wsConn struct {
	ws     *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	subs    map[string]*Subscription
	closed  bool
	closing bool

	done chan struct{}
}

func (c *wsConn) write(msg WSMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(msg)
}

func (c *wsConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *wsConn) register(sub *Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	c.subs[sub.id] = sub
	return true
}

func (c *wsConn) get(id string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subs[id]
}

func (c *wsConn) remove(id string) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	sub := c.subs[id]
	delete(c.subs, id)
	return sub
}

func (c *wsConn) readLoop() {
	for {
		var msg WSMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			c.fail(err)
			return
		}
		c.handle(msg)
	}
}

func (c *wsConn) handle(msg WSMessage) {
	switch msg.Type {
	case MessageNext:
		sub := c.get(msg.ID)
		if sub == nil {
			return
		}
		var resp Response
		if err := json.Unmarshal(msg.Payload, &resp); err != nil {
			c.logger.Warn("dropping malformed next payload", zap.String("subscription_id", msg.ID), zap.Error(err))
			return
		}
		if err := sub.push(&resp); err != nil {
			c.logger.Warn("ending subscription with unread results",
				zap.String("subscription_id", msg.ID),
				zap.Int("backlog", subscriptionBacklog),
			)
			if c.remove(msg.ID) != nil {
				if err := c.write(WSMessage{ID: msg.ID, Type: MessageComplete}); err != nil {
					c.logger.Debug("failed to send complete", zap.String("subscription_id", msg.ID), zap.Error(err))
				}
			}
			sub.finish(err)
		}

	case MessageError:
		sub := c.remove(msg.ID)
		if sub == nil {
			return
		}
		var errs GraphQLErrors
		if err := json.Unmarshal(msg.Payload, &errs); err != nil || len(errs) == 0 {
			errs = GraphQLErrors{{Message: "subscription failed"}}
		}
		sub.finish(errs)

	case MessageComplete:
		if sub := c.remove(msg.ID); sub != nil {
			sub.finish(nil)
		}

	case MessagePing:
		if err := c.write(WSMessage{Type: MessagePong}); err != nil {
			c.logger.Debug("failed to send pong", zap.Error(err))
		}

	case MessagePong:

	default:
		c.logger.Warn("unexpected websocket message", zap.String("type", msg.Type))
	}
}

// fail tears the connection down and ends every active subscription.
func (c *wsConn) fail(err error) {
	c.mu.Lock()
	c.closed = true
	closing := c.closing
	subs := c.subs
	c.subs = make(map[string]*Subscription)
	c.mu.Unlock()

	close(c.done)
	c.ws.Close()

	var subErr error
	switch {
	case closing:
		subErr = ErrSubscriptionClosed
	case IsExpectedWSCloseError(err):
		subErr = fmt.Errorf("%w: server closed the connection", ErrConnectionLost)
	default:
		subErr = fmt.Errorf("%w: %v", ErrConnectionLost, err)
	}

	if !closing {
		c.logger.Debug("websocket connection lost", zap.Error(err), zap.Int("active_subscriptions", len(subs)))
	}
	for _, sub := range subs {
		sub.finish(subErr)
	}
}

func (c *wsConn) keepAlive(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(WSMessage{Type: MessagePing}); err != nil {
				return
			}
		}
	}
}

// close sends a normal closure and closes the socket. readLoop observes the
// closed socket and finishes the remaining subscriptions.
func (c *wsConn) close() error {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()


	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.ws.Close()
}
