package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/models"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/server/internal/api/middleware"
	"kabinet.io/kabinet/server/internal/metrics"
	"kabinet.io/kabinet/server/internal/resolver"
)

const (
	// DefaultInitTimeout is how long a client may wait before connection_init.
	DefaultInitTimeout = 10 * time.Second

	wsWriteTimeout = 10 * time.Second

	// closeBadRequest is sent for malformed or unexpected protocol messages.
	closeBadRequest = 4400
)

// WSHandler serves GraphQL over the graphql-transport-ws protocol.
type WSHandler struct {
	resolver    Resolver
	auth        *middleware.AuthConfig
	initTimeout time.Duration
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a websocket handler. A zero initTimeout uses
// DefaultInitTimeout.
func NewWSHandler(resolver Resolver, auth *middleware.AuthConfig, initTimeout time.Duration) *WSHandler {
	if initTimeout <= 0 {
		initTimeout = DefaultInitTimeout
	}
	return &WSHandler{
		resolver:    resolver,
		auth:        auth,
		initTimeout: initTimeout,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{sdk.SubprotocolGraphQLTransportWS},
			CheckOrigin:  func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /graphql websocket upgrades.
//
// A bearer token in the upgrade request is verified before upgrading; a
// token in the connection_init payload is verified afterwards.
func (h *WSHandler) Serve(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		respondGraphQLError(c, http.StatusBadRequest,
			fmt.Errorf("%w: GET /graphql requires a websocket upgrade", models.ErrInvalidRequest))
		return
	}

	headerToken := middleware.BearerToken(c.GetHeader(sdk.HeaderAuthorization))
	subject := ""
	if headerToken != "" {
		var err error
		if subject, err = h.auth.Authenticate(headerToken); err != nil {
			respondGraphQLError(c, http.StatusUnauthorized, models.ErrUnauthorized)
			return
		}
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader already answered the request.
		middleware.GetLogger(c).Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	s := &wsSession{
		ws:          ws,
		resolver:    h.resolver,
		auth:        h.auth,
		logger:      middleware.GetLogger(c),
		subject:     subject,
		preAuthed:   headerToken != "",
		initTimeout: h.initTimeout,
		subs:        make(map[string]*wsOperation),
	}
	s.run(c.Request.Context())
}

// wsSession is one graphql-transport-ws connection.
type wsSession struct {
	ws          *websocket.Conn
	resolver    Resolver
	auth        *middleware.AuthConfig
	logger      *zap.Logger
	initTimeout time.Duration

	subject   string
	preAuthed bool

	initialised atomic.Bool
	acked       atomic.Bool

	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]*wsOperation
	wg   sync.WaitGroup
}

// wsOperation is one running operation of a session.
type wsOperation struct {
	cancel context.CancelFunc
}

func (s *wsSession) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.wg.Wait()
		s.ws.Close()
	}()

	initTimer := time.AfterFunc(s.initTimeout, func() {
		if !s.acked.Load() {
			s.closeWith(sdk.CloseConnectionInitTimeout, "Connection initialisation timeout")
		}
	})
	defer initTimer.Stop()

	for {
		var msg sdk.WSMessage
		if err := s.ws.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				s.closeWith(closeBadRequest, "Invalid message received")
				return
			}
			if !sdk.IsExpectedWSCloseError(err) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case sdk.MessageConnectionInit:
			if !s.initialised.CompareAndSwap(false, true) {
				s.closeWith(sdk.CloseTooManyInitRequests, "Too many initialisation requests")
				return
			}
			if !s.handleInit(msg.Payload) {
				return
			}
			ctx = resolver.WithSubject(ctx, s.subject)

		case sdk.MessagePing:
			s.write(sdk.WSMessage{Type: sdk.MessagePong, Payload: msg.Payload})

		case sdk.MessagePong:

		case sdk.MessageSubscribe:
			if !s.acked.Load() {
				s.closeWith(sdk.CloseUnauthorized, "Unauthorized")
				return
			}
			if msg.ID == "" {
				s.closeWith(closeBadRequest, "Subscribe message requires an id")
				return
			}
			var req sdk.Request
			if err := json.Unmarshal(msg.Payload, &req); err != nil {
				s.closeWith(closeBadRequest, "Invalid subscribe payload")
				return
			}
			if !s.start(ctx, msg.ID, &req) {
				s.closeWith(sdk.CloseSubscriberExists, fmt.Sprintf("Subscriber for %s already exists", msg.ID))
				return
			}

		case sdk.MessageComplete:
			s.stop(msg.ID)

		default:
			s.closeWith(closeBadRequest, fmt.Sprintf("Unexpected message type %q", msg.Type))
			return
		}
	}
}

// handleInit authenticates connection_init and acknowledges it.
func (s *wsSession) handleInit(payload json.RawMessage) bool {
	var init sdk.InitPayload
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &init); err != nil {
			s.closeWith(closeBadRequest, "Invalid connection_init payload")
			return false
		}
	}

	if init.Token != "" || !s.preAuthed {
		subject, err := s.auth.Authenticate(init.Token)
		if err != nil {
			s.logger.Debug("websocket authentication failed", zap.Error(err))
			s.closeWith(sdk.CloseForbidden, "Forbidden")
			return false
		}
		if subject != "" || !s.preAuthed {
			s.subject = subject
		}
	}

	s.acked.Store(true)
	return s.write(sdk.WSMessage{Type: sdk.MessageConnectionAck}) == nil
}

// start runs one operation. It reports false when id is already in use.
//
// Subscriptions are registered before start returns, so events published
// after the server read the subscribe message are delivered.
func (s *wsSession) start(ctx context.Context, id string, req *sdk.Request) bool {
	opCtx, cancel := context.WithCancel(ctx)
	opCtx = logging.WithLogger(opCtx, s.logger.With(zap.String(logging.FieldSubscriptionID, id)))

	s.mu.Lock()
	if _, exists := s.subs[id]; exists {
		s.mu.Unlock()
		cancel()
		return false
	}
	op := &wsOperation{cancel: cancel}
	s.subs[id] = op
	s.mu.Unlock()

	var (
		events      <-chan *sdk.Response
		unsubscribe func()
		startErr    error
	)
	kind, known := s.resolver.Kind(req)
	switch {
	case !known:
		startErr = fmt.Errorf("%w: %q", models.ErrUnknownOperation, req.OperationName)
	case kind == sdk.KindSubscription:
		events, unsubscribe, startErr = s.resolver.Subscribe(opCtx, req)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish(id, op)

		if startErr != nil {
			s.sendError(id, startErr)
			return
		}

		if events == nil {
			if s.sendNext(id, s.resolver.Resolve(opCtx, req)) == nil {
				s.write(sdk.WSMessage{ID: id, Type: sdk.MessageComplete})
			}
			return
		}
		defer unsubscribe()

		s.logger.Debug("subscription started",
			zap.String(logging.FieldSubscriptionID, id),
			zap.String(logging.FieldSubject, s.subject),
			zap.String(logging.FieldOperation, req.OperationName))

		for resp := range events {
			if err := s.sendNext(id, resp); err != nil {
				return
			}
		}
		// The client did not ask to stop, so the server ended the stream.
		if opCtx.Err() == nil {
			s.write(sdk.WSMessage{ID: id, Type: sdk.MessageComplete})
		}
	}()
	return true
}

// stop cancels the operation the client completed.
func (s *wsSession) stop(id string) {
	s.mu.Lock()
	op, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()
	if ok {
		op.cancel()
	}
}

// finish releases id unless the client already reused it.
func (s *wsSession) finish(id string, op *wsOperation) {
	s.mu.Lock()
	if s.subs[id] == op {
		delete(s.subs, id)
	}
	s.mu.Unlock()
	op.cancel()
}

func (s *wsSession) sendNext(id string, resp *sdk.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return s.write(sdk.WSMessage{ID: id, Type: sdk.MessageNext, Payload: payload})
}

func (s *wsSession) sendError(id string, err error) {
	payload, marshalErr := json.Marshal(sdk.GraphQLErrors{{
		Message:    err.Error(),
		Extensions: map[string]interface{}{"code": models.ErrorCode(err)},
	}})
	if marshalErr != nil {
		return
	}
	s.write(sdk.WSMessage{ID: id, Type: sdk.MessageError, Payload: payload})
}

func (s *wsSession) write(msg sdk.WSMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.ws.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := s.ws.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
		return err
	}
	return nil
}

// closeWith sends a close frame with a protocol close code and closes the
// connection, which ends the read loop.
func (s *wsSession) closeWith(code int, reason string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.logger.Debug("closing websocket", zap.Int("code", code), zap.String("reason", reason))
	msg := websocket.FormatCloseMessage(code, reason)
	s.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteTimeout))
	s.ws.Close()
}
