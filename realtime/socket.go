package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
	inboxSize      = 64
	readLimit      = 1 << 20
)

// Keepalive timing. Variables so tests can shorten them.
var (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
)

// ErrClosed is returned when emitting on a socket that has shut down.
var ErrClosed = errors.New("socket closed")

// Handler processes one inbound envelope. Handlers of a socket run one at a
// time, in arrival order, on the socket's dispatch goroutine. The read
// goroutine keeps answering pings while a handler is busy.
type Handler func(ctx context.Context, env Envelope)

// Socket is one end of the event channel, usable by both server and client.
type Socket struct {
	id    string
	conn  *websocket.Conn
	send  chan Envelope
	inbox chan Envelope
	done  chan struct{}

	mu           sync.RWMutex
	handlers     map[string]Handler
	onDisconnect []func()

	closed    atomic.Bool
	writeDone chan struct{}

	pongWait     time.Duration
	pingInterval time.Duration
}

func newSocket(conn *websocket.Conn) *Socket {
	return &Socket{
		id:        uuid.New().String(),
		conn:      conn,
		send:      make(chan Envelope, sendBufferSize),
		inbox:     make(chan Envelope, inboxSize),
		done:      make(chan struct{}),
		handlers:  map[string]Handler{},
		writeDone: make(chan struct{}),

		pongWait:     pongWait,
		pingInterval: pingInterval,
	}
}

// ID identifies the socket in logs.
func (s *Socket) ID() string {
	return s.id
}

// On registers the handler for an event, replacing any previous one.
func (s *Socket) On(event string, h Handler) {
	s.mu.Lock()
	s.handlers[event] = h
	s.mu.Unlock()
}

// OnDisconnect registers a callback run once after the connection is gone.
func (s *Socket) OnDisconnect(fn func()) {
	s.mu.Lock()
	s.onDisconnect = append(s.onDisconnect, fn)
	s.mu.Unlock()
}

// Emit queues an event for sending. It does not wait for the write.
func (s *Socket) Emit(event, id string, payload any) error {
	env, err := NewEnvelope(event, id, payload)
	if err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}
	select {
	case s.send <- env:
		return nil
	case <-s.done:
		return ErrClosed
	}
}

// Run pumps the connection until it drops, Close is called or ctx ends.
// The context handed to handlers is cancelled once the connection is gone.
// Disconnect callbacks fire before Run returns.
func (s *Socket) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.writeLoop()
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		s.dispatchLoop(ctx)
	}()

	stop := context.AfterFunc(ctx, s.Close)
	defer stop()

	s.readLoop()
	s.Close()
	cancel()
	<-dispatched
	<-s.writeDone

	s.mu.RLock()
	callbacks := append([]func(){}, s.onDisconnect...)
	s.mu.RUnlock()
	for _, fn := range callbacks {
		fn()
	}
}

// Close stops the socket. Queued envelopes are flushed before the close frame.
func (s *Socket) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)
}

func (s *Socket) readLoop() {
	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				log.Debug().Err(err).Str("socket", s.id).Msg("SOCKET: read message")
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Warn().Err(err).Str("socket", s.id).Msg("SOCKET: malformed frame skipped")
			continue
		}
		select {
		case s.inbox <- env:
		case <-s.done:
			return
		}
	}
}

func (s *Socket) dispatchLoop(ctx context.Context) {
	for {
		select {
		case env := <-s.inbox:
			s.mu.RLock()
			h, ok := s.handlers[env.Event]
			s.mu.RUnlock()
			if !ok {
				log.Debug().Str("socket", s.id).Str("event", env.Event).Msg("SOCKET: no handler for event")
				continue
			}
			h(ctx, env)
		case <-s.done:
			return
		}
	}
}

func (s *Socket) writeLoop() {
	ticker := time.NewTicker(s.pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
		close(s.writeDone)
	}()
	for {
		select {
		case env := <-s.send:
			if err := s.write(env); err != nil {
				log.Debug().Err(err).Str("socket", s.id).Msg("SOCKET: write json")
				s.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		case <-s.done:
			s.flush()
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (s *Socket) flush() {
	for {
		select {
		case env := <-s.send:
			if err := s.write(env); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (s *Socket) write(env Envelope) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(env)
}
