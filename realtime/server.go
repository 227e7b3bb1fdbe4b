package realtime

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Server upgrades HTTP requests to sockets and hands each one to bind,
// which registers the event handlers before the socket starts reading.
type Server struct {
	upgrader websocket.Upgrader
	bind     func(*Socket)

	mu      sync.Mutex
	sockets map[*Socket]struct{}
	wg      sync.WaitGroup
}

func NewServer(bind func(*Socket)) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		bind:    bind,
		sockets: map[*Socket]struct{}{},
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("SOCKET: upgrade websocket")
		return
	}
	sock := newSocket(conn)
	s.mu.Lock()
	s.sockets[sock] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(1)
	defer func() {
		s.mu.Lock()
		delete(s.sockets, sock)
		s.mu.Unlock()
		s.wg.Done()
	}()

	log.Info().Str("socket", sock.ID()).Str("remote", r.RemoteAddr).Msg("SOCKET: client connected")
	sock.OnDisconnect(func() {
		log.Info().Str("socket", sock.ID()).Msg("SOCKET: client disconnected")
	})
	if s.bind != nil {
		s.bind(sock)
	}
	sock.Run(r.Context())
}

// Count returns the number of live sockets.
func (s *Server) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sockets)
}

// CloseAll closes every live socket and waits for their handlers to finish.
func (s *Server) CloseAll() {
	s.mu.Lock()
	socks := make([]*Socket, 0, len(s.sockets))
	for sock := range s.sockets {
		socks = append(socks, sock)
	}
	s.mu.Unlock()
	for _, sock := range socks {
		sock.Close()
	}
	s.wg.Wait()
}
