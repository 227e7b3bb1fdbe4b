package realtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Dial connects to a realtime server. The caller registers handlers and then
// calls Run on the returned socket.
func Dial(ctx context.Context, url string, header http.Header) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	sock := newSocket(conn)
	log.Debug().Str("socket", sock.ID()).Str("url", url).Msg("SOCKET: dialed")
	return sock, nil
}
