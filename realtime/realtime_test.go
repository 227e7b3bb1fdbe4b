package realtime_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github/itish2003/vaultchat/realtime"
)

type ping struct {
	Text string `json:"text"`
}

func startEchoServer(t *testing.T) (*realtime.Server, string) {
	t.Helper()
	srv := realtime.NewServer(func(s *realtime.Socket) {
		s.On("ping", func(_ context.Context, env realtime.Envelope) {
			var p ping
			if err := env.Decode(&p); err != nil {
				return
			}
			_ = s.Emit("pong", env.ID, ping{Text: strings.ToUpper(p.Text)})
		})
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.CloseAll()
		ts.Close()
	})
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func TestSocket_RoundTripEchoesRequestID(t *testing.T) {
	_, url := startEchoServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock, err := realtime.Dial(ctx, url, nil)
	require.NoError(t, err)

	got := make(chan realtime.Envelope, 1)
	sock.On("pong", func(_ context.Context, env realtime.Envelope) {
		got <- env
	})
	go sock.Run(ctx)

	require.NoError(t, sock.Emit("ping", "req-1", ping{Text: "hello"}))

	select {
	case env := <-got:
		require.Equal(t, "req-1", env.ID)
		var p ping
		require.NoError(t, env.Decode(&p))
		require.Equal(t, "HELLO", p.Text)
	case <-time.After(5 * time.Second):
		t.Fatal("no pong received")
	}
}

func TestSocket_UnknownEventIsIgnored(t *testing.T) {
	_, url := startEchoServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sock, err := realtime.Dial(ctx, url, nil)
	require.NoError(t, err)
	got := make(chan realtime.Envelope, 2)
	sock.On("pong", func(_ context.Context, env realtime.Envelope) { got <- env })
	go sock.Run(ctx)

	require.NoError(t, sock.Emit("nonsense", "x", nil))
	require.NoError(t, sock.Emit("ping", "y", ping{Text: "still alive"}))

	select {
	case env := <-got:
		require.Equal(t, "y", env.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("socket stopped after unknown event")
	}
}

func TestSocket_DisconnectCallbackAndEmitAfterClose(t *testing.T) {
	srv, url := startEchoServer(t)

	sock, err := realtime.Dial(context.Background(), url, nil)
	require.NoError(t, err)

	disconnected := make(chan struct{})
	sock.OnDisconnect(func() { close(disconnected) })
	go sock.Run(context.Background())

	require.Eventually(t, func() bool { return srv.Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	sock.Close()
	select {
	case <-disconnected:
	case <-time.After(5 * time.Second):
		t.Fatal("disconnect callback not called")
	}
	require.ErrorIs(t, sock.Emit("ping", "z", nil), realtime.ErrClosed)
	require.Eventually(t, func() bool { return srv.Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestEnvelope_DecodeEmptyPayload(t *testing.T) {
	env, err := realtime.NewEnvelope("ping", "", nil)
	require.NoError(t, err)
	p := ping{Text: "kept"}
	require.NoError(t, env.Decode(&p))
	require.Equal(t, "kept", p.Text)
}
