package transport

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"osc-console/errors"
)

func newPeer(t *testing.T) *net.UDPConn {
	t.Helper()
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = peer.Close() })
	return peer
}

func TestTransport_Send_And_Receive(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	received := make(chan []byte, 1)
	reg := prometheus.NewRegistry()
	tr := New(func(data []byte) { received <- data }, reg, log)

	// Given a peer standing for the control bus
	peer := newPeer(t)
	peerPort := peer.LocalAddr().(*net.UDPAddr).Port

	// When the transport connects on an ephemeral receive port
	req.NoError(tr.Connect(ctx, "127.0.0.1", 0, peerPort))
	defer tr.Stop()
	req.True(tr.Connected())

	// Then an outbound datagram reaches the peer
	req.NoError(tr.Send([]byte("ping")))
	buf := make([]byte, 64)
	req.NoError(peer.SetReadDeadline(time.Now().Add(2 * time.Second)))
	n, _, err := peer.ReadFromUDP(buf)
	req.NoError(err)
	req.Equal("ping", string(buf[:n]))

	// And an inbound datagram reaches the handler
	target := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: tr.Addr().Port}
	_, err = peer.WriteToUDP([]byte("pong"), target)
	req.NoError(err)
	select {
	case data := <-received:
		req.Equal("pong", string(data))
	case <-time.After(2 * time.Second):
		req.Fail("datagram never reached the handler")
	}

	req.Equal(float64(1), testutil.ToFloat64(tr.metrics.datagramsSent))
	req.Equal(float64(1), testutil.ToFloat64(tr.metrics.datagramsReceived))
	req.Equal(float64(4), testutil.ToFloat64(tr.metrics.bytesReceived))
}

func TestTransport_Send_Without_Connection(t *testing.T) {
	req := require.New(t)
	tr := New(func([]byte) {}, nil, logs.GetLoggerFromLevel(slog.LevelDebug))

	err := tr.Send([]byte("ping"))

	req.ErrorIs(err, errors.ErrNotConnected)
	req.False(tr.Connected())
	req.Nil(tr.Addr())
}

func TestTransport_Stop_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	tr := New(func([]byte) {}, nil, logs.GetLoggerFromLevel(slog.LevelDebug))
	peer := newPeer(t)

	// Given a connected transport
	req.NoError(tr.Connect(context.Background(), "127.0.0.1", 0, peer.LocalAddr().(*net.UDPAddr).Port))

	// When it is stopped twice
	tr.Stop()
	tr.Stop()

	// Then sends fail immediately
	req.ErrorIs(tr.Send([]byte("ping")), errors.ErrNotConnected)
	req.False(tr.Connected())
}

func TestTransport_Connect_Replaces_Previous_Pair(t *testing.T) {
	req := require.New(t)
	tr := New(func([]byte) {}, nil, logs.GetLoggerFromLevel(slog.LevelDebug))
	peer := newPeer(t)
	peerPort := peer.LocalAddr().(*net.UDPAddr).Port

	req.NoError(tr.Connect(context.Background(), "127.0.0.1", 0, peerPort))
	first := tr.Addr().Port

	// When connecting again
	req.NoError(tr.Connect(context.Background(), "127.0.0.1", 0, peerPort))
	defer tr.Stop()

	// Then the first receive port has been released
	released, err := net.ListenUDP("udp", &net.UDPAddr{Port: first})
	req.NoError(err)
	_ = released.Close()
	req.True(tr.Connected())
}

func TestTransport_Connect_Failure_Releases_Sockets(t *testing.T) {
	req := require.New(t)
	tr := New(func([]byte) {}, nil, logs.GetLoggerFromLevel(slog.LevelDebug))

	// Given the receive port is already taken
	busy, err := net.ListenUDP("udp", &net.UDPAddr{})
	req.NoError(err)
	defer busy.Close()
	busyPort := busy.LocalAddr().(*net.UDPAddr).Port

	// When connecting on it
	err = tr.Connect(context.Background(), "127.0.0.1", busyPort, 9090)

	// Then the connection fails and nothing is left open
	req.ErrorIs(err, errors.ErrConnection)
	req.False(tr.Connected())

	// And an invalid port is rejected the same way
	req.ErrorIs(tr.Connect(context.Background(), "127.0.0.1", -1, 9090), errors.ErrConnection)
}

func TestTransport_Context_Cancellation_Stops_Receive_Loop(t *testing.T) {
	req := require.New(t)
	tr := New(func([]byte) {}, nil, logs.GetLoggerFromLevel(slog.LevelDebug))
	peer := newPeer(t)
	ctx, cancel := context.WithCancel(context.Background())

	req.NoError(tr.Connect(ctx, "127.0.0.1", 0, peer.LocalAddr().(*net.UDPAddr).Port))
	done := tr.done

	// When the parent context is canceled
	cancel()

	// Then the receive loop exits on its own
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("receive loop still running")
	}
	tr.Stop()
	req.False(tr.Connected())
}
