// Package transport owns the UDP socket pair used to talk to the control bus.
package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"osc-console/contract"
	"osc-console/errors"
)

var _ contract.DatagramSender = (*Transport)(nil)

const maxDatagramSize = 65536

// Handler receives a private copy of every inbound datagram, on the receive goroutine.
type Handler func(data []byte)

type Transport struct {
	log     *slog.Logger
	handler Handler
	metrics *Metrics

	lifecycle sync.Mutex   // serializes Connect and Stop
	mu        sync.RWMutex // guards the socket pair, held in read mode across a send
	recv      *net.UDPConn
	send      *net.UDPConn
	cancel    context.CancelFunc
	done      chan struct{}
}

func New(handler Handler, reg prometheus.Registerer, log *slog.Logger) *Transport {
	return &Transport{
		log:     log,
		handler: handler,
		metrics: newMetrics(reg),
	}
}

// Connect tears down any previous socket pair, binds the receive socket on
// recvPort (all interfaces) and a send socket targeting host:sendPort.
// The receive loop lives until Stop or ctx cancellation.
func (t *Transport) Connect(ctx context.Context, host string, recvPort, sendPort int) (err error) {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	t.stop()

	recvAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort("", strconv.Itoa(recvPort)))
	if err != nil {
		return fmt.Errorf("%w: resolve receive port %d: %v", errors.ErrConnection, recvPort, err)
	}
	recv, err := net.ListenUDP("udp", recvAddr)
	if err != nil {
		return fmt.Errorf("%w: bind receive port %d: %v", errors.ErrConnection, recvPort, err)
	}
	// Release the receive socket on every failure below.
	defer func() {
		if err != nil {
			_ = recv.Close()
		}
	}()

	sendAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(sendPort)))
	if err != nil {
		return fmt.Errorf("%w: resolve %s:%d: %v", errors.ErrConnection, host, sendPort, err)
	}
	send, err := net.DialUDP("udp", nil, sendAddr)
	if err != nil {
		return fmt.Errorf("%w: open send socket to %s: %v", errors.ErrConnection, sendAddr, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	t.recv, t.send = recv, send
	t.cancel, t.done = cancel, done
	t.mu.Unlock()

	// Closing the socket is the only way to unblock a pending read.
	context.AfterFunc(loopCtx, func() { _ = recv.Close() })
	go t.readLoop(loopCtx, recv, done)

	t.log.Info("Connected to OSC", "listen", recv.LocalAddr().String(), "target", sendAddr.String())
	return nil
}

// Send performs one best-effort write, never retried.
func (t *Transport) Send(raw []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.send == nil {
		return errors.ErrNotConnected
	}
	if _, err := t.send.Write(raw); err != nil {
		if t.metrics != nil {
			t.metrics.sendErrors.Inc()
		}
		return fmt.Errorf("send datagram: %w", err)
	}
	if t.metrics != nil {
		t.metrics.datagramsSent.Inc()
	}
	return nil
}

// Stop is idempotent. It returns once the receive loop has exited and both sockets are closed.
func (t *Transport) Stop() {
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()
	t.stop()
}

func (t *Transport) stop() {
	t.mu.RLock()
	cancel, done := t.cancel, t.done
	t.mu.RUnlock()
	if cancel == nil {
		return
	}

	cancel()
	<-done

	// Waits for in-flight sends.
	t.mu.Lock()
	if t.send != nil {
		_ = t.send.Close()
	}
	t.recv, t.send = nil, nil
	t.cancel, t.done = nil, nil
	t.mu.Unlock()
	t.log.Info("Disconnected from OSC")
}

func (t *Transport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.send != nil
}

// Addr is the bound receive address, nil when disconnected.
func (t *Transport) Addr() *net.UDPAddr {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.recv == nil {
		return nil
	}
	return t.recv.LocalAddr().(*net.UDPAddr)
}

func (t *Transport) readLoop(ctx context.Context, conn *net.UDPConn, done chan struct{}) {
	defer close(done)
	buf := make([]byte, maxDatagramSize)

	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				t.log.Debug("Receive loop stopped")
				return
			}
			if t.metrics != nil {
				t.metrics.receiveErrors.Inc()
			}
			t.log.Warn("UDP read failed", "error", err)
			continue
		}
		if t.metrics != nil {
			t.metrics.datagramsReceived.Inc()
			t.metrics.bytesReceived.Add(float64(n))
		}

		data := make([]byte, n)
		copy(data, buf[:n])
		t.handler(data)
	}
}
