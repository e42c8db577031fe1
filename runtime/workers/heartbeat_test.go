package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"osc-console/mocks"
	"osc-console/observability"
	"osc-console/wire"
)

func TestHeartbeatWorker_Pings_While_Connected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	link := mocks.NewMockDatagramSender(ctrl)

	// Given a link that is up
	var pings atomic.Int32
	link.EXPECT().Connected().Return(true).AnyTimes()
	link.EXPECT().
		Send(gomock.Any()).
		DoAndReturn(func(raw []byte) error {
			messages, err := wire.Decode(raw)
			req.NoError(err)
			req.Len(messages, 1)
			req.Equal("/zoom/ping", messages[0].Address)
			req.Equal([]interface{}{"osc-console"}, messages[0].Arguments)
			pings.Add(1)
			return nil
		}).
		MinTimes(1)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	// When the worker runs for a few intervals
	err := NewHeartbeatWorker(link, 20*time.Millisecond, "osc-console", observability.NewMonitor(nil, slog.Default()), slog.Default()).Run(ctx)

	// Then pings went out until the context expired
	req.ErrorIs(err, context.DeadlineExceeded)
	req.GreaterOrEqual(pings.Load(), int32(1))
}

func TestHeartbeatWorker_Silent_While_Disconnected(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	link := mocks.NewMockDatagramSender(ctrl)

	// Then nothing is sent
	link.EXPECT().Connected().Return(false).AnyTimes()
	link.EXPECT().Send(gomock.Any()).Times(0)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	err := NewHeartbeatWorker(link, 20*time.Millisecond, "osc-console", observability.NewMonitor(nil, slog.Default()), slog.Default()).Run(ctx)
	req.ErrorIs(err, context.DeadlineExceeded)
}
