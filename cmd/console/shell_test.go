package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"osc-console/automation"
	"osc-console/domain"
	"osc-console/domain/event"
	"osc-console/errors"
	"osc-console/notification"
	"osc-console/runtime"
	"osc-console/runtime/workers"
	"osc-console/state"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer, *runtime.Orchestrator) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	tagger, err := domain.NewTagger(domain.DefaultNameCriteria())
	require.NoError(t, err)
	registry := runtime.NewRegistry(log)
	store := state.NewStore(tagger, registry, log)
	orchestrator := runtime.NewOrchestrator(runtime.Settings{
		Host:       "127.0.0.1",
		SendPort:   9,
		BufferSize: 8,
		Automation: automation.DefaultSettings(),
	}, store, registry, workers.NewSupervisor(log, 0), nil, nil, nil, log)
	policy := notification.NewPolicy(notification.NewLogNotifier(log), notification.DefaultPriorityTags(), log)

	_, err = store.Apply(context.Background(), event.ParticipantUpdate{
		Header: event.Header{Name: "Host_Dan"},
		Type:   event.ListType,
		Online: lo.ToPtr(true),
		Muted:  lo.ToPtr(true),
		Role:   lo.ToPtr(domain.RoleHost),
	})
	require.NoError(t, err)

	var out bytes.Buffer
	return newShell(orchestrator, policy, &out, log), &out, orchestrator
}

func TestShell_List(t *testing.T) {
	req := require.New(t)
	sh, out, _ := newTestShell(t)

	req.NoError(sh.execute(context.Background(), "list"))

	req.Contains(out.String(), "Host_Dan")
	req.Contains(out.String(), "Host")
}

func TestShell_Settings(t *testing.T) {
	req := require.New(t)
	sh, _, orchestrator := newTestShell(t)
	ctx := context.Background()

	req.NoError(sh.execute(ctx, "autopin on"))
	req.NoError(sh.execute(ctx, "autogreet on"))
	req.NoError(sh.execute(ctx, "maxpinned 3"))
	req.NoError(sh.execute(ctx, "priority add Mentor"))
	req.NoError(sh.execute(ctx, "notify off"))

	settings := orchestrator.Engine().Settings()
	req.True(settings.AutoPin)
	req.True(settings.AutoGreet)
	req.Equal(3, settings.MaxPinned)
	req.Contains(settings.PinPriority, "Mentor")
	req.Contains(sh.policy.PriorityTags(), "Mentor")

	req.Error(sh.execute(ctx, "autopin maybe"))
	req.Error(sh.execute(ctx, "maxpinned many"))
	req.Error(sh.execute(ctx, "priority swap Mentor"))
}

func TestShell_Commands_Need_A_Connection(t *testing.T) {
	req := require.New(t)
	sh, _, _ := newTestShell(t)
	ctx := context.Background()

	req.ErrorIs(sh.execute(ctx, "pin Host_Dan"), errors.ErrNotConnected)
	req.ErrorIs(sh.execute(ctx, "muteall"), errors.ErrNotConnected)
	req.ErrorIs(sh.execute(ctx, "act LOWER_HAND Host_Dan"), errors.ErrNotConnected)
	req.ErrorIs(sh.execute(ctx, "act LOWER_HAND Nobody"), errors.ErrUnknownParticipant)
}

func TestShell_Run_Reports_Errors_And_Continues(t *testing.T) {
	req := require.New(t)
	sh, out, _ := newTestShell(t)

	err := sh.run(context.Background(), strings.NewReader("bogus\n\npin\nhelp\n"))

	req.NoError(err)
	req.Contains(out.String(), `unknown command "bogus"`)
	req.Contains(out.String(), "missing argument")
	req.Contains(out.String(), "commands:")
}

func TestShell_Stats(t *testing.T) {
	req := require.New(t)
	sh, out, _ := newTestShell(t)

	req.NoError(sh.execute(context.Background(), "stats"))

	req.Contains(out.String(), "enqueued=0 dropped=0 applied=0")
	req.Contains(out.String(), "queue=0")
}
