package runtime

import (
	"context"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"osc-console/domain"
	"osc-console/domain/event"
	"osc-console/errors"
	"osc-console/mocks"
	"osc-console/state"
	"osc-console/wire"
)

func newCommanderFixture(t *testing.T) (*Commander, *state.Store, *mocks.MockDatagramSender) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	tagger, err := domain.NewTagger(domain.DefaultNameCriteria())
	require.NoError(t, err)
	store := state.NewStore(tagger, NewRegistry(log), log)
	for _, name := range []string{"Host_Dan", "STU_Alice"} {
		_, err = store.Apply(context.Background(), event.ParticipantUpdate{
			Header: event.Header{Name: name},
			Type:   event.ListType,
			Online: lo.ToPtr(true),
			Muted:  lo.ToPtr(false),
			Role:   lo.ToPtr(domain.RoleAttendee),
		})
		require.NoError(t, err)
	}
	link := mocks.NewMockDatagramSender(gomock.NewController(t))
	return NewCommander(link, store, store, log), store, link
}

// expectAddress asserts the next datagram carries address.
func expectAddress(req *require.Assertions, link *mocks.MockDatagramSender, address string, args ...interface{}) *gomock.Call {
	return link.EXPECT().
		Send(gomock.Any()).
		DoAndReturn(func(raw []byte) error {
			messages, err := wire.Decode(raw)
			req.NoError(err)
			req.Len(messages, 1)
			req.Equal(address, messages[0].Address)
			if len(args) > 0 {
				req.Equal(args, messages[0].Arguments)
			}
			return nil
		})
}

func TestCommander_Catalog(t *testing.T) {
	req := require.New(t)
	commander, _, link := newCommanderFixture(t)

	gomock.InOrder(
		expectAddress(req, link, "/zoom/subscribe", int32(1)),
		expectAddress(req, link, "/zoom/galTrackMode", int32(0)),
		expectAddress(req, link, "/zoom/list"),
		expectAddress(req, link, "/zoom/all/mute"),
		expectAddress(req, link, "/zoom/all/unMute"),
		expectAddress(req, link, "/zoom/lowerAllHands"),
		expectAddress(req, link, "/zoom/chatAll", "hello all"),
		expectAddress(req, link, "/zoom/userName/STU_Alice/chat", "hi Alice"),
		expectAddress(req, link, "/zoom/userName/STU_Alice/lowerHand"),
		expectAddress(req, link, "/zoom/userName/STU_Alice/mute"),
		expectAddress(req, link, "/zoom/userName/STU_Alice/unMute"),
		expectAddress(req, link, "/zoom/userName/STU_Alice/videoOn"),
		expectAddress(req, link, "/zoom/userName/STU_Alice/videoOff"),
		expectAddress(req, link, "/zoom/ping", "console"),
	)

	req.NoError(commander.Subscribe(true))
	req.NoError(commander.GalleryTracking(false))
	req.NoError(commander.RequestList())
	req.NoError(commander.MuteAll())
	req.NoError(commander.UnmuteAll())
	req.NoError(commander.LowerAllHands())
	req.NoError(commander.ChatAll("hello all"))
	req.NoError(commander.ChatUser("STU_Alice", "hi Alice"))
	req.NoError(commander.LowerHand("STU_Alice"))
	req.NoError(commander.Mute("STU_Alice"))
	req.NoError(commander.Unmute("STU_Alice"))
	req.NoError(commander.StartVideo("STU_Alice"))
	req.NoError(commander.StopVideo("STU_Alice"))
	req.NoError(commander.Ping("console"))
}

func TestCommander_Pins_Are_Recorded_After_Send(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	commander, store, link := newCommanderFixture(t)

	gomock.InOrder(
		expectAddress(req, link, "/zoom/userName/Host_Dan/pin"),
		expectAddress(req, link, "/zoom/userName/STU_Alice/addPin"),
		expectAddress(req, link, "/zoom/userName/Host_Dan/unPin"),
		expectAddress(req, link, "/zoom/clearPin"),
		expectAddress(req, link, "/zoom/userName/Host_Dan/spot"),
		expectAddress(req, link, "/zoom/userName/Host_Dan/unSpot"),
	)

	req.NoError(commander.Pin(ctx, "Host_Dan"))
	req.NoError(commander.AddPin(ctx, "STU_Alice"))
	req.Len(store.ListPinned(), 2)

	req.NoError(commander.Unpin(ctx, "Host_Dan"))
	req.Equal([]string{"STU_Alice"}, lo.Map(store.ListPinned(), func(p domain.Participant, _ int) string { return p.Name }))

	req.NoError(commander.ClearPins(ctx))
	req.Empty(store.ListPinned())

	req.NoError(commander.Spotlight(ctx, "Host_Dan"))
	dan, _ := store.GetByName("Host_Dan")
	req.True(dan.Spotlighted)
	req.NoError(commander.Unspotlight(ctx, "Host_Dan"))
	dan, _ = store.GetByName("Host_Dan")
	req.False(dan.Spotlighted)
}

func TestCommander_Failed_Send_Leaves_State(t *testing.T) {
	req := require.New(t)
	commander, store, link := newCommanderFixture(t)

	// Given a link that is down
	link.EXPECT().Send(gomock.Any()).Return(errors.ErrNotConnected)

	// When pinning
	err := commander.Pin(context.Background(), "Host_Dan")

	// Then the error surfaces and nothing is recorded as pinned
	req.ErrorIs(err, errors.ErrNotConnected)
	req.Empty(store.ListPinned())
}

func TestCommander_Unknown_Participant(t *testing.T) {
	req := require.New(t)
	commander, _, link := newCommanderFixture(t)
	expectAddress(req, link, "/zoom/userName/Nobody/pin")

	err := commander.Pin(context.Background(), "Nobody")

	req.ErrorIs(err, errors.ErrUnknownParticipant)
}
