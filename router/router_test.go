package router

import (
	"log/slog"
	"testing"
	"time"

	"github.com/hypebeast/go-osc/osc"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"osc-console/domain"
	"osc-console/domain/event"
	"osc-console/errors"
)

func listMessage(name string, role, online, audio int32, extra ...interface{}) *osc.Message {
	args := []interface{}{int32(0), name, int32(1), int32(16778240), role, online, int32(1), audio}
	return osc.NewMessage("/zoomosc/user/list", append(args, extra...)...)
}

func userMessage(kind, name string) *osc.Message {
	return osc.NewMessage("/zoomosc/user/"+kind, int32(0), name, int32(1), int32(16778240))
}

func TestClassify_List(t *testing.T) {
	req := require.New(t)

	// Given a full list entry for userA
	msg := listMessage("userA", 0, 1, 1, int32(0))

	// When it is classified
	evt, err := Classify(msg)

	// Then every list field is extracted
	req.NoError(err)
	update, ok := evt.(event.ParticipantUpdate)
	req.True(ok)
	req.Equal(event.ListType, update.Type)
	req.Equal("userA", update.Name)
	req.Equal(16778240, update.ZoomID)
	req.True(*update.Online)
	req.False(*update.Muted)
	req.False(*update.HandRaised)
	req.Equal(domain.RoleAttendee, *update.Role)
	req.Nil(update.HasVideo)
}

func TestClassify_List_Audio_Status_Zero_Is_Muted(t *testing.T) {
	req := require.New(t)

	evt, err := Classify(listMessage("userA", 3, 1, 0))

	req.NoError(err)
	update := evt.(event.ParticipantUpdate)
	req.True(*update.Muted)
	req.Equal(domain.RoleHost, *update.Role)
	// Then a missing hand flag defaults to lowered
	req.False(*update.HandRaised)
}

func TestClassify_List_Accepts_Int64(t *testing.T) {
	req := require.New(t)
	msg := osc.NewMessage("/zoomosc/user/list",
		int64(0), "userB", int64(1), int64(7), int64(1), int64(0), int64(1), int64(1), int64(1))

	evt, err := Classify(msg)

	req.NoError(err)
	update := evt.(event.ParticipantUpdate)
	req.False(*update.Online)
	req.True(*update.HandRaised)
	req.Equal(domain.RolePanelist, *update.Role)
}

func TestClassify_List_Invalid(t *testing.T) {
	tests := []struct {
		name string
		msg  *osc.Message
	}{
		{name: "Too few arguments", msg: osc.NewMessage("/zoomosc/user/list", int32(0), "userA", int32(1), int32(2), int32(0), int32(1), int32(1))},
		{name: "Role is a string", msg: osc.NewMessage("/zoomosc/user/list", int32(0), "userA", int32(1), int32(2), "host", int32(1), int32(1), int32(1))},
		{name: "Hand flag is a string", msg: listMessage("userA", 0, 1, 1, "yes")},
		{name: "Name is not a string", msg: osc.NewMessage("/zoomosc/user/list", int32(0), int32(5), int32(1), int32(2), int32(0), int32(1), int32(1), int32(1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			evt, err := Classify(tt.msg)
			req.Nil(evt)
			req.ErrorIs(err, errors.ErrParse)
		})
	}
}

func TestClassify_Partial_Updates(t *testing.T) {
	tests := []struct {
		kind  string
		check func(req *require.Assertions, u event.ParticipantUpdate)
	}{
		{kind: "online", check: func(req *require.Assertions, u event.ParticipantUpdate) {
			req.True(*u.Online)
			req.Nil(u.Muted)
			req.Nil(u.HasVideo)
		}},
		{kind: "offline", check: func(req *require.Assertions, u event.ParticipantUpdate) { req.False(*u.Online) }},
		{kind: "handRaised", check: func(req *require.Assertions, u event.ParticipantUpdate) { req.True(*u.HandRaised) }},
		{kind: "handLowered", check: func(req *require.Assertions, u event.ParticipantUpdate) { req.False(*u.HandRaised) }},
		{kind: "videoOn", check: func(req *require.Assertions, u event.ParticipantUpdate) { req.True(*u.HasVideo) }},
		{kind: "videoOff", check: func(req *require.Assertions, u event.ParticipantUpdate) { req.False(*u.HasVideo) }},
		{kind: "mute", check: func(req *require.Assertions, u event.ParticipantUpdate) { req.True(*u.Muted) }},
		{kind: "unMute", check: func(req *require.Assertions, u event.ParticipantUpdate) { req.False(*u.Muted) }},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			req := require.New(t)
			evt, err := Classify(userMessage(tt.kind, "TCH_Bob"))
			req.NoError(err)
			update, ok := evt.(event.ParticipantUpdate)
			req.True(ok)
			req.Equal(event.Type(tt.kind), update.Type)
			req.Equal("TCH_Bob", update.Name)
			tt.check(req, update)
		})
	}
}

func TestClassify_Chat(t *testing.T) {
	req := require.New(t)
	msg := osc.NewMessage("/zoomosc/user/chat",
		int32(0), "VIP_Carol", int32(2), int32(33), "hello everyone", "16778240", int32(4))

	evt, err := Classify(msg)

	req.NoError(err)
	chat, ok := evt.(event.ChatReceived)
	req.True(ok)
	req.Equal("VIP_Carol", chat.Name)
	req.Equal("hello everyone", chat.Content)
	req.Equal("16778240", chat.StableID)
	req.Equal(domain.MessageDirect, chat.MessageType)
}

func TestClassify_Chat_With_Three_Arguments_Is_Dropped(t *testing.T) {
	req := require.New(t)
	msg := osc.NewMessage("/zoomosc/user/chat", int32(0), "VIP_Carol", int32(2))

	req.NotPanics(func() {
		evt, err := Classify(msg)
		req.Nil(evt)
		req.ErrorIs(err, errors.ErrParse)
	})
}

func TestClassify_Globals(t *testing.T) {
	req := require.New(t)

	evt, err := Classify(osc.NewMessage("/zoomosc/galleryCount", int32(12)))
	req.NoError(err)
	req.Equal(event.GalleryCount{Count: 12}, evt)

	evt, err = Classify(osc.NewMessage("/zoomosc/listCleared"))
	req.NoError(err)
	req.Equal(event.ListCleared{}, evt)

	_, err = Classify(osc.NewMessage("/zoomosc/galleryCount"))
	req.ErrorIs(err, errors.ErrParse)

	_, err = Classify(osc.NewMessage("/zoomosc/galleryCount", "twelve"))
	req.ErrorIs(err, errors.ErrParse)
}

func TestClassify_Ignored_And_Unknown(t *testing.T) {
	req := require.New(t)

	// Recognised but not relevant for state
	evt, err := Classify(osc.NewMessage("/zoomosc/galleryOrder", int32(1), int32(2)))
	req.NoError(err)
	req.Nil(evt)
	evt, err = Classify(osc.NewMessage("/zoomosc/me/online", int32(0), "me", int32(0), int32(0)))
	req.NoError(err)
	req.Nil(evt)

	// Unknown kinds and foreign namespaces are dropped
	_, err = Classify(userMessage("teleport", "userA"))
	req.ErrorIs(err, errors.ErrUnknownEvent)
	_, err = Classify(osc.NewMessage("/zoomosc/somethingElse"))
	req.ErrorIs(err, errors.ErrParse)
	_, err = Classify(osc.NewMessage("/other/user/list"))
	req.ErrorIs(err, errors.ErrParse)
}

func TestRouter_Route_Keeps_Valid_Messages_Of_A_Bundle(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	r := New(log)

	// Given a bundle with one valid and one malformed message
	bundle := osc.NewBundle(time.Now())
	req.NoError(bundle.Append(userMessage("online", "userA")))
	req.NoError(bundle.Append(osc.NewMessage("/zoomosc/user/chat", int32(0), "userA", int32(2))))
	data, err := bundle.MarshalBinary()
	req.NoError(err)

	// When the datagram is routed
	events := r.Route(data)

	// Then only the valid event survives
	req.Len(events, 1)
	req.Equal(event.OnlineType, events[0].EventType())

	// And garbage yields nothing
	req.Empty(r.Route([]byte("garbage")))
}
