package chat

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/andy6609/linechat/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type sessionHarness struct {
	session *Session
	conn    *Conn
	client  net.Conn
	lines   <-chan string
	done    chan struct{}
}

func startSession(t *testing.T, reg *Registry, activity ActivityLog) *sessionHarness {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })

	conn := NewConn(server, 16, time.Second)
	h := &sessionHarness{
		session: NewSession(conn, reg, activity, nil),
		conn:    conn,
		client:  client,
		lines:   readLines(client),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		h.session.Run()
	}()
	return h
}

func (h *sessionHarness) send(t *testing.T, line string) {
	t.Helper()
	_, err := io.WriteString(h.client, line+"\n")
	require.NoError(t, err)
}

func (h *sessionHarness) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not finish")
	}
}

func TestSession_JoinRelayExit(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	reg := NewRegistry(nil)
	activity := mocks.NewMockActivityLog(ctrl)

	// Given another participant is already registered
	other := newMockPeer(ctrl, "other")
	reg.Register(other)

	// Then it sees the join, the chat line and the departure, in that order
	gomock.InOrder(
		other.EXPECT().Send("Alice has joined the chat.").Return(nil),
		other.EXPECT().Send("Alice: hi").Return(nil),
		other.EXPECT().Send("Alice has left the chat.").Return(nil),
	)
	gomock.InOrder(
		activity.EXPECT().Record("Alice has joined the chat."),
		activity.EXPECT().Record("Alice: hi"),
		activity.EXPECT().Record("Alice has left the chat."),
	)

	// When Alice connects, chats, and exits
	h := startSession(t, reg, activity)
	req.Equal(WelcomeMessage, nextLine(t, h.lines))
	h.send(t, "Alice")
	h.send(t, "hi")
	h.send(t, "Exit")
	h.wait(t)

	req.Equal(StateClosed, h.session.State())
	req.Equal(1, reg.Len())
	// Alice's own stream is closed once cleanup has run.
	waitClosed(t, h.lines)
}

func TestSession_PeerDisconnectLeavesOnce(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	reg := NewRegistry(nil)
	activity := mocks.NewMockActivityLog(ctrl)

	activity.EXPECT().Record("Bob has joined the chat.").Times(1)
	activity.EXPECT().Record("Bob has left the chat.").Times(1)

	h := startSession(t, reg, activity)
	req.Equal(WelcomeMessage, nextLine(t, h.lines))
	h.send(t, "Bob")
	req.Eventually(func() bool { return h.session.State() == StateActive }, time.Second, 5*time.Millisecond)
	req.Equal(1, reg.Len())

	// When the peer vanishes without saying exit
	_ = h.client.Close()
	h.wait(t)

	// Then cleanup ran exactly once, even if triggered again
	h.session.leave()
	req.Equal(StateClosed, h.session.State())
	req.Zero(reg.Len())
}

func TestSession_DroppedConnectionLeaves(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	reg := NewRegistry(nil)
	activity := mocks.NewMockActivityLog(ctrl)
	activity.EXPECT().Record(gomock.Any()).AnyTimes()

	h := startSession(t, reg, activity)
	req.Equal(WelcomeMessage, nextLine(t, h.lines))
	h.send(t, "Carol")
	req.Eventually(func() bool { return h.session.State() == StateActive }, time.Second, 5*time.Millisecond)

	// When the registry closes the connection after a failed delivery
	req.NoError(h.conn.Close())

	// Then the session notices and deregisters
	h.wait(t)
	req.Equal(StateClosed, h.session.State())
	req.Zero(reg.Len())
}

func TestSession_RegisteredBeforeName(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	reg := NewRegistry(nil)
	activity := mocks.NewMockActivityLog(ctrl)
	activity.EXPECT().Record(gomock.Any()).AnyTimes()

	h := startSession(t, reg, activity)
	req.Equal(WelcomeMessage, nextLine(t, h.lines))

	// Then the connection is a broadcast recipient while it waits for a name
	req.Eventually(func() bool { return reg.Len() == 1 }, time.Second, 5*time.Millisecond)
	req.Equal(StateJoining, h.session.State())
	req.Equal(1, reg.BroadcastExcept(nil, "Alice: hello"))
	req.Equal("Alice: hello", nextLine(t, h.lines))
	req.Empty(reg.Names())

	_ = h.client.Close()
	h.wait(t)
}

func TestSession_DisconnectBeforeJoin(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	reg := NewRegistry(nil)
	activity := mocks.NewMockActivityLog(ctrl)
	other := newMockPeer(ctrl, "other")
	reg.Register(other)

	// Then the departure is announced under the placeholder name
	other.EXPECT().Send("unknown has left the chat.").Return(nil)
	activity.EXPECT().Record("unknown has left the chat.")

	h := startSession(t, reg, activity)
	req.Equal(WelcomeMessage, nextLine(t, h.lines))
	req.Eventually(func() bool { return reg.Len() == 2 }, time.Second, 5*time.Millisecond)

	// When the connection closes without ever sending a name
	_ = h.client.Close()
	h.wait(t)

	req.Equal(StateClosed, h.session.State())
	req.Equal(1, reg.Len())
}
