package chat

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_BroadcastReachesEverySessionIncludingSender(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	d := NewDispatcher(r)

	alice, aliceLines := pipeSession(t, "alice")
	bob, bobLines := pipeSession(t, "bob")
	req.NoError(r.Register(alice))
	req.NoError(r.Register(bob))

	report := d.Broadcast(ChatLine("bob", "hi"))

	req.Equal("bob: hi", report.Line)
	req.Len(report.Deliveries, 2)
	req.Equal(2, report.DeliveredCount())
	req.Empty(report.Failed())
	req.Equal("bob: hi", receive(t, aliceLines))
	req.Equal("bob: hi", receive(t, bobLines))
}

func TestDispatcher_BrokenRecipientDoesNotStopOthers(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	d := NewDispatcher(r)
	failedBefore := testutil.ToFloat64(DeliveriesTotal.WithLabelValues(resultFailed))

	// Given bob's peer is gone, between two healthy sessions
	alice, aliceLines := pipeSession(t, "alice")
	bob := deadSession(t, "bob")
	carol, carolLines := pipeSession(t, "carol")
	for _, s := range []*Session{alice, bob, carol} {
		req.NoError(r.Register(s))
	}

	// When a line is broadcast
	report := d.Broadcast(JoinNotice("dave"))

	// Then both healthy sessions get it and bob's failure is only recorded
	req.Equal("[SYSTEM] dave has joined", receive(t, aliceLines))
	req.Equal("[SYSTEM] dave has joined", receive(t, carolLines))
	req.Len(report.Deliveries, 3)
	req.Equal(2, report.DeliveredCount())

	failed := report.Failed()
	req.Len(failed, 1)
	req.Same(bob, failed[0].Session)
	req.ErrorIs(failed[0].Err, io.ErrClosedPipe)

	// bob stays registered until its own handler reaps it
	req.Equal(3, r.Len())
	req.Equal(failedBefore+1, testutil.ToFloat64(DeliveriesTotal.WithLabelValues(resultFailed)))
}

func TestDispatcher_EmptyRegistry(t *testing.T) {
	report := NewDispatcher(NewRegistry()).Broadcast("anyone?")
	require.Empty(t, report.Deliveries)
	require.Zero(t, report.DeliveredCount())
}

func TestSession_SendHonoursWriteTimeout(t *testing.T) {
	req := require.New(t)
	serverSide, clientSide := net.Pipe()
	t.Cleanup(func() {
		_ = serverSide.Close()
		_ = clientSide.Close()
	})

	// Nobody reads clientSide, so the write can only end by deadline.
	s := NewSession(serverSide, "stalled", 50*time.Millisecond)
	err := s.Send("hello")

	var netErr net.Error
	req.ErrorAs(err, &netErr)
	req.True(netErr.Timeout())
}

// pipeSession returns a session whose delivered lines appear on the channel.
func pipeSession(t *testing.T, name string) (*Session, <-chan string) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		r := NewLineReader(clientSide)
		for {
			line, err := r.ReadLine()
			if err != nil {
				return
			}
			lines <- line
		}
	}()
	t.Cleanup(func() {
		_ = serverSide.Close()
		_ = clientSide.Close()
	})
	return NewSession(serverSide, name, 0), lines
}

func deadSession(t *testing.T, name string) *Session {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	_ = clientSide.Close()
	t.Cleanup(func() {
		_ = serverSide.Close()
	})
	return NewSession(serverSide, name, 0)
}

func receive(t *testing.T, lines <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-lines:
		if !ok {
			t.Fatal("connection closed while waiting for a line")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for a line")
	}
	return ""
}
