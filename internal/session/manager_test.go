package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu             sync.Mutex
	events         chan Event
	initCalls      int
	destroyCalls   int
	logoutCalls    int
	clearAuthCalls int
	initErr        error
	destroyErr     error
	logoutErr      error
	clearAuthErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 16)}
}

func (f *fakeTransport) Initialize(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initCalls++
	return f.initErr
}

func (f *fakeTransport) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyCalls++
	return f.destroyErr
}

func (f *fakeTransport) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeTransport) ClearAuth(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearAuthCalls++
	return f.clearAuthErr
}

func (f *fakeTransport) Reply(ctx context.Context, msg *InboundMessage, text string) error {
	return nil
}

func (f *fakeTransport) ReplyAudio(ctx context.Context, msg *InboundMessage, audio []byte) error {
	return nil
}

func (f *fakeTransport) Download(ctx context.Context, msg *InboundMessage) ([]byte, string, error) {
	return nil, "", nil
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

func (f *fakeTransport) counts() (init, destroy, logout, clearAuth int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initCalls, f.destroyCalls, f.logoutCalls, f.clearAuthCalls
}

func (f *fakeTransport) setInitErr(err error) {
	f.mu.Lock()
	f.initErr = err
	f.mu.Unlock()
}

// testManager returns a started manager with millisecond-scale delays so
// recovery scheduling is observable in tests.
func testManager(t *testing.T, transport *fakeTransport) *Manager {
	t.Helper()

	m := NewManager(transport, nil)
	m.qrDebounce = 50 * time.Millisecond
	m.reconnectDelay = 10 * time.Millisecond
	m.gracePeriod = 5 * time.Millisecond
	m.abruptDelay = 10 * time.Millisecond
	m.abruptFallback = 20 * time.Millisecond
	m.operatorDelay = 5 * time.Millisecond
	m.initRetryDelay = 5 * time.Millisecond
	m.renderTerminalQR = false

	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Stop)
	return m
}

func waitForStatus(t *testing.T, m *Manager, cond func(Status) bool) {
	t.Helper()
	assert.Eventually(t, func() bool { return cond(m.GetStatus()) }, time.Second, 2*time.Millisecond)
}

func TestManagerQRDebounce(t *testing.T) {
	transport := newFakeTransport()
	m := testManager(t, transport)

	transport.events <- Event{Kind: EventQR, QRCode: "first-code"}
	waitForStatus(t, m, func(s Status) bool { return s.QRCode != "" })
	first := m.GetStatus().QRCode

	transport.events <- Event{Kind: EventQR, QRCode: "second-code"}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, first, m.GetStatus().QRCode, "QR inside the debounce window must be discarded")

	t.Run("accepts a new QR after the window", func(t *testing.T) {
		time.Sleep(50 * time.Millisecond)
		transport.events <- Event{Kind: EventQR, QRCode: "third-code"}
		waitForStatus(t, m, func(s Status) bool { return s.QRCode != first })
	})

	t.Run("failed encode does not consume the window", func(t *testing.T) {
		transport := newFakeTransport()
		m := testManager(t, transport)

		// The empty payload makes the PNG encoder fail.
		transport.events <- Event{Kind: EventQR, QRCode: ""}
		time.Sleep(10 * time.Millisecond)
		assert.Empty(t, m.GetStatus().QRCode)

		transport.events <- Event{Kind: EventQR, QRCode: "good-code"}
		waitForStatus(t, m, func(s Status) bool { return s.QRCode != "" })
	})
}

func TestManagerReady(t *testing.T) {
	transport := newFakeTransport()
	m := testManager(t, transport)

	transport.events <- Event{Kind: EventQR, QRCode: "pairing-code"}
	waitForStatus(t, m, func(s Status) bool { return s.QRCode != "" })

	transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
	waitForStatus(t, m, func(s Status) bool { return s.Connected })

	status := m.GetStatus()
	assert.True(t, status.Connected)
	assert.Equal(t, "5511999999999", status.Identity)
	assert.Empty(t, status.QRCode, "pending QR must be cleared on ready")

	t.Run("status is idempotent between events", func(t *testing.T) {
		assert.Equal(t, m.GetStatus(), m.GetStatus())
	})
}

func TestManagerIdentityImpliesConnected(t *testing.T) {
	transport := newFakeTransport()
	m := testManager(t, transport)

	check := func() {
		s := m.GetStatus()
		if s.Identity != "" {
			assert.True(t, s.Connected, "identity must only be set while connected")
		}
	}

	check()
	transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
	waitForStatus(t, m, func(s Status) bool { return s.Connected })
	check()

	transport.events <- Event{Kind: EventDisconnected, Reason: "connection closed"}
	waitForStatus(t, m, func(s Status) bool { return !s.Connected })
	check()
}

func TestManagerDisconnectedEvent(t *testing.T) {
	t.Run("transient disconnect schedules reconnect", func(t *testing.T) {
		transport := newFakeTransport()
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		transport.events <- Event{Kind: EventDisconnected, Reason: "connection closed"}
		waitForStatus(t, m, func(s Status) bool { return !s.Connected })

		assert.Eventually(t, func() bool {
			init, destroy, _, _ := transport.counts()
			return destroy >= 1 && init >= 2
		}, time.Second, 2*time.Millisecond, "expected destroy then reinitialize")
	})

	t.Run("logout does not reconnect", func(t *testing.T) {
		transport := newFakeTransport()
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		transport.events <- Event{Kind: EventDisconnected, Reason: "logged out", LoggedOut: true}
		waitForStatus(t, m, func(s Status) bool { return !s.Connected })

		time.Sleep(50 * time.Millisecond)
		init, destroy, _, _ := transport.counts()
		assert.Equal(t, 1, init, "no reinitialize after explicit logout")
		assert.GreaterOrEqual(t, destroy, 1)
	})
}

func TestManagerErrorRecovery(t *testing.T) {
	t.Run("abrupt transport error destroys then reinitializes", func(t *testing.T) {
		transport := newFakeTransport()
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		transport.events <- Event{Kind: EventError, Err: errors.New("Protocol error (Runtime.callFunctionOn): Session closed")}
		waitForStatus(t, m, func(s Status) bool { return !s.Connected })

		assert.Eventually(t, func() bool {
			init, destroy, _, _ := transport.counts()
			return destroy >= 1 && init >= 2
		}, time.Second, 2*time.Millisecond)
	})

	t.Run("other error with failing destroy stops recovery", func(t *testing.T) {
		transport := newFakeTransport()
		transport.destroyErr = errors.New("destroy failed")
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		transport.events <- Event{Kind: EventError, Err: errors.New("unexpected response")}
		waitForStatus(t, m, func(s Status) bool { return !s.Connected })

		time.Sleep(50 * time.Millisecond)
		init, _, _, _ := transport.counts()
		assert.Equal(t, 1, init, "no reinitialize when destroy fails on the plain error path")
	})
}

func TestManagerReinitializeRetriesUntilSuccess(t *testing.T) {
	t.Run("reconnect path keeps retrying after failed re-inits", func(t *testing.T) {
		transport := newFakeTransport()
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		transport.setInitErr(errors.New("cannot connect"))
		transport.events <- Event{Kind: EventDisconnected, Reason: "connection closed"}

		assert.Eventually(t, func() bool {
			init, _, _, _ := transport.counts()
			return init >= 4
		}, time.Second, 2*time.Millisecond, "a failed re-init must schedule another attempt")

		transport.setInitErr(nil)
		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })
	})

	t.Run("abrupt path keeps retrying on the fallback delay", func(t *testing.T) {
		transport := newFakeTransport()
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		transport.setInitErr(errors.New("cannot connect"))
		transport.events <- Event{Kind: EventError, Err: errors.New("websocket disconnected unexpectedly")}

		assert.Eventually(t, func() bool {
			init, _, _, _ := transport.counts()
			return init >= 4
		}, time.Second, 2*time.Millisecond)
	})
}

func TestManagerDisconnectCommand(t *testing.T) {
	transport := newFakeTransport()
	m := testManager(t, transport)

	transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
	waitForStatus(t, m, func(s Status) bool { return s.Connected })

	require.NoError(t, m.Disconnect(context.Background()))

	status := m.GetStatus()
	assert.False(t, status.Connected)
	assert.Empty(t, status.Identity)
	assert.Empty(t, status.QRCode)

	_, destroy, logout, clearAuth := transport.counts()
	assert.GreaterOrEqual(t, logout, 1, "connected session logs out first")
	assert.GreaterOrEqual(t, destroy, 1)
	assert.GreaterOrEqual(t, clearAuth, 1, "auth cache is purged")

	t.Run("schedules fresh initialization", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			init, _, _, _ := transport.counts()
			return init >= 2
		}, time.Second, 2*time.Millisecond)
	})

	t.Run("destroy failure is the command result but state still clears", func(t *testing.T) {
		transport := newFakeTransport()
		transport.destroyErr = errors.New("destroy failed")
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		err := m.Disconnect(context.Background())
		assert.Error(t, err)
		assert.False(t, m.GetStatus().Connected)
	})

	t.Run("logout failure is tolerated", func(t *testing.T) {
		transport := newFakeTransport()
		transport.logoutErr = errors.New("logout failed")
		m := testManager(t, transport)

		transport.events <- Event{Kind: EventReady, Identity: "5511999999999"}
		waitForStatus(t, m, func(s Status) bool { return s.Connected })

		assert.NoError(t, m.Disconnect(context.Background()))
	})
}

func TestManagerStartRetries(t *testing.T) {
	transport := newFakeTransport()
	transport.initErr = errors.New("cannot connect")

	m := NewManager(transport, nil)
	m.initRetryDelay = 5 * time.Millisecond
	m.renderTerminalQR = false

	err := m.Start(context.Background())
	require.Error(t, err)

	init, _, _, _ := transport.counts()
	assert.Equal(t, 3, init, "bounded startup retries")
}

func TestIsAbruptTransportError(t *testing.T) {
	abrupt := []string{
		"Protocol error (Runtime.callFunctionOn): Session closed.",
		"websocket disconnected unexpectedly",
		"read tcp: connection reset by peer",
	}
	for _, msg := range abrupt {
		assert.True(t, isAbruptTransportError(errors.New(msg)), msg)
	}

	assert.False(t, isAbruptTransportError(errors.New("429 too many requests")))
	assert.False(t, isAbruptTransportError(errors.New("invalid payload")))
}

func TestManagerMessageDispatch(t *testing.T) {
	transport := newFakeTransport()

	var mu sync.Mutex
	var handled []string
	handler := messageHandlerFunc(func(ctx context.Context, msg *InboundMessage) {
		mu.Lock()
		handled = append(handled, msg.Body)
		mu.Unlock()
	})

	m := NewManager(transport, handler)
	m.renderTerminalQR = false
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(m.Stop)

	transport.events <- Event{Kind: EventMessage, Message: &InboundMessage{Sender: "a", Body: "primeira"}}
	transport.events <- Event{Kind: EventMessage, Message: &InboundMessage{Sender: "a", Body: "segunda"}}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(handled) == 2
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"primeira", "segunda"}, handled, "messages handled in delivery order")
	mu.Unlock()
}

type messageHandlerFunc func(ctx context.Context, msg *InboundMessage)

func (f messageHandlerFunc) HandleMessage(ctx context.Context, msg *InboundMessage) { f(ctx, msg) }
