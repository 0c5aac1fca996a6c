package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mdp/qrterminal/v3"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/config"
)

// abruptPatterns mark errors where the underlying transport vanished without
// a clean close. These get the grace-period teardown and escalating re-init
// instead of the plain restart path.
var abruptPatterns = []string{
	"protocol error",
	"target closed",
	"session closed",
	"websocket disconnected",
	"connection reset",
	"broken pipe",
	"unexpected eof",
}

const qrImageSize = 256

// Manager owns the session state machine: QR issuance, authentication,
// ready, disconnect and error-driven recovery. All transport events and all
// scheduled recovery steps run on one goroutine, so handlers never overlap.
type Manager struct {
	transport Transport
	handler   MessageHandler
	proj      projection

	tasks chan func()
	done  chan struct{}
	ended chan struct{}

	// abruptRecovering marks that the current re-init attempt came from the
	// abrupt-failure path, so its failure escalates to the fallback delay.
	abruptRecovering bool

	qrDebounce       time.Duration
	reconnectDelay   time.Duration
	gracePeriod      time.Duration
	abruptDelay      time.Duration
	abruptFallback   time.Duration
	operatorDelay    time.Duration
	initMaxAttempts  int
	initRetryDelay   time.Duration
	renderTerminalQR bool
}

func NewManager(transport Transport, handler MessageHandler) *Manager {
	return &Manager{
		transport: transport,
		handler:   handler,
		tasks:     make(chan func(), 16),
		done:      make(chan struct{}),
		ended:     make(chan struct{}),

		qrDebounce:       config.QRDebounceInterval,
		reconnectDelay:   config.ReconnectDelay,
		gracePeriod:      config.TeardownGracePeriod,
		abruptDelay:      config.AbruptRetryDelay,
		abruptFallback:   config.AbruptRetryFallbackDelay,
		operatorDelay:    config.OperatorReinitDelay,
		initMaxAttempts:  config.InitMaxAttempts,
		initRetryDelay:   config.InitRetryDelay,
		renderTerminalQR: true,
	}
}

// Start connects the transport, retrying a bounded number of times, then
// begins consuming events. A returned error means startup is hopeless and
// the caller should exit.
func (m *Manager) Start(ctx context.Context) error {
	go m.loop(ctx)

	var lastErr error
	for attempt := 1; attempt <= m.initMaxAttempts; attempt++ {
		if err := m.transport.Initialize(ctx); err != nil {
			lastErr = err
			log.Error().Err(err).
				Int("attempt", attempt).
				Int("maxAttempts", m.initMaxAttempts).
				Msg("session initialization failed")
			if attempt < m.initMaxAttempts {
				time.Sleep(m.initRetryDelay)
			}
			continue
		}
		log.Info().Msg("session initialized")
		return nil
	}

	m.Stop()
	return fmt.Errorf("session initialization failed after %d attempts: %w", m.initMaxAttempts, lastErr)
}

// Stop ends the event loop and tears the transport down. Pending scheduled
// re-inits become no-ops.
func (m *Manager) Stop() {
	select {
	case <-m.done:
		return
	default:
	}
	close(m.done)
	<-m.ended
	if err := m.transport.Destroy(); err != nil {
		log.Warn().Err(err).Msg("session destroy on stop failed")
	}
}

// GetStatus returns a copy of the current projection. Repeated calls with no
// intervening lifecycle event return identical values.
func (m *Manager) GetStatus() Status {
	return m.proj.get()
}

// Disconnect is the operator-initiated teardown: log out when connected,
// destroy the handle, purge the persisted auth cache, clear state and
// schedule a fresh initialization so a new QR is produced. The returned
// error reflects only the destroy step; state is cleared regardless.
func (m *Manager) Disconnect(ctx context.Context) error {
	errc := make(chan error, 1)
	task := func() { errc <- m.disconnect(ctx) }

	select {
	case m.tasks <- task:
	case <-m.done:
		return fmt.Errorf("session manager stopped")
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) disconnect(ctx context.Context) error {
	if m.proj.get().Connected {
		if err := m.transport.Logout(ctx); err != nil {
			log.Warn().Err(err).Msg("logout before destroy failed, continuing")
		}
	}

	destroyErr := m.transport.Destroy()
	if destroyErr != nil {
		log.Error().Err(destroyErr).Msg("session destroy failed")
	}

	if err := m.transport.ClearAuth(ctx); err != nil {
		log.Warn().Err(err).Msg("auth cache removal failed, continuing")
	}

	m.proj.clear()
	log.Info().Msg("session disconnected by operator, scheduling re-initialization")
	m.schedule(m.operatorDelay, m.reinitialize)

	return destroyErr
}

// loop is the single consumer of transport events and scheduled tasks.
// Every handler runs to completion before the next event is taken.
func (m *Manager) loop(ctx context.Context) {
	defer close(m.ended)
	for {
		select {
		case <-m.done:
			return
		case task := <-m.tasks:
			task()
		case evt := <-m.transport.Events():
			m.handleEvent(ctx, evt)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, evt Event) {
	switch evt.Kind {
	case EventQR:
		m.onQR(evt.QRCode)
	case EventReady:
		m.onReady(evt.Identity)
	case EventAuthenticated:
		log.Info().Msg("session authenticated")
	case EventDisconnected:
		m.onDisconnected(evt.Reason, evt.LoggedOut)
	case EventError:
		m.onError(evt.Err)
	case EventMessage:
		if evt.Message != nil && m.handler != nil {
			m.handler.HandleMessage(ctx, evt.Message)
		}
	}
}

func (m *Manager) onQR(code string) {
	image, err := encodeQRImage(code)
	if err != nil {
		// Leave the debounce window untouched so the next good QR is not
		// discarded on account of this one.
		log.Error().Err(err).Msg("failed to encode QR image")
		return
	}

	if !m.proj.setQR(image, m.qrDebounce) {
		log.Debug().Msg("QR issued too soon after the previous one, discarded")
		return
	}

	log.Info().Msg("QR code generated, scan it with WhatsApp")
	if m.renderTerminalQR {
		qrterminal.GenerateHalfBlock(code, qrterminal.L, os.Stdout)
	}
}

func (m *Manager) onReady(identity string) {
	m.abruptRecovering = false
	m.proj.setReady(identity)
	log.Info().Str("identity", identity).Msg("session ready")
}

func (m *Manager) onDisconnected(reason string, loggedOut bool) {
	m.proj.clear()

	if loggedOut {
		log.Warn().Str("reason", reason).Msg("session logged out, not reconnecting")
		if err := m.transport.Destroy(); err != nil {
			log.Warn().Err(err).Msg("destroy after logout failed")
		}
		return
	}

	log.Warn().Str("reason", reason).Dur("delay", m.reconnectDelay).Msg("session disconnected, scheduling reconnect")
	if err := m.transport.Destroy(); err != nil {
		log.Warn().Err(err).Msg("destroy before reconnect failed, continuing")
	}
	m.schedule(m.reconnectDelay, m.reinitialize)
}

func (m *Manager) onError(err error) {
	if err == nil {
		return
	}

	if isAbruptTransportError(err) {
		log.Error().Err(err).Msg("abrupt transport failure, restarting session")
		m.proj.clear()
		m.abruptRecovering = true
		m.schedule(m.gracePeriod, func() {
			if derr := m.transport.Destroy(); derr != nil {
				log.Warn().Err(derr).Msg("destroy after abrupt failure failed, continuing")
			}
			m.schedule(m.abruptDelay, m.reinitialize)
		})
		return
	}

	log.Error().Err(err).Msg("session error, restarting")
	m.proj.clear()
	if derr := m.transport.Destroy(); derr != nil {
		// Without a successful destroy a blind re-init could race the broken
		// handle; stop here and wait for the next lifecycle event.
		log.Error().Err(derr).Msg("destroy after session error failed, not reinitializing")
		return
	}
	m.schedule(m.reconnectDelay, m.reinitialize)
}

// reinitialize retries until it succeeds. Past startup the service never
// gives up on the session; the abrupt path settles on the longer fallback
// delay until a connect goes through.
func (m *Manager) reinitialize() {
	if err := m.transport.Initialize(context.Background()); err != nil {
		delay := m.reconnectDelay
		if m.abruptRecovering {
			delay = m.abruptFallback
		}
		log.Error().Err(err).Dur("delay", delay).Msg("reinitialization failed, retrying")
		m.schedule(delay, m.reinitialize)
		return
	}
	m.abruptRecovering = false
	log.Info().Msg("session reinitialized")
}

// schedule queues fn to run on the event loop after d. There is no
// cancellation; a task scheduled before Stop simply finds the loop gone.
func (m *Manager) schedule(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case m.tasks <- fn:
		case <-m.done:
		}
	})
}

func isAbruptTransportError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range abruptPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func encodeQRImage(code string) (string, error) {
	png, err := qrcode.Encode(code, qrcode.Medium, qrImageSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
