package session

import (
	"context"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
)

type EventKind int

const (
	EventQR EventKind = iota
	EventReady
	EventAuthenticated
	EventDisconnected
	EventError
	EventMessage
)

func (k EventKind) String() string {
	switch k {
	case EventQR:
		return "qr"
	case EventReady:
		return "ready"
	case EventAuthenticated:
		return "authenticated"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	case EventMessage:
		return "message"
	default:
		return "unknown"
	}
}

// Event is one lifecycle or message occurrence on the transport. Exactly the
// fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	QRCode    string
	Identity  string
	Reason    string
	LoggedOut bool
	Err       error
	Message   *InboundMessage
}

// InboundMessage is one message event, consumed and discarded after
// producing at most one reply.
type InboundMessage struct {
	ID     string
	Chat   string
	Sender string
	Kind   model.MessageKind
	Body   string

	// Media is a transport-owned handle resolved by Download; MediaMime is
	// its advertised content type.
	Media     any
	MediaMime string

	// Origin is the transport's own representation of the message, used to
	// quote it when replying.
	Origin any
}

// Transport is the single long-lived connection to the chat network. The
// lifecycle manager owns exactly one and drives it exclusively through this
// interface; the production implementation wraps whatsmeow.
type Transport interface {
	// Initialize opens (or reopens) the session. Pairing progress and all
	// later activity arrive as Events.
	Initialize(ctx context.Context) error
	// Destroy tears down the current session handle. Safe to call on an
	// already-destroyed transport.
	Destroy() error
	// Logout ends the authenticated session on the network side.
	Logout(ctx context.Context) error
	// ClearAuth removes the persisted authentication cache so the next
	// Initialize starts from a fresh QR pairing.
	ClearAuth(ctx context.Context) error

	Reply(ctx context.Context, msg *InboundMessage, text string) error
	ReplyAudio(ctx context.Context, msg *InboundMessage, audio []byte) error
	Download(ctx context.Context, msg *InboundMessage) ([]byte, string, error)

	Events() <-chan Event
}

// MessageHandler consumes inbound messages; it runs on the manager's event
// loop, so one message is fully handled before the next event is taken.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg *InboundMessage)
}
