package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	waE2E "go.mau.fi/whatsmeow/proto/waE2E"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
)

const eventBuffer = 32

// WhatsmeowTransport drives the WhatsApp session through whatsmeow, with
// device credentials persisted in the same Postgres database as the
// conversation store. It translates whatsmeow events into the manager's
// Event stream.
type WhatsmeowTransport struct {
	container *sqlstore.Container
	client    *whatsmeow.Client
	events    chan Event
}

func NewWhatsmeowTransport(ctx context.Context, databaseURL string) (*WhatsmeowTransport, error) {
	container, err := sqlstore.New(ctx, "postgres", databaseURL, waLog.Stdout("whatsmeow-store", "WARN", true))
	if err != nil {
		return nil, fmt.Errorf("open whatsmeow store: %w", err)
	}

	return &WhatsmeowTransport{
		container: container,
		events:    make(chan Event, eventBuffer),
	}, nil
}

func (t *WhatsmeowTransport) Events() <-chan Event {
	return t.events
}

func (t *WhatsmeowTransport) Initialize(ctx context.Context) error {
	device, err := t.container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("load device: %w", err)
	}

	client := whatsmeow.NewClient(device, waLog.Stdout("whatsmeow", "WARN", true))
	client.AddEventHandler(t.translate)
	t.client = client

	if client.Store.ID == nil {
		// No stored credentials: drive a QR pairing. The QR channel must be
		// requested before Connect.
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("open qr channel: %w", err)
		}
		if err := client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		go func() {
			for item := range qrChan {
				switch item.Event {
				case whatsmeow.QRChannelEventCode:
					t.emit(Event{Kind: EventQR, QRCode: item.Code})
				case whatsmeow.QRChannelEventError:
					t.emit(Event{Kind: EventError, Err: item.Error})
				default:
					log.Debug().Str("event", item.Event).Msg("qr channel event")
				}
			}
		}()
		return nil
	}

	if err := client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

func (t *WhatsmeowTransport) Destroy() error {
	if t.client != nil {
		t.client.Disconnect()
	}
	return nil
}

func (t *WhatsmeowTransport) Logout(ctx context.Context) error {
	if t.client == nil {
		return fmt.Errorf("no active client")
	}
	return t.client.Logout(ctx)
}

func (t *WhatsmeowTransport) ClearAuth(ctx context.Context) error {
	if t.client == nil || t.client.Store == nil {
		return nil
	}
	return t.client.Store.Delete(ctx)
}

func (t *WhatsmeowTransport) Reply(ctx context.Context, msg *InboundMessage, text string) error {
	jid, err := types.ParseJID(msg.Chat)
	if err != nil {
		return fmt.Errorf("parse chat jid: %w", err)
	}
	_, err = t.client.SendMessage(ctx, jid, &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String(text),
			ContextInfo: quoteContext(msg),
		},
	})
	return err
}

// quoteContext attributes an outbound part to the inbound message it
// answers, so the reply renders quoted in the sender's chat.
func quoteContext(msg *InboundMessage) *waE2E.ContextInfo {
	info := &waE2E.ContextInfo{
		StanzaID:    proto.String(msg.ID),
		Participant: proto.String(msg.Sender),
	}
	if quoted, ok := msg.Origin.(*waE2E.Message); ok {
		info.QuotedMessage = quoted
	}
	return info
}

func (t *WhatsmeowTransport) ReplyAudio(ctx context.Context, msg *InboundMessage, audio []byte) error {
	jid, err := types.ParseJID(msg.Chat)
	if err != nil {
		return fmt.Errorf("parse chat jid: %w", err)
	}

	uploaded, err := t.client.Upload(ctx, audio, whatsmeow.MediaAudio)
	if err != nil {
		return fmt.Errorf("upload audio: %w", err)
	}

	_, err = t.client.SendMessage(ctx, jid, &waE2E.Message{
		AudioMessage: &waE2E.AudioMessage{
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			Mimetype:      proto.String("audio/ogg; codecs=opus"),
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uploaded.FileLength),
			PTT:           proto.Bool(true),
			ContextInfo:   quoteContext(msg),
		},
	})
	return err
}

func (t *WhatsmeowTransport) Download(ctx context.Context, msg *InboundMessage) ([]byte, string, error) {
	downloadable, ok := msg.Media.(whatsmeow.DownloadableMessage)
	if !ok || downloadable == nil {
		return nil, "", fmt.Errorf("message has no downloadable media")
	}
	data, err := t.client.Download(ctx, downloadable)
	if err != nil {
		return nil, "", fmt.Errorf("download media: %w", err)
	}
	return data, msg.MediaMime, nil
}

func (t *WhatsmeowTransport) translate(raw any) {
	switch evt := raw.(type) {
	case *events.Connected:
		t.emit(Event{Kind: EventReady, Identity: t.identity()})
	case *events.PairSuccess:
		t.emit(Event{Kind: EventAuthenticated})
	case *events.LoggedOut:
		t.emit(Event{Kind: EventDisconnected, Reason: "logged out", LoggedOut: true})
	case *events.Disconnected:
		t.emit(Event{Kind: EventDisconnected, Reason: "connection closed"})
	case *events.StreamError:
		t.emit(Event{Kind: EventError, Err: fmt.Errorf("stream error: code %s", evt.Code)})
	case *events.Message:
		if msg := t.inbound(evt); msg != nil {
			t.emit(Event{Kind: EventMessage, Message: msg})
		}
	}
}

// inbound normalizes a whatsmeow message event. Own messages and group chats
// are ignored: the bot holds one-on-one conversations only.
func (t *WhatsmeowTransport) inbound(evt *events.Message) *InboundMessage {
	if evt.Info.IsFromMe || evt.Info.IsGroup {
		return nil
	}

	msg := &InboundMessage{
		ID:     string(evt.Info.ID),
		Chat:   evt.Info.Chat.String(),
		Sender: evt.Info.Sender.ToNonAD().String(),
		Origin: evt.Message,
	}

	content := evt.Message
	switch {
	case content.GetConversation() != "":
		msg.Kind = model.KindText
		msg.Body = content.GetConversation()
	case content.GetExtendedTextMessage() != nil:
		msg.Kind = model.KindText
		msg.Body = content.GetExtendedTextMessage().GetText()
	case content.GetAudioMessage() != nil:
		audio := content.GetAudioMessage()
		msg.Kind = model.KindAudio
		msg.Media = audio
		msg.MediaMime = audio.GetMimetype()
	case content.GetImageMessage() != nil:
		image := content.GetImageMessage()
		msg.Kind = model.KindImage
		msg.Body = image.GetCaption()
		msg.Media = image
		msg.MediaMime = image.GetMimetype()
	default:
		msg.Kind = model.KindOther
	}

	return msg
}

func (t *WhatsmeowTransport) identity() string {
	if t.client != nil && t.client.Store.ID != nil {
		return t.client.Store.ID.User
	}
	return ""
}

// emit forwards an event to the manager loop. Message events are shed when
// the buffer is full (a paced reply can hold the loop for seconds, and a
// dropped message only costs one reply), but lifecycle events always get
// through: losing a disconnect or logout would leave the projection claiming
// a session that no longer exists.
func (t *WhatsmeowTransport) emit(evt Event) {
	if evt.Kind == EventMessage {
		select {
		case t.events <- evt:
		default:
			log.Warn().Msg("event buffer full, dropping message event")
		}
		return
	}
	t.events <- evt
}

var _ Transport = (*WhatsmeowTransport)(nil)
