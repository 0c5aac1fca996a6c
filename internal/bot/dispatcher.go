package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/repository"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/session"
)

// replySender is the slice of the transport the dispatcher needs.
type replySender interface {
	Reply(ctx context.Context, msg *session.InboundMessage, text string) error
	ReplyAudio(ctx context.Context, msg *session.InboundMessage, audio []byte) error
}

// Dispatcher paces and emits replies. Send failures are logged and
// swallowed: by the time a send fails there is no further corrective action.
type Dispatcher struct {
	transport replySender
	repo      repository.ConversationRepository
	pacing    *Pacing
	sleep     func(time.Duration)
}

func NewDispatcher(transport replySender, repo repository.ConversationRepository, pacing *Pacing) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		repo:      repo,
		pacing:    pacing,
		sleep:     time.Sleep,
	}
}

// Send emits the generated answer for msg, mirroring its modality: a voice
// note whose answer was successfully synthesized gets audio only; everything
// else gets text. The turn is appended with the textual response either way.
func (d *Dispatcher) Send(ctx context.Context, msg *session.InboundMessage, text string, audio []byte) {
	d.sleep(d.pacing.ReplyDelay())

	if msg.Kind == model.KindAudio && audio != nil {
		if err := d.transport.ReplyAudio(ctx, msg, audio); err != nil {
			log.Error().Err(err).Str("sender", msg.Sender).Msg("failed to send audio reply")
		}
	} else {
		if err := d.transport.Reply(ctx, msg, text); err != nil {
			log.Error().Err(err).Str("sender", msg.Sender).Msg("failed to send reply")
		}
	}

	if err := d.repo.Append(ctx, msg.Sender, msg.Kind, msg.Body, &text); err != nil {
		log.Error().Err(err).Str("sender", msg.Sender).Msg("failed to save turn")
	}
}

// SendScripted emits a fixed text (consent prompts, rate-limit notice)
// without recording a turn. Scripted replies are paced like any other send.
func (d *Dispatcher) SendScripted(ctx context.Context, msg *session.InboundMessage, text string) {
	d.sleep(d.pacing.ReplyDelay())

	if err := d.transport.Reply(ctx, msg, text); err != nil {
		log.Error().Err(err).Str("sender", msg.Sender).Msg("failed to send scripted reply")
	}
}
