package bot

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/ai"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/prompts"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/repository"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/session"
)

// mediaDownloader is the slice of the transport the processors need.
type mediaDownloader interface {
	Download(ctx context.Context, msg *session.InboundMessage) ([]byte, string, error)
}

// Gate runs every inbound message through consent, rate limit and content
// dispatch, in that order. Collaborator failures never escape: they degrade
// to a scripted reply or, at worst, to dropping the message.
type Gate struct {
	repo         repository.ConversationRepository
	ai           ai.Service
	media        mediaDownloader
	dispatcher   *Dispatcher
	pacing       *Pacing
	historyLimit int
	now          func() time.Time
}

func NewGate(
	repo repository.ConversationRepository,
	aiService ai.Service,
	media mediaDownloader,
	dispatcher *Dispatcher,
	pacing *Pacing,
	historyLimit int,
) *Gate {
	return &Gate{
		repo:         repo,
		ai:           aiService,
		media:        media,
		dispatcher:   dispatcher,
		pacing:       pacing,
		historyLimit: historyLimit,
		now:          time.Now,
	}
}

// HandleMessage implements session.MessageHandler.
func (g *Gate) HandleMessage(ctx context.Context, msg *session.InboundMessage) {
	if !g.pacing.WithinOperatingHours(g.now()) {
		log.Info().Str("sender", msg.Sender).Msg("message outside operating hours, ignored")
		return
	}

	consented, err := g.repo.GetConsent(ctx, msg.Sender)
	if err != nil {
		log.Error().Err(err).Str("sender", msg.Sender).Msg("consent check failed")
		consented = false
	}

	if !consented {
		if !strings.EqualFold(strings.TrimSpace(msg.Body), prompts.ConsentToken) {
			g.dispatcher.SendScripted(ctx, msg, prompts.ConsentRequest)
			return
		}

		// The affirmative both grants consent and keeps flowing through the
		// gate, so the sender is not forced into a second round trip.
		if err := g.repo.SetConsent(ctx, msg.Sender, true); err != nil {
			log.Error().Err(err).Str("sender", msg.Sender).Msg("failed to record consent")
		}
		if err := g.repo.Append(ctx, msg.Sender, model.KindConsent, prompts.ConsentToken, nil); err != nil {
			log.Error().Err(err).Str("sender", msg.Sender).Msg("failed to save consent turn")
		}
		log.Info().Str("sender", msg.Sender).Msg("consent granted")
		g.dispatcher.SendScripted(ctx, msg, prompts.ConsentGranted)
	}

	under, err := g.repo.CheckRateLimit(ctx, msg.Sender)
	if err != nil {
		log.Error().Err(err).Str("sender", msg.Sender).Msg("rate limit check failed")
		under = false
	}
	if !under {
		g.dispatcher.SendScripted(ctx, msg, prompts.RateLimitExceeded)
		return
	}

	text := g.process(ctx, msg)
	audio := g.synthesize(ctx, text)
	g.dispatcher.Send(ctx, msg, text, audio)
}

// synthesize turns the answer into speech. Failures are swallowed: a lost
// voice reply must never abort the conversation turn.
func (g *Gate) synthesize(ctx context.Context, text string) []byte {
	audio, err := g.ai.SynthesizeSpeech(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("speech synthesis failed, replying with text only")
		return nil
	}
	return audio
}
