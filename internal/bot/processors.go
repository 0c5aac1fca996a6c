package bot

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/ai"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/prompts"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/session"
)

// process maps an inbound message to a response string. Every failure mode
// resolves to a scripted apology; nothing propagates.
func (g *Gate) process(ctx context.Context, msg *session.InboundMessage) string {
	switch msg.Kind {
	case model.KindText:
		return g.processText(ctx, msg.Sender, msg.Body)
	case model.KindAudio:
		return g.processAudio(ctx, msg)
	case model.KindImage:
		return g.processImage(ctx, msg)
	default:
		return prompts.InvalidMessage
	}
}

func (g *Gate) processText(ctx context.Context, sender, body string) string {
	history, err := g.repo.History(ctx, sender, g.historyLimit)
	if err != nil {
		log.Error().Err(err).Str("sender", sender).Msg("failed to load history")
		history = nil
	}

	answer, err := g.ai.CompleteText(ctx, ai.BuildPrompt(history, body))
	if err != nil {
		log.Error().Err(err).Str("sender", sender).Msg("text completion failed")
		return prompts.ProcessingError
	}
	return answer
}

// processAudio transcribes the voice note and feeds the transcript back into
// the text path as if it were the original body. The decoded artifact lives
// in a temp file removed on every exit path.
func (g *Gate) processAudio(ctx context.Context, msg *session.InboundMessage) string {
	data, _, err := g.media.Download(ctx, msg)
	if err != nil || len(data) == 0 {
		log.Warn().Err(err).Str("sender", msg.Sender).Msg("audio download failed")
		return prompts.AudioDownloadError
	}

	tmp, err := os.CreateTemp("", "voice-note-*.ogg")
	if err != nil {
		log.Error().Err(err).Msg("failed to create temp audio file")
		return prompts.AudioProcessingError
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		log.Error().Err(err).Msg("failed to write temp audio file")
		return prompts.AudioProcessingError
	}
	tmp.Close()

	transcript, err := g.ai.Transcribe(ctx, tmp.Name())
	if err != nil {
		var terr *ai.TranscriptionError
		if errors.As(err, &terr) && terr.IsInvalidInput() {
			log.Warn().Err(err).Str("sender", msg.Sender).Msg("audio rejected by transcription backend")
			return prompts.AudioTooLong
		}
		log.Error().Err(err).Str("sender", msg.Sender).Msg("audio transcription failed")
		return prompts.AudioProcessingError
	}

	return g.processText(ctx, msg.Sender, transcript)
}

func (g *Gate) processImage(ctx context.Context, msg *session.InboundMessage) string {
	data, mimeType, err := g.media.Download(ctx, msg)
	if err != nil || len(data) == 0 {
		log.Warn().Err(err).Str("sender", msg.Sender).Msg("image download failed")
		return prompts.ImageDownloadError
	}

	description, err := g.ai.DescribeImage(ctx, data, mimeType)
	if err != nil {
		log.Error().Err(err).Str("sender", msg.Sender).Msg("image analysis failed")
		return prompts.ImageAnalysisError
	}
	return description + prompts.MedicalDisclaimer
}
