package bot

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/ai"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/model"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/prompts"
	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/session"
)

func audioMessage() *session.InboundMessage {
	return &session.InboundMessage{Sender: "5511999990000", Kind: model.KindAudio}
}

func imageMessage() *session.InboundMessage {
	return &session.InboundMessage{Sender: "5511999990000", Kind: model.KindImage}
}

func TestProcessText(t *testing.T) {
	t.Run("answers from completion", func(t *testing.T) {
		repo := newMockRepo()
		response := "já perguntou antes"
		repo.history = []model.Turn{{Content: "primeira pergunta", Response: &response}}
		aiMock := &mockAI{completion: "resposta gerada"}
		gate := testGate(repo, aiMock, &mockMedia{}, &fakeSender{})

		got := gate.processText(context.Background(), "5511999990000", "nova pergunta")

		assert.Equal(t, "resposta gerada", got)
		require.Len(t, aiMock.promptsSeen, 1)
		assert.Contains(t, aiMock.promptsSeen[0], "primeira pergunta")
		assert.Contains(t, aiMock.promptsSeen[0], "nova pergunta")
	})

	t.Run("history failure still answers", func(t *testing.T) {
		repo := newMockRepo()
		repo.historyErr = errors.New("db down")
		aiMock := &mockAI{completion: "resposta gerada"}
		gate := testGate(repo, aiMock, &mockMedia{}, &fakeSender{})

		got := gate.processText(context.Background(), "5511999990000", "pergunta")

		assert.Equal(t, "resposta gerada", got)
	})

	t.Run("completion failure apologizes", func(t *testing.T) {
		aiMock := &mockAI{completionErr: errors.New("api down")}
		gate := testGate(newMockRepo(), aiMock, &mockMedia{}, &fakeSender{})

		got := gate.processText(context.Background(), "5511999990000", "pergunta")

		assert.Equal(t, prompts.ProcessingError, got)
	})
}

func TestProcessAudio(t *testing.T) {
	t.Run("transcript re-enters the text path", func(t *testing.T) {
		media := &mockMedia{data: []byte("OggS"), mimeType: "audio/ogg"}
		aiMock := &mockAI{transcript: "o que é autoexame?", completion: "resposta gerada"}
		gate := testGate(newMockRepo(), aiMock, media, &fakeSender{})

		got := gate.process(context.Background(), audioMessage())

		assert.Equal(t, "resposta gerada", got)
		require.Len(t, aiMock.promptsSeen, 1)
		assert.Contains(t, aiMock.promptsSeen[0], "o que é autoexame?")

		// The decoded voice note must not linger on disk.
		require.NotEmpty(t, aiMock.audioPathSeen)
		_, err := os.Stat(aiMock.audioPathSeen)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("download failure", func(t *testing.T) {
		media := &mockMedia{err: errors.New("media gone")}
		gate := testGate(newMockRepo(), &mockAI{}, media, &fakeSender{})

		got := gate.process(context.Background(), audioMessage())

		assert.Equal(t, prompts.AudioDownloadError, got)
	})

	t.Run("empty payload", func(t *testing.T) {
		media := &mockMedia{data: nil}
		gate := testGate(newMockRepo(), &mockAI{}, media, &fakeSender{})

		got := gate.process(context.Background(), audioMessage())

		assert.Equal(t, prompts.AudioDownloadError, got)
	})

	t.Run("backend rejects the audio", func(t *testing.T) {
		media := &mockMedia{data: []byte("OggS")}
		aiMock := &mockAI{transcribeErr: ai.NewTranscriptionError(http.StatusBadRequest, errors.New("too long"))}
		gate := testGate(newMockRepo(), aiMock, media, &fakeSender{})

		got := gate.process(context.Background(), audioMessage())

		assert.Equal(t, prompts.AudioTooLong, got)
	})

	t.Run("transient transcription failure", func(t *testing.T) {
		media := &mockMedia{data: []byte("OggS")}
		aiMock := &mockAI{transcribeErr: ai.NewTranscriptionError(http.StatusInternalServerError, errors.New("api down"))}
		gate := testGate(newMockRepo(), aiMock, media, &fakeSender{})

		got := gate.process(context.Background(), audioMessage())

		assert.Equal(t, prompts.AudioProcessingError, got)
	})

	t.Run("unclassified transcription failure", func(t *testing.T) {
		media := &mockMedia{data: []byte("OggS")}
		aiMock := &mockAI{transcribeErr: errors.New("network down")}
		gate := testGate(newMockRepo(), aiMock, media, &fakeSender{})

		got := gate.process(context.Background(), audioMessage())

		assert.Equal(t, prompts.AudioProcessingError, got)
	})
}

func TestProcessImage(t *testing.T) {
	t.Run("description carries the disclaimer", func(t *testing.T) {
		media := &mockMedia{data: []byte{0xff, 0xd8}, mimeType: "image/jpeg"}
		aiMock := &mockAI{description: "descrição da imagem"}
		gate := testGate(newMockRepo(), aiMock, media, &fakeSender{})

		got := gate.process(context.Background(), imageMessage())

		assert.Equal(t, "descrição da imagem"+prompts.MedicalDisclaimer, got)
	})

	t.Run("download failure", func(t *testing.T) {
		media := &mockMedia{err: errors.New("media gone")}
		gate := testGate(newMockRepo(), &mockAI{}, media, &fakeSender{})

		got := gate.process(context.Background(), imageMessage())

		assert.Equal(t, prompts.ImageDownloadError, got)
	})

	t.Run("analysis failure", func(t *testing.T) {
		media := &mockMedia{data: []byte{0xff, 0xd8}, mimeType: "image/jpeg"}
		aiMock := &mockAI{describeErr: errors.New("api down")}
		gate := testGate(newMockRepo(), aiMock, media, &fakeSender{})

		got := gate.process(context.Background(), imageMessage())

		assert.Equal(t, prompts.ImageAnalysisError, got)
	})
}
