package speech

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	text     string
	language string
	voice    string
	model    string
}

func (b *fakeBackend) Transcribe(_ context.Context, model, _ string, audio io.Reader, language string) (string, error) {
	b.model = model
	b.language = language
	_, _ = io.ReadAll(audio)
	return b.text, nil
}

func (b *fakeBackend) Speak(_ context.Context, model, voice, text string) (io.ReadCloser, error) {
	b.model = model
	b.voice = voice
	return io.NopCloser(strings.NewReader("ID3" + text)), nil
}

type fakeTranslator struct{ calls int }

func (t *fakeTranslator) Translate(_ context.Context, text, lang string) string {
	t.calls++
	return "[" + lang + "] " + text
}

func TestLanguages(t *testing.T) {
	langs := Languages()
	require.Len(t, langs, 4)
	assert.Equal(t, Language{Code: "en", Name: "English"}, langs[0])

	langs[0].Name = "mutated"
	assert.Equal(t, "English", Languages()[0].Name)
}

func TestTranscribe_English(t *testing.T) {
	backend := &fakeBackend{text: " I feel dizzy \n"}
	tr := &fakeTranslator{}
	s := NewService(backend, tr, "whisper-1", "tts-1", "alloy")

	out, err := s.Transcribe(context.Background(), "voice.webm", strings.NewReader("audio"), "")
	require.NoError(t, err)
	assert.Equal(t, &Transcript{Text: "I feel dizzy", EnglishText: "I feel dizzy", Language: "en"}, out)
	assert.Equal(t, "en", backend.language)
	assert.Equal(t, "whisper-1", backend.model)
	assert.Zero(t, tr.calls)
}

func TestTranscribe_TranslatesOtherLanguages(t *testing.T) {
	backend := &fakeBackend{text: "Ori n fo mi"}
	tr := &fakeTranslator{}
	s := NewService(backend, tr, "whisper-1", "tts-1", "alloy")

	out, err := s.Transcribe(context.Background(), "voice.webm", strings.NewReader("audio"), "yo")
	require.NoError(t, err)
	assert.Equal(t, "Ori n fo mi", out.Text)
	assert.Equal(t, "[yo] Ori n fo mi", out.EnglishText)
	assert.Equal(t, "yo", backend.language)
}

func TestTranscribe_LanguageHints(t *testing.T) {
	for lang, hint := range map[string]string{"en": "en", "yo": "yo", "ha": "ha", "ig": ""} {
		t.Run(lang, func(t *testing.T) {
			backend := &fakeBackend{text: "text"}
			s := NewService(backend, &fakeTranslator{}, "whisper-1", "tts-1", "alloy")

			out, err := s.Transcribe(context.Background(), "voice.webm", strings.NewReader("audio"), lang)
			require.NoError(t, err)
			assert.Equal(t, lang, out.Language)
			assert.Equal(t, hint, backend.language)
		})
	}
}

func TestTranscribe_UnsupportedLanguage(t *testing.T) {
	s := NewService(&fakeBackend{}, &fakeTranslator{}, "whisper-1", "tts-1", "alloy")
	_, err := s.Transcribe(context.Background(), "voice.webm", strings.NewReader("audio"), "fr")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestGenerate(t *testing.T) {
	backend := &fakeBackend{}
	s := NewService(backend, &fakeTranslator{}, "whisper-1", "tts-1", "alloy")

	rc, err := s.Generate(context.Background(), "Take your medicine", "")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "ID3Take your medicine", string(data))
	assert.Equal(t, "alloy", backend.voice)
	assert.Equal(t, "tts-1", backend.model)

	_, err = s.Generate(context.Background(), "nova please", "nova")
	require.NoError(t, err)
	assert.Equal(t, "nova", backend.voice)

	_, err = s.Generate(context.Background(), "  ", "")
	assert.Error(t, err)
}
