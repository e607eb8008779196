// Package speech wraps hosted transcription and text-to-speech for the
// supported languages.
package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnsupportedLanguage is returned for language codes outside Languages.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is one supported language code and its display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var languages = []Language{
	{Code: "en", Name: "English"},
	{Code: "yo", Name: "Yoruba"},
	{Code: "ha", Name: "Hausa"},
	{Code: "ig", Name: "Igbo"},
}

// Languages lists the supported languages, English first.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

func supported(code string) bool {
	for _, l := range languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// Backend is the hosted speech API.
type Backend interface {
	Transcribe(ctx context.Context, model, filename string, audio io.Reader, language string) (string, error)
	Speak(ctx context.Context, model, voice, text string) (io.ReadCloser, error)
}

// Translator turns non-English text into English.
type Translator interface {
	Translate(ctx context.Context, text, lang string) string
}

// Transcript is the result of one transcription.
type Transcript struct {
	Text        string `json:"text"`
	EnglishText string `json:"english_text"`
	Language    string `json:"language"`
}

type Service struct {
	backend         Backend
	translator      Translator
	transcribeModel string
	speechModel     string
	defaultVoice    string
}

// NewService returns a Service. voice is used when Generate gets none.
func NewService(backend Backend, translator Translator, transcribeModel, speechModel, voice string) *Service {
	return &Service{
		backend:         backend,
		translator:      translator,
		transcribeModel: transcribeModel,
		speechModel:     speechModel,
		defaultVoice:    voice,
	}
}

// Transcribe converts the audio to text in lang and, for languages other
// than English, adds an English translation.
func (s *Service) Transcribe(ctx context.Context, filename string, audio io.Reader, lang string) (*Transcript, error) {
	if lang == "" {
		lang = "en"
	}
	if !supported(lang) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	// Whisper has no Igbo hint; ig is left to auto-detection.
	hint := lang
	if lang == "ig" {
		hint = ""
	}
	text, err := s.backend.Transcribe(ctx, s.transcribeModel, filename, audio, hint)
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	out := &Transcript{Text: text, EnglishText: text, Language: lang}
	if lang != "en" && text != "" {
		out.EnglishText = s.translator.Translate(ctx, text, lang)
	}
	return out, nil
}

// Generate renders text as mp3 audio. An empty voice uses the default. The
// caller closes the reader.
func (s *Service) Generate(ctx context.Context, text, voice string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is required")
	}
	if voice == "" {
		voice = s.defaultVoice
	}
	audio, err := s.backend.Speak(ctx, s.speechModel, voice, text)
	if err != nil {
		return nil, fmt.Errorf("generate speech: %w", err)
	}
	return audio, nil
}
