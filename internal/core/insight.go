package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"healthassist/internal/llm"
	"healthassist/internal/store"
)

// factExtractionChars bounds how much of a document is sent for extraction.
const factExtractionChars = 4000

// documentNoteChars bounds the raw excerpt stored when extraction is off.
const documentNoteChars = 1000

// LanguageNames maps the supported non-English language codes to names.
var LanguageNames = map[string]string{
	"yo": "Yoruba",
	"ha": "Hausa",
	"ig": "Igbo",
}

// Completer is a single-shot chat model, usually a *llm.Model.
type Completer interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// Insight derives memory from uploaded documents and translates user text.
type Insight struct {
	extractor  Completer
	translator Completer
	log        zerolog.Logger
}

// NewInsight returns an Insight using separate extraction and translation models.
func NewInsight(extractor, translator Completer, log zerolog.Logger) *Insight {
	return &Insight{extractor: extractor, translator: translator, log: log}
}

// ExtractFacts asks the model for the long-term health facts in content. It
// returns "" when the model finds none.
func (i *Insight) ExtractFacts(ctx context.Context, filename, content string) (string, error) {
	prompt := fmt.Sprintf(FactExtractionPrompt, filename, truncateRunes(content, factExtractionChars))
	out, err := i.extractor.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" || strings.EqualFold(strings.Trim(out, ".'\""), "none") {
		return "", nil
	}
	return fmt.Sprintf("\n--- %s ---\n%s\n\n", filename, out), nil
}

// Translate returns text in English. English input, failed calls and empty
// replies leave the text unchanged.
func (i *Insight) Translate(ctx context.Context, text, lang string) string {
	if lang == "" || lang == "en" {
		return text
	}
	name, ok := LanguageNames[lang]
	if !ok {
		name = lang
	}
	prompt := fmt.Sprintf(TranslationPrompt, name, name, text)
	out, err := i.translator.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		i.log.Warn().Err(err).Str("language", lang).Msg("translation failed")
		return text
	}
	if out = strings.TrimSpace(out); out == "" {
		return text
	}
	return out
}

// Remember stores what an uploaded document says about the user. With
// extract set the model distills facts; otherwise a truncated excerpt is
// kept. It reports whether anything was written.
func (i *Insight) Remember(ctx context.Context, facts *store.FactStore, userID, filename, content string, extract bool) (bool, error) {
	var note string
	if extract {
		extracted, err := i.ExtractFacts(ctx, filename, content)
		if err != nil {
			i.log.Warn().Err(err).Str("file", filename).Msg("fact extraction failed")
			return false, nil
		}
		note = extracted
	} else {
		note = fmt.Sprintf("\n--- Document: %s ---\n%s\n\n", filename, truncateRunes(content, documentNoteChars))
	}
	if strings.TrimSpace(note) == "" {
		return false, nil
	}
	if err := facts.Append(userID, note); err != nil {
		return false, err
	}
	return true, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
