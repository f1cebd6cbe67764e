package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/oratio/internal/common"
	"github.com/ternarybob/oratio/internal/interfaces"
	"github.com/ternarybob/oratio/internal/services/profiler"
)

// Translator produces English and Russian renderings of Estonian text.
// The primary request asks for both languages in one tagged response; a
// language missing from the response is retried with a single-language
// prompt before giving up on it.
type Translator struct {
	config   common.TranslateConfig
	provider interfaces.GenerationProvider
	logger   arbor.ILogger
}

func NewTranslator(config common.TranslateConfig, provider interfaces.GenerationProvider, logger arbor.ILogger) *Translator {
	return &Translator{
		config:   config,
		provider: provider,
		logger:   logger,
	}
}

// BuildPairPrompt requests both translations in one tagged response.
func BuildPairPrompt(text string) string {
	return fmt.Sprintf(`Translate the following Estonian text to English and Russian like you are a native speaker of each language. Do not summarize, translate everything.

Provide the translations in this exact format:
<en>English translation here</en>
<ru>Russian translation here</ru>

Estonian text:
%s`, text)
}

func buildSinglePrompt(text, language string) string {
	return fmt.Sprintf("Translate the following Estonian text to %[1]s like you are a native %[1]s speaker. Do not summarize, translate everything. Provide only the translation, no explanations:\n\n%[2]s", language, text)
}

// TranslatePair returns the English and Russian translations of text.
// A nil return for a language means that translation failed; an error
// is returned only when both are missing.
func (t *Translator) TranslatePair(ctx context.Context, text string) (*string, *string, error) {
	response, err := t.provider.Generate(ctx, BuildPairPrompt(text), t.config.MaxTokens, t.config.Temperature)
	if err != nil {
		return nil, nil, fmt.Errorf("requesting translations: %w", err)
	}

	en, ru := ParsePair(response)
	if en == nil {
		en = t.translateSingle(ctx, text, "English")
	}
	if ru == nil {
		ru = t.translateSingle(ctx, text, "Russian")
	}

	if en == nil && ru == nil {
		return nil, nil, fmt.Errorf("response carried no usable translation")
	}
	return en, ru, nil
}

// translateSingle is the per-language fallback. Failure is logged and
// reported as nil so the other language can still be saved.
func (t *Translator) translateSingle(ctx context.Context, text, language string) *string {
	response, err := t.provider.Generate(ctx, buildSinglePrompt(text, language), t.config.MaxTokens, t.config.Temperature)
	if err != nil {
		t.logger.Warn().
			Err(err).
			Str("language", language).
			Msg("Single-language translation failed")
		return nil
	}

	translated := strings.TrimSpace(response)
	if translated == "" {
		return nil
	}
	return &translated
}

// ParsePair extracts the tagged translations from a dual-language
// response. Missing or empty tags yield nil.
func ParsePair(response string) (en, ru *string) {
	if text, ok := profiler.ExtractFirst(response, "en"); ok {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			en = &trimmed
		}
	}
	if text, ok := profiler.ExtractFirst(response, "ru"); ok {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			ru = &trimmed
		}
	}
	return en, ru
}
