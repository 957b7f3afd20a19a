package translator

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"pdf-layout-translator/internal/logger"
	"pdf-layout-translator/internal/types"
)

// ChatModel is the subset of an eino chat model used here.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// OpenAIConfig OpenAI 兼容后端配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAITranslator prompts an OpenAI-compatible chat model, one request
// per text.
type OpenAITranslator struct {
	chat  ChatModel
	model string
}

// NewOpenAITranslator builds the eino chat model. Temperature is pinned to
// zero so repeated runs produce the same text.
func NewOpenAITranslator(ctx context.Context, cfg OpenAIConfig) (*OpenAITranslator, error) {
	if cfg.APIKey == "" {
		return nil, types.NewAppError(types.ErrConfig, "OpenAI API key is not configured", nil)
	}
	var temperature float32
	chatModelConfig := &openai.ChatModelConfig{
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		Temperature: &temperature,
	}
	if cfg.BaseURL != "" {
		chatModelConfig.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, chatModelConfig)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}
	return &OpenAITranslator{chat: chatModel, model: cfg.Model}, nil
}

// NewOpenAITranslatorWithModel wraps an existing chat model.
func NewOpenAITranslatorWithModel(chat ChatModel, modelName string) *OpenAITranslator {
	return &OpenAITranslator{chat: chat, model: modelName}
}

// Translate implements Translator.
func (o *OpenAITranslator) Translate(ctx context.Context, texts []string, src, tgt string) ([]string, error) {
	out := make([]string, len(texts))
	for i, text := range texts {
		logger.Debug("calling chat model",
			logger.String("model", o.model),
			logger.Int("textLen", len(text)))

		resp, err := o.chat.Generate(ctx, []*schema.Message{
			schema.SystemMessage(buildSystemPrompt(src, tgt)),
			schema.UserMessage(buildUserPrompt(text)),
		})
		if err != nil {
			return nil, types.NewAppError(types.ErrAPICall, "chat model request failed", err)
		}
		if resp == nil {
			return nil, fmt.Errorf("%w: nil message", ErrMalformedResponse)
		}
		out[i] = cleanResponse(resp.Content)
	}
	return out, nil
}

// LanguageName returns the English display name of a BCP 47 tag, falling
// back to the tag itself.
func LanguageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}

func buildSystemPrompt(src, tgt string) string {
	return fmt.Sprintf(`You are a professional machine translation engine for academic and scientific documents.
Translate the user's text from %s to %s.

RULES:
1. Output only the translated text, without explanations or notes.
2. Tokens of the form {v0}, {v1}, ... stand for formulas. Keep every token exactly once and unchanged.
3. Do not add, remove, or renumber tokens.`, LanguageName(src), LanguageName(tgt))
}

func buildUserPrompt(text string) string {
	return "Source Text: " + text + "\n\nTranslated Text:"
}

// cleanResponse strips labels and fences some models echo back.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Translated Text:")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
