package pipeline

import (
	"context"
	"time"

	"github.com/quietkey/pushtotalk/internal/config"
)

// NormalPipeline turns raw ASR output into the text that gets typed for
// plain dictation: unchanged if polishing is off, or passed through an
// LLM preset (optionally dictionary-enhanced) otherwise.
type NormalPipeline struct {
	cfg config.LlmConfig
}

// NewNormalPipeline builds a pipeline bound to the current LLM settings.
// A fresh client is built per recording rather than cached, since presets
// and keys can change between runs and the client itself holds no state
// worth reusing.
func NewNormalPipeline(cfg config.LlmConfig) *NormalPipeline {
	return &NormalPipeline{cfg: cfg}
}

// Run polishes asrText if enabled, returning the asr-only result otherwise.
// asrElapsed is the time the recording's ASR call took, carried through
// unmodified into the result's timing breakdown.
func (p *NormalPipeline) Run(ctx context.Context, asrText string, dictionaryEntries []string, asrElapsed time.Duration) (Result, error) {
	if !p.cfg.Enabled || asrText == "" {
		return NewASROnlyResult(ModeNormal, asrText, asrElapsed), nil
	}

	client := NewLLMClient(p.cfg.Endpoint, p.cfg.APIKey, p.cfg.Model)
	systemPrompt := p.activeSystemPrompt()

	if p.cfg.DictionaryEnhance {
		systemPrompt += dictionaryEnhancementSuffix
	}

	userMessage := buildUserMessage(asrText, dictionaryEntries, p.cfg.DictionaryEnhance)

	start := time.Now()
	polished, err := client.ChatSimple(ctx, systemPrompt, userMessage, ForPolishing())
	llmElapsed := time.Since(start)
	if err != nil {
		// A polish failure should never lose the user's dictation: fall
		// back to the raw transcript rather than returning an error.
		return NewASROnlyResult(ModeNormal, asrText, asrElapsed), nil
	}

	return NewSuccessResult(ModeNormal, polished, asrText, asrElapsed, llmElapsed), nil
}

// RunDictionaryOnly is the path for a user who wants phonetic dictionary
// correction without general-purpose polishing: it uses the narrower
// proofreading prompt instead of an active preset.
func (p *NormalPipeline) RunDictionaryOnly(ctx context.Context, asrText string, dictionaryEntries []string, asrElapsed time.Duration) (Result, error) {
	if asrText == "" {
		return NewASROnlyResult(ModeNormal, asrText, asrElapsed), nil
	}

	client := NewLLMClient(p.cfg.Endpoint, p.cfg.APIKey, p.cfg.Model)
	userMessage := buildUserMessage(asrText, dictionaryEntries, true)

	start := time.Now()
	polished, err := client.ChatSimple(ctx, dictionaryOnlySystemPrompt, userMessage, ForPolishing())
	llmElapsed := time.Since(start)
	if err != nil {
		return NewASROnlyResult(ModeNormal, asrText, asrElapsed), nil
	}

	return NewSuccessResult(ModeNormal, polished, asrText, asrElapsed, llmElapsed), nil
}

func (p *NormalPipeline) activeSystemPrompt() string {
	for _, preset := range p.cfg.Presets {
		if preset.ID == p.cfg.ActivePresetID {
			return preset.SystemPrompt
		}
	}
	return "You are a helpful assistant."
}
