package pipeline

import (
	"context"
	"time"

	"github.com/quietkey/pushtotalk/internal/config"
)

// AssistantPipeline routes a voice instruction to the assistant LLM,
// choosing between a question-answering prompt and a text-processing
// prompt depending on whether the user had a selection under the cursor
// when the hotkey fired.
type AssistantPipeline struct {
	cfg config.AssistantConfig
}

// NewAssistantPipeline builds a pipeline bound to the current assistant
// settings.
func NewAssistantPipeline(cfg config.AssistantConfig) *AssistantPipeline {
	return &AssistantPipeline{cfg: cfg}
}

// Run sends instruction (the transcribed voice command) to the assistant
// LLM. When selectedText is non-empty, the text-processing prompt and a
// context-wrapped user message are used instead of the plain Q&A path.
func (p *AssistantPipeline) Run(ctx context.Context, instruction, selectedText string, asrElapsed time.Duration) (Result, error) {
	if instruction == "" {
		return NewASROnlyResult(ModeAssistant, instruction, asrElapsed), nil
	}

	client := NewLLMClient(p.cfg.Llm.Endpoint, p.cfg.Llm.APIKey, p.cfg.Llm.Model)

	systemPrompt := p.cfg.QaSystemPrompt
	userMessage := instruction
	if selectedText != "" {
		systemPrompt = p.cfg.TextProcessingSystemPrompt
		userMessage = assistantContextMessage(selectedText, instruction)
	}

	start := time.Now()
	reply, err := client.ChatSimple(ctx, systemPrompt, userMessage, ForSmartCommand())
	llmElapsed := time.Since(start)
	if err != nil {
		return Result{}, err
	}

	return NewSuccessResult(ModeAssistant, reply, instruction, asrElapsed, llmElapsed), nil
}
