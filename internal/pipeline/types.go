// Package pipeline turns a finished ASR transcript into the text that
// actually lands at the cursor: optional LLM polishing for dictation, or a
// full LLM turn for the assistant hotkey. Ported field-for-field from
// original_source's pipeline/types.rs, assistant_processor.rs and
// llm_post_processor.rs.
package pipeline

import "time"

// Mode selects which system prompt and insertion behavior a recording uses.
type Mode int

const (
	// ModeNormal is plain dictation: ASR output, optionally polished by an
	// LLM preset, always auto-inserted.
	ModeNormal Mode = iota
	// ModeAssistant routes the transcript to the assistant LLM as an
	// instruction and always requires an LLM call.
	ModeAssistant
)

// DisplayName matches the original's display_name() for log lines.
func (m Mode) DisplayName() string {
	switch m {
	case ModeAssistant:
		return "assistant"
	default:
		return "normal"
	}
}

// ShouldAutoInsert reports whether the pipeline's output should be typed at
// the cursor without further confirmation. Both modes do today; the
// original kept this as a method rather than a constant because some
// assistant sub-modes historically returned results for display only.
func (m Mode) ShouldAutoInsert() bool { return true }

// RequiresLLM reports whether this mode needs an LLM call to produce a
// usable result. Normal dictation can always fall back to raw ASR text;
// assistant mode has no other output.
func (m Mode) RequiresLLM() bool { return m == ModeAssistant }

// Context is the snapshot of surrounding state a pipeline run may use to
// build its prompt: the text selected under the cursor when the assistant
// hotkey fired, captured via clipboard.CaptureSelection.
type Context struct {
	SelectedText string
}

// IsEmpty reports whether the context carries no usable selection.
func (c Context) IsEmpty() bool { return c.SelectedText == "" }

// Result is the outcome of running a recording through a pipeline: the
// final text, timing breakdown, and whether it was inserted at the cursor.
type Result struct {
	Text         string
	OriginalText string
	Mode         Mode
	ASRTimeMS    int64
	LLMTimeMS    int64
	TotalTimeMS  int64
	Inserted     bool
}

// NewASROnlyResult builds a Result for a run that never reached the LLM
// (polishing disabled, or assistant input was empty).
func NewASROnlyResult(mode Mode, text string, asrTime time.Duration) Result {
	ms := asrTime.Milliseconds()
	return Result{
		Text:         text,
		OriginalText: text,
		Mode:         mode,
		ASRTimeMS:    ms,
		TotalTimeMS:  ms,
	}
}

// NewSuccessResult builds a Result for a run whose text passed through the
// LLM. TotalTimeMS is always the sum of the two stage times, never
// re-measured end to end, so slow clipboard/focus work around the pipeline
// never inflates it.
func NewSuccessResult(mode Mode, text, original string, asrTime, llmTime time.Duration) Result {
	asrMS := asrTime.Milliseconds()
	llmMS := llmTime.Milliseconds()
	return Result{
		Text:         text,
		OriginalText: original,
		Mode:         mode,
		ASRTimeMS:    asrMS,
		LLMTimeMS:    llmMS,
		TotalTimeMS:  asrMS + llmMS,
	}
}
