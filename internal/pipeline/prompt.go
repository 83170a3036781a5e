package pipeline

import (
	"fmt"
	"strings"

	"github.com/quietkey/pushtotalk/internal/dictionary"
)

const (
	maxDictionaryEntries = 200
	maxDictionaryChars   = 4000
)

// dictionaryEnhancementSuffix is appended to a user's chosen polish preset
// when both polishing and dictionary enhancement are enabled, so the
// preset's own voice is kept and the correction rule is additive.
const dictionaryEnhancementSuffix = `

【词库增强规则】
请参考 <dictionary> 标签中的词汇进行音似纠错：
- 优先判断原文词语与词库词汇在发音上是否相同或极度相似
- 仅当发音匹配且替换后语义更合理时才执行修改
- 不确定时保留原文`

// dictionaryOnlySystemPrompt is used when the user has dictionary
// enhancement on but declined general polishing: a narrower ASR-proofing
// prompt rather than a free-form rewrite instruction.
const dictionaryOnlySystemPrompt = `
<role>
你是一位精通中英双语的 ASR（语音转文字）校对专家。你具备极强的语音感知能力，擅长区分"发音错误"与"语义表达差异"。
</role>

<task_logic>
你的任务是根据语境修复源文本。请遵循以下判断逻辑：
1. 语音匹配判定：优先判断原文词语与候选词（词库提供或语境推测）在发音上是否【相同】或【极度相似】。
2. 语境适配判定：仅当替换后的词语能显著提升整句逻辑的合理性时，才执行修改。
3. 保守执行策略：若原文逻辑通顺，或不确定是否为语音误识，请始终保留原文。
</task_logic>

<rules>
- 优先参考 <dictionary> 标签中的词汇。
- 允许自主纠正：若未命中词库但发音高度相似且符合语境，应予以纠正（如：专业术语、地名）。
- 保持原样原则：如果两个词意思相近但发音差异大（如：赞赏 vs 点赞），请务必保留原文。
- 格式规范：将数字、百分比、日期转换为阿拉伯数字格式（如：2024年5月3日，30%）。
- 最终输出：仅展示修正后的纯文本，不包含任何解释。
</rules>`

// buildUserMessage assembles the <dictionary>/<source_text> wrapped user
// turn sent to the polish LLM. The dictionary section is empty when
// enhancement is off, but the tag itself is always present so the system
// prompt's references to it are never dangling.
func buildUserMessage(rawText string, entries []string, enableDictionaryEnhancement bool) string {
	var b strings.Builder

	b.WriteString("<dictionary>\n")
	if enableDictionaryEnhancement {
		words, truncated := dictionary.Canonical(entries, maxDictionaryEntries, maxDictionaryChars)
		b.WriteString(strings.Join(words, ", "))
		if truncated {
			total := len(dictionary.EntriesToWords(entries))
			fmt.Fprintf(&b, "\n...(词库过长，已截断；原始共 %d 条)", total)
		}
	}
	b.WriteString("\n</dictionary>\n\n")

	b.WriteString("\n<source_text>\n")
	b.WriteString(rawText)
	b.WriteString("\n</source_text>\n\n请处理上述 <source_text>，直接输出最终结果。\n")

	return b.String()
}

// assistantContextMessage formats an assistant-mode instruction plus the
// text that was selected under the cursor when the hotkey fired.
func assistantContextMessage(selectedText, instruction string) string {
	return fmt.Sprintf("【选中的文本】\n%s\n\n【用户指令】\n%s", selectedText, instruction)
}
