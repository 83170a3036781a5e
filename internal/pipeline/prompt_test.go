package pipeline

import (
	"fmt"
	"strings"
	"testing"
)

func TestBuildUserMessageWithoutDictionary(t *testing.T) {
	msg := buildUserMessage("hello", nil, false)
	if !strings.Contains(msg, "<source_text>") {
		t.Fatalf("missing source_text tag: %q", msg)
	}
	if strings.Contains(msg, "claude") {
		t.Fatalf("unexpected dictionary content leaked: %q", msg)
	}
}

func TestBuildUserMessageWithDictionary(t *testing.T) {
	entries := []string{"张三|manual", "北京|auto", "张三|auto"}
	msg := buildUserMessage("你好", entries, true)

	if !strings.Contains(msg, "<dictionary>") {
		t.Fatalf("missing dictionary tag: %q", msg)
	}
	if !strings.Contains(msg, "张三") || !strings.Contains(msg, "北京") {
		t.Fatalf("dictionary words missing: %q", msg)
	}
	if strings.Count(msg, "张三") != 1 {
		t.Fatalf("duplicate entry not deduped: %q", msg)
	}
}

func TestBuildUserMessageTruncatesLongDictionary(t *testing.T) {
	entries := make([]string, 0, maxDictionaryEntries+10)
	for i := 0; i < maxDictionaryEntries+10; i++ {
		entries = append(entries, fmt.Sprintf("word%d", i))
	}
	msg := buildUserMessage("text", entries, true)
	if !strings.Contains(msg, "已截断") {
		t.Fatalf("expected truncation marker: %q", msg)
	}
}

func TestAssistantContextMessage(t *testing.T) {
	msg := assistantContextMessage("selected text", "do something")
	if !strings.Contains(msg, "选中的文本") || !strings.Contains(msg, "用户指令") {
		t.Fatalf("missing section markers: %q", msg)
	}
}
