package dictionary

import "testing"

func TestFormatEntry(t *testing.T) {
	if got := FormatEntry("claude code", "manual"); got != "claude code" {
		t.Errorf("manual entry = %q", got)
	}
	if got := FormatEntry("claude code", "auto"); got != "claude code|auto" {
		t.Errorf("auto entry = %q", got)
	}
	if got := FormatEntry("  claude code  ", "manual"); got != "claude code" {
		t.Errorf("trimmed entry = %q", got)
	}
}

func TestExtractWord(t *testing.T) {
	cases := map[string]string{
		"claude code":      "claude code",
		"claude code|auto": "claude code",
		"CLAUDE.md|auto":   "CLAUDE.md",
		"word|auto|extra":  "word",
		"":                 "",
	}
	for in, want := range cases {
		if got := ExtractWord(in); got != want {
			t.Errorf("ExtractWord(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpsertEntry(t *testing.T) {
	var entries []string

	entries = Upsert(entries, "claude", "manual")
	if len(entries) != 1 || entries[0] != "claude" {
		t.Fatalf("after manual upsert: %v", entries)
	}

	entries = Upsert(entries, "rust", "auto")
	if len(entries) != 2 || entries[1] != "rust|auto" {
		t.Fatalf("after auto upsert: %v", entries)
	}

	entries = Upsert(entries, "rust", "auto")
	if len(entries) != 2 || entries[1] != "rust|auto" {
		t.Fatalf("duplicate auto upsert changed state: %v", entries)
	}

	entries = Upsert(entries, "rust", "manual")
	if len(entries) != 2 || entries[1] != "rust" {
		t.Fatalf("manual upsert did not promote entry: %v", entries)
	}
}

func TestRemoveEntries(t *testing.T) {
	entries := []string{"claude", "rust|auto", "python"}
	entries = Remove(entries, []string{"rust"})
	if len(entries) != 2 || entries[0] != "claude" || entries[1] != "python" {
		t.Fatalf("after remove: %v", entries)
	}
}

func TestEntriesToWords(t *testing.T) {
	entries := []string{"claude", "rust|auto", "python"}
	words := EntriesToWords(entries)
	want := []string{"claude", "rust", "python"}
	for i, w := range want {
		if words[i] != w {
			t.Errorf("words[%d] = %q, want %q", i, words[i], w)
		}
	}
}

func TestCanonicalDedupesAndCaps(t *testing.T) {
	entries := []string{"claude", "claude|auto", "rust", "", "python"}
	words, truncated := Canonical(entries, 2, 0)
	if truncated != true {
		t.Fatalf("expected truncation flag, got words=%v", words)
	}
	if len(words) != 2 || words[0] != "claude" || words[1] != "rust" {
		t.Fatalf("unexpected canonical words: %v", words)
	}
}
