// Package dictionary manages the user's hotword list: manual entries the
// user typed in directly, and auto-learned entries suggested by other
// subsystems. Both live in one ordered string slice; auto entries carry a
// "|auto" suffix so their provenance survives a save/load round trip.
package dictionary

import (
	"strings"
	"unicode/utf8"
)

// Normalize trims surrounding whitespace from a raw word.
func Normalize(word string) string {
	return strings.TrimSpace(word)
}

// FormatEntry renders a word for storage, tagging auto-learned entries.
func FormatEntry(word, source string) string {
	normalized := Normalize(word)
	if source == "auto" {
		return normalized + "|auto"
	}
	return normalized
}

// ExtractWord strips the "|auto" (or any "|"-delimited) suffix from a
// stored entry, returning the bare word.
func ExtractWord(entry string) string {
	if idx := strings.IndexByte(entry, '|'); idx >= 0 {
		return entry[:idx]
	}
	return entry
}

// Upsert inserts word into entries, or updates its provenance if already
// present. A manual upsert always wins over an existing auto entry; an auto
// upsert never downgrades an existing manual entry.
func Upsert(entries []string, word, source string) []string {
	normalized := Normalize(word)
	if normalized == "" {
		return entries
	}

	for i, e := range entries {
		if ExtractWord(e) == normalized {
			if source == "manual" {
				entries[i] = normalized
			}
			return entries
		}
	}

	return append(entries, FormatEntry(normalized, source))
}

// Remove deletes every entry whose bare word matches one in words,
// regardless of provenance.
func Remove(entries []string, words []string) []string {
	toRemove := make(map[string]struct{}, len(words))
	for _, w := range words {
		toRemove[w] = struct{}{}
	}

	kept := entries[:0]
	for _, e := range entries {
		if _, found := toRemove[ExtractWord(e)]; !found {
			kept = append(kept, e)
		}
	}
	return kept
}

// EntriesToWords strips provenance suffixes from every entry, producing the
// plain word list the ASR providers and the LLM prompt expect.
func EntriesToWords(entries []string) []string {
	words := make([]string, len(entries))
	for i, e := range entries {
		words[i] = ExtractWord(e)
	}
	return words
}

// Canonical builds the deduplicated, insertion-ordered, size-capped word
// list threaded through the HTTP ASR request body, the realtime ASR opening
// message, and the LLM polish prompt. The daemon computes it once, when it
// builds the ASR router, for the two ASR paths; buildUserMessage computes it
// again for each polish prompt. Canonical strips the |auto suffixes itself,
// so they never leak past this boundary. maxChars counts characters
// (runes), not bytes.
func Canonical(entries []string, maxEntries, maxChars int) ([]string, bool) {
	words := EntriesToWords(entries)

	seen := make(map[string]struct{}, len(words))
	deduped := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		deduped = append(deduped, w)
	}

	truncated := false
	if maxEntries > 0 && len(deduped) > maxEntries {
		deduped = deduped[:maxEntries]
		truncated = true
	}

	if maxChars > 0 {
		total := 0
		for i, w := range deduped {
			total += utf8.RuneCountInString(w)
			if total > maxChars {
				deduped = deduped[:i]
				truncated = true
				break
			}
		}
	}

	return deduped, truncated
}
