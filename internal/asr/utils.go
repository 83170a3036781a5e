package asr

import (
	"net/http"
	"time"
)

// NewHTTPClient returns the standard-configuration client every HTTP ASR
// provider uses: a 30s overall timeout, matching the teacher's network
// calls and the reference implementation's reqwest client builder.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

var trailingPunctuation = map[rune]bool{
	'。': true, '，': true, '!': true, '?': true, '、': true, '；': true, '：': true,
	'"': true, '\'': true, '.': true, ',': true, '！': true, '？': true, ';': true, ':': true,
}

// StripTrailingPunctuation removes sentence-terminal punctuation (both
// full-width and ASCII) that several ASR providers leave on the transcript.
func StripTrailingPunctuation(text string) string {
	runes := []rune(text)
	end := len(runes)
	for end > 0 && trailingPunctuation[runes[end-1]] {
		end--
	}
	return string(runes[:end])
}
