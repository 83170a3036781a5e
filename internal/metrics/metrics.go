package metrics

import (
	"strings"
	"time"
	"unicode"
)

// UsageStats is the per-day usage aggregate SPEC_FULL.md names directly:
// {Date, SessionCount, WordCount, RecordingSeconds, EstimatedTimeSavedSeconds}.
// Unlike the teacher's DailyMetrics, it carries no nested per-session list —
// a dictation session's only durable trace is its contribution to these
// five running totals; the per-session numbers a caller wants for an
// immediate toast are returned separately as a SessionResult and never
// persisted on their own.
type UsageStats struct {
	Date                      string  `json:"date"`
	SessionCount              int     `json:"session_count"`
	WordCount                 int     `json:"word_count"`
	RecordingSeconds          float64 `json:"recording_seconds"`
	EstimatedTimeSavedSeconds float64 `json:"estimated_time_saved_seconds"`
}

// SessionResult is the ephemeral per-session breakdown handed back to the
// caller right after a paste, for the recording-overlay/CLI toast. It is
// never itself persisted; only its contribution to the day's UsageStats is.
type SessionResult struct {
	WordCount       int
	RecordingTime   time.Duration
	TimeSaved       time.Duration
	SpeakingRateWPM int
}

// TotalStats aggregates every persisted UsageStats day into lifetime
// totals plus per-session averages.
type TotalStats struct {
	TotalWords            int
	TotalSessions         int
	TotalTimeSaved        time.Duration
	AvgWordsPerSession    int
	AvgTimeSavedPerSession time.Duration
}

type UserSettings struct {
	TypingSpeed int `json:"typing_speed"` // User's actual WPM for personalized calculations
}

type MetricsManager struct {
	storage      *Storage
	userSettings *UserSettings
}

func NewMetricsManager(storagePath string) (*MetricsManager, error) {
	storage, err := NewStorage(storagePath)
	if err != nil {
		return nil, err
	}

	userSettings, err := storage.LoadUserSettings()
	if err != nil {
		// Use default typing speed if no settings found
		userSettings = &UserSettings{
			TypingSpeed: 40, // Default average typing speed
		}
	}

	return &MetricsManager{
		storage:      storage,
		userSettings: userSettings,
	}, nil
}

// RecordSession folds one dictation session's transcript and recording
// duration into today's persisted UsageStats, and returns this session's
// own numbers for an immediate summary.
func (mm *MetricsManager) RecordSession(transcript string, recordingTime time.Duration) (SessionResult, error) {
	wordCount := countWords(transcript)
	speakingRate := calculateSpeakingRate(wordCount, recordingTime)
	timeSaved := mm.calculateTimeSaved(wordCount, recordingTime)

	result := SessionResult{
		WordCount:       wordCount,
		RecordingTime:   recordingTime,
		TimeSaved:       timeSaved,
		SpeakingRateWPM: speakingRate,
	}

	if err := mm.storage.AccumulateSession(result); err != nil {
		return result, err
	}

	return result, nil
}

func (mm *MetricsManager) GetTodayStats() (*UsageStats, error) {
	today := time.Now().Format("2006-01-02")
	return mm.storage.GetUsageStats(today)
}

func (mm *MetricsManager) GetTotalStats() (*TotalStats, error) {
	return mm.storage.GetTotalStats()
}

func (mm *MetricsManager) SetTypingSpeed(wpm int) error {
	mm.userSettings.TypingSpeed = wpm
	return mm.storage.SaveUserSettings(mm.userSettings)
}

func (mm *MetricsManager) GetTypingSpeed() int {
	return mm.userSettings.TypingSpeed
}

func (mm *MetricsManager) GetRecentDays(days int) ([]*UsageStats, error) {
	return mm.storage.GetRecentDays(days)
}

func (mm *MetricsManager) ClearAllMetrics() error {
	return mm.storage.ClearAllStats()
}

func (mm *MetricsManager) calculateTimeSaved(wordCount int, recordingTime time.Duration) time.Duration {
	if wordCount == 0 {
		return 0
	}

	// Calculate time it would take to type these words
	typingTimeMinutes := float64(wordCount) / float64(mm.userSettings.TypingSpeed)
	typingTime := time.Duration(typingTimeMinutes * float64(time.Minute))

	// Time saved = typing time - recording time
	timeSaved := typingTime - recordingTime
	return max(timeSaved, 0)
}

// countWords counts CJK runes (Han, Hiragana, Katakana, Hangul) individually,
// since the transcripts this tool dictates are mostly unspaced Chinese text
// where strings.Fields alone would undercount by treating a whole sentence
// as one "word". Runs of non-CJK text still count as whitespace-delimited
// words.
func countWords(text string) int {
	if text == "" {
		return 0
	}

	count := 0
	var latinRun strings.Builder
	flush := func() {
		count += len(strings.Fields(latinRun.String()))
		latinRun.Reset()
	}

	for _, r := range text {
		if isCJK(r) {
			flush()
			count++
			continue
		}
		latinRun.WriteRune(r)
	}
	flush()

	return count
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

func calculateSpeakingRate(wordCount int, duration time.Duration) int {
	if duration == 0 {
		return 0
	}

	minutes := duration.Minutes()
	if minutes == 0 {
		return 0
	}

	return int(float64(wordCount) / minutes)
}
