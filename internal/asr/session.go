// Package asr defines the unified AsrSession contract implemented by each
// realtime wire protocol (Qwen, Doubao, Doubao-IME) and the AsrRouter that
// picks between them and the HTTP fallback providers.
package asr

import "context"

// Session is a single provider connection corresponding to one recording.
// Frames are delivered in strict FIFO order via SendChunk; Finish signals
// end-of-audio; AwaitResult blocks for the final transcript.
type Session interface {
	Start(ctx context.Context) error
	SendChunk(frame []int16) error
	Finish() error
	AwaitResult(ctx context.Context) (string, error)
	Close() error
}

// HTTPClient transcribes a complete WAV blob in one request/response, used
// both as the primary path for "HTTP mode" and as the fallback path when a
// realtime session fails.
type HTTPClient interface {
	Name() string
	TranscribeWAV(ctx context.Context, wavBytes []byte) (string, error)
}
