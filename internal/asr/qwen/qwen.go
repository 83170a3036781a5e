// Package qwen implements the Qwen (Alibaba DashScope) realtime and HTTP
// ASR wire protocols. The realtime session handshakes over a JSON
// WebSocket and streams 200ms PCM chunks; the HTTP client sends a single
// base64-encoded WAV in a multimodal-generation request.
package qwen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quietkey/pushtotalk/internal/asr"
)

const (
	realtimeURL     = "wss://dashscope.aliyuncs.com/api-ws/v1/realtime"
	httpURL         = "https://dashscope.aliyuncs.com/api/v1/services/aigc/multimodal-generation/generation"
	model           = "qwen3-asr-flash"
	segmentMillis   = 200
	sessionReadyWait = 5 * time.Second
)

// RealtimeSession streams PCM audio to Qwen's server-VAD realtime endpoint
// and accumulates interim/completed transcription text.
type RealtimeSession struct {
	apiKey      string
	corpusText  string
	conn        *websocket.Conn

	mu          sync.Mutex
	accumulated string
	resultCh    chan result
	readyCh     chan struct{}
	readyOnce   sync.Once
}

type result struct {
	text string
	err  error
}

// NewRealtimeSession constructs a session bound to one recording.
// corpusText is the canonical, deduplicated dictionary text (may be empty).
func NewRealtimeSession(apiKey, corpusText string) *RealtimeSession {
	return &RealtimeSession{
		apiKey:     apiKey,
		corpusText: corpusText,
		resultCh:   make(chan result, 1),
		readyCh:    make(chan struct{}),
	}
}

func (s *RealtimeSession) Start(ctx context.Context) error {
	url := fmt.Sprintf("%s?model=%s", realtimeURL, model)
	header := http.Header{}
	header.Set("Authorization", "bearer "+s.apiKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("qwen dial failed: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("qwen dial failed: %w", err)
	}
	s.conn = conn

	if err := s.sendSessionUpdate(); err != nil {
		return err
	}

	go s.receiveLoop()

	select {
	case <-s.readyCh:
		return nil
	case <-time.After(sessionReadyWait):
		return fmt.Errorf("qwen: timeout waiting for session.updated")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *RealtimeSession) sendSessionUpdate() error {
	update := map[string]any{
		"event_id": uuid.NewString(),
		"type":     "session.update",
		"session": map[string]any{
			"modalities":          []string{"text"},
			"input_audio_format":  "pcm",
			"sample_rate":         16000,
			"turn_detection": map[string]any{
				"type":                "server_vad",
				"threshold":           0.0,
				"silence_duration_ms": 400,
			},
		},
	}

	if s.corpusText != "" {
		session := update["session"].(map[string]any)
		session["input_audio_transcription"] = map[string]any{
			"corpus": map[string]any{"text": s.corpusText},
		}
	}

	return s.conn.WriteJSON(update)
}

// SendChunk sends one 200ms PCM16 frame, base64-encoded inside an
// input_audio_buffer.append event.
func (s *RealtimeSession) SendChunk(frame []int16) error {
	raw := make([]byte, len(frame)*2)
	for i, v := range frame {
		raw[i*2] = byte(v)
		raw[i*2+1] = byte(v >> 8)
	}

	event := map[string]any{
		"event_id": uuid.NewString(),
		"type":     "input_audio_buffer.append",
		"audio":    base64.StdEncoding.EncodeToString(raw),
	}
	return s.conn.WriteJSON(event)
}

// Finish sends session.finish; the server's VAD has already ended the turn
// so no explicit input_audio_buffer.commit is sent.
func (s *RealtimeSession) Finish() error {
	return s.conn.WriteJSON(map[string]any{
		"event_id": uuid.NewString(),
		"type":     "session.finish",
	})
}

func (s *RealtimeSession) AwaitResult(ctx context.Context) (string, error) {
	select {
	case r := <-s.resultCh:
		return r.text, r.err
	case <-ctx.Done():
		return s.currentAccumulated(), ctx.Err()
	}
}

func (s *RealtimeSession) currentAccumulated() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accumulated
}

func (s *RealtimeSession) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *RealtimeSession) receiveLoop() {
	defer func() {
		s.mu.Lock()
		text := s.accumulated
		s.mu.Unlock()
		select {
		case s.resultCh <- result{text: text}:
		default:
		}
	}()

	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var event struct {
			Type       string `json:"type"`
			Text       string `json:"text"`
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}

		switch event.Type {
		case "session.updated":
			s.readyOnce.Do(func() { close(s.readyCh) })
		case "session.finished":
			return
		case "error":
			select {
			case s.resultCh <- result{err: fmt.Errorf("qwen: server error")}:
			default:
			}
			return
		case "conversation.item.input_audio_transcription.text":
			if event.Text != "" {
				s.mu.Lock()
				s.accumulated = event.Text
				s.mu.Unlock()
			}
		case "conversation.item.input_audio_transcription.completed":
			text := event.Transcript
			if text != "" {
				s.mu.Lock()
				s.accumulated = text
				s.mu.Unlock()
				select {
				case s.resultCh <- result{text: text}:
				default:
				}
				return
			}
		}
	}
}

// HTTPClient calls Qwen's non-streaming multimodal-generation endpoint
// with a complete WAV blob.
type HTTPClient struct {
	apiKey string
	client *http.Client
}

func NewHTTPClient(apiKey string) *HTTPClient {
	return &HTTPClient{apiKey: apiKey, client: asr.NewHTTPClient()}
}

func (c *HTTPClient) Name() string { return "qwen" }

func (c *HTTPClient) TranscribeWAV(ctx context.Context, wavBytes []byte) (string, error) {
	b64 := base64.StdEncoding.EncodeToString(wavBytes)

	body := map[string]any{
		"model": model,
		"input": map[string]any{
			"messages": []map[string]any{
				{"role": "system", "content": []map[string]any{{"text": ""}}},
				{"role": "user", "content": []map[string]any{{"audio": "data:audio/wav;base64," + b64}}},
			},
		},
		"parameters": map[string]any{
			"result_format":       "message",
			"enable_itn":          false,
			"disfluency_removal":  true,
			"language":            "zh",
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, httpURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("qwen http: status %d", resp.StatusCode)
	}

	var parsed struct {
		Output struct {
			Choices []struct {
				Message struct {
					Content []struct {
						Text string `json:"text"`
					} `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		} `json:"output"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Output.Choices) == 0 || len(parsed.Output.Choices[0].Message.Content) == 0 {
		return "", fmt.Errorf("qwen http: empty response")
	}

	text := parsed.Output.Choices[0].Message.Content[0].Text
	return asr.StripTrailingPunctuation(text), nil
}

