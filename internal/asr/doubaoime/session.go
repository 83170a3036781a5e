// Package doubaoime implements the Doubao-IME custom protobuf-over-
// WebSocket realtime ASR protocol: a three-state session state machine
// (TaskIdle/SessionIdle/Streaming) driven by server-asserted message
// types, Opus-encoded audio frames, and a two-step device registration
// exchanged for a session token.
package doubaoime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hraban/opus"

	"github.com/quietkey/pushtotalk/internal/audio"
)

const (
	wsURL        = "wss://frontier-audio-ime-ws.doubao.com/ocean/api/v1/ws"
	aid          = "401734"
	opusFrameMs  = 20
	opusFrameLen = audio.TargetSampleRate * opusFrameMs / 1000 // samples per 20ms frame at 16kHz
	userAgent    = "com.sogou.inputmethod.beta/1 CFNetwork/1408.0.4 Darwin/22.5.0" // iOS CFNetwork-style string, not an Android client User-Agent
)

// sessionPhase names the three-state session state machine plus its
// failure branches, per spec.md section 4.2.3.
type sessionPhase int

const (
	phaseTaskIdle sessionPhase = iota
	phaseWaitTaskStarted
	phaseSessionIdle
	phaseWaitSessionStarted
	phaseStreaming
	phaseClosing
	phaseDone
	phaseFailed
)

type result struct {
	text string
	err  error
}

// Session is the Doubao-IME realtime AsrSession implementation.
type Session struct {
	store      *Store
	dictionary []string

	conn   *websocket.Conn
	connMu sync.Mutex

	encoder *opus.Encoder

	mu          sync.Mutex
	phase       sessionPhase
	interim     string
	lastFailure string
	frameIndex  int

	resultCh chan result
	doneCh   chan struct{}
}

// NewSession constructs a session bound to one recording. store caches
// device credentials across recordings; dictionary is the canonical
// deduplicated hotword list.
func NewSession(store *Store, dictionary []string) *Session {
	return &Session{
		store:      store,
		dictionary: dictionary,
		resultCh:   make(chan result, 1),
		doneCh:     make(chan struct{}),
	}
}

func (s *Session) Start(ctx context.Context) error {
	enc, err := opus.NewEncoder(audio.TargetSampleRate, 1, opus.AppVoIP)
	if err != nil {
		return fmt.Errorf("doubaoime: opus encoder: %w", err)
	}
	s.encoder = enc

	return s.handshake(ctx, false)
}

// handshake connects the WebSocket and drives TaskIdle -> Streaming. On a
// credential rejection it is called a second time with retried=true; the
// caller guarantees this happens at most once per session-start attempt.
func (s *Session) handshake(ctx context.Context, retried bool) error {
	creds := s.store.Get()
	if creds == nil {
		registered, err := Register(ctx)
		if err != nil {
			return fmt.Errorf("doubaoime: device registration failed: %w", err)
		}
		s.store.Set(registered)
		creds = registered
	}

	header := http.Header{}
	header.Set("proto-version", "v2")
	header.Set("User-Agent", userAgent)

	url := fmt.Sprintf("%s?aid=%s&device_id=%s", wsURL, aid, creds.DeviceID)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("doubaoime dial failed: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("doubaoime dial failed: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.setPhase(phaseWaitTaskStarted)

	startTask := asrRequest{
		token:       creds.Token,
		serviceName: "ASR",
		methodName:  "StartTask",
		payload:     `{}`,
		requestID:   uuid.NewString(),
	}
	if err := s.send(startTask); err != nil {
		conn.Close()
		return err
	}

	go s.receiveLoop()

	select {
	case <-s.waitPhase(phaseSessionIdle):
	case <-time.After(5 * time.Second):
		return fmt.Errorf("doubaoime: timeout awaiting TaskStarted")
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.failed() {
		msg := s.failureMessage()
		if !retried && isAuthFailure(msg) {
			s.store.Clear()
			s.connMu.Lock()
			s.conn.Close()
			s.conn = nil
			s.connMu.Unlock()
			// Wait for the first connection's receiveLoop to exit, then give
			// the retry fresh channels so its stale result and closed doneCh
			// do not leak into the new attempt.
			<-s.doneCh
			s.resultCh = make(chan result, 1)
			s.doneCh = make(chan struct{})
			s.setPhase(phaseTaskIdle)
			return s.handshake(ctx, true)
		}
		return fmt.Errorf("doubaoime: task failed: %s", msg)
	}

	audioCfg := map[string]any{
		"sample_rate": audio.TargetSampleRate, "channel": 1, "format": "opus",
	}
	if len(s.dictionary) > 0 {
		audioCfg["hotwords"] = s.dictionary
	}
	payload, err := json.Marshal(map[string]any{"timestamp_ms": nowMillis(), "extra": audioCfg})
	if err != nil {
		return err
	}

	startSession := asrRequest{
		token:       creds.Token,
		serviceName: "ASR",
		methodName:  "StartSession",
		payload:     string(payload),
		requestID:   uuid.NewString(),
	}
	s.setPhase(phaseWaitSessionStarted)
	if err := s.send(startSession); err != nil {
		return err
	}

	select {
	case <-s.waitPhase(phaseStreaming):
	case <-time.After(5 * time.Second):
		return fmt.Errorf("doubaoime: timeout awaiting SessionStarted")
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.failed() {
		return fmt.Errorf("doubaoime: session failed: %s", s.failureMessage())
	}

	return nil
}

// SendChunk Opus-encodes one 200ms PCM16 frame at 20ms sub-frame
// granularity and transmits each as a TaskRequest.
func (s *Session) SendChunk(frame []int16) error {
	for off := 0; off+opusFrameLen <= len(frame); off += opusFrameLen {
		sub := frame[off : off+opusFrameLen]

		encoded := make([]byte, 4000)
		n, err := s.encoder.Encode(sub, encoded)
		if err != nil {
			return fmt.Errorf("doubaoime: opus encode: %w", err)
		}

		state := FrameMiddle
		if s.frameIndex == 0 {
			state = FrameFirst
		}
		s.frameIndex++

		req := asrRequest{
			serviceName: "ASR",
			methodName:  "TaskRequest",
			payload:     fmt.Sprintf(`{"timestamp_ms":%d,"extra":{}}`, nowMillis()),
			audioData:   encoded[:n],
			requestID:   uuid.NewString(),
			frameState:  state,
		}
		if err := s.send(req); err != nil {
			return err
		}
	}
	return nil
}

// Finish sends the terminal TaskRequest with FrameLast and then the
// FinishSession control message.
func (s *Session) Finish() error {
	last := asrRequest{
		serviceName: "ASR",
		methodName:  "TaskRequest",
		payload:     fmt.Sprintf(`{"timestamp_ms":%d,"extra":{}}`, nowMillis()),
		requestID:   uuid.NewString(),
		frameState:  FrameLast,
	}
	if err := s.send(last); err != nil {
		return err
	}

	s.setPhase(phaseClosing)
	finish := asrRequest{
		serviceName: "ASR",
		methodName:  "FinishSession",
		payload:     `{}`,
		requestID:   uuid.NewString(),
	}
	return s.send(finish)
}

// AwaitResult blocks for SessionFinished or timeout. If the socket closes
// without SessionFinished, the most recent interim result is returned as
// a success rather than an error, per spec.md section 4.2.3.
func (s *Session) AwaitResult(ctx context.Context) (string, error) {
	select {
	case r := <-s.resultCh:
		return r.text, r.err
	case <-ctx.Done():
		s.mu.Lock()
		text := s.interim
		s.mu.Unlock()
		return text, ctx.Err()
	}
}

func (s *Session) Close() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) send(req asrRequest) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("doubaoime: send on closed session")
	}
	return conn.WriteMessage(websocket.BinaryMessage, req.encode())
}

func (s *Session) setPhase(p sessionPhase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Session) failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase == phaseFailed
}

func (s *Session) failureMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFailure
}

// waitPhase returns a channel that closes once the session reaches target
// or phaseFailed. It polls rather than using a dedicated broadcast channel
// per transition, matching the coarse granularity the state machine needs.
func (s *Session) waitPhase(target sessionPhase) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			s.mu.Lock()
			p := s.phase
			s.mu.Unlock()
			if p == target || p == phaseFailed {
				close(ch)
				return
			}
		}
	}()
	return ch
}

func (s *Session) receiveLoop() {
	defer func() {
		s.mu.Lock()
		text := s.interim
		done := s.phase == phaseDone
		s.mu.Unlock()
		if !done {
			select {
			case s.resultCh <- result{text: text}:
			default:
			}
		}
		close(s.doneCh)
	}()

	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		resp, err := decodeResponse(data)
		if err != nil {
			continue
		}

		switch resp.messageType {
		case msgTaskStarted:
			s.setPhase(phaseSessionIdle)
		case msgTaskFailed:
			s.setFailure(resp.statusMessage)
		case msgSessionStarted:
			s.setPhase(phaseStreaming)
		case msgSessionFailed:
			s.setFailure(resp.statusMessage)
		case msgSessionFinished:
			s.setPhase(phaseDone)
			s.mu.Lock()
			text := s.interim
			s.mu.Unlock()
			select {
			case s.resultCh <- result{text: text}:
			default:
			}
			return
		default:
			if resp.resultJSON != "" {
				s.applyResult(resp.resultJSON)
			}
		}
	}
}

func (s *Session) setFailure(msg string) {
	s.mu.Lock()
	s.phase = phaseFailed
	s.lastFailure = msg
	s.mu.Unlock()
}

// applyResult extracts the final or interim transcript from result_json's
// {results:[{text, is_interim, is_vad_finished, extra:{nonstream_result}}]}
// shape.
func (s *Session) applyResult(resultJSON string) {
	var parsed struct {
		Results []struct {
			Text          string `json:"text"`
			IsInterim     bool   `json:"is_interim"`
			IsVadFinished bool   `json:"is_vad_finished"`
			Extra         struct {
				NonstreamResult bool `json:"nonstream_result"`
			} `json:"extra"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(resultJSON), &parsed); err != nil {
		return
	}

	for _, r := range parsed.Results {
		isFinal := r.Extra.NonstreamResult || (!r.IsInterim && r.IsVadFinished)
		if isFinal || r.Text != "" {
			s.mu.Lock()
			s.interim = r.Text
			s.mu.Unlock()
		}
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
