// Package doubao implements ByteDance's Doubao "SAUC" binary-framed
// realtime ASR WebSocket protocol and its HTTP flash-recognize sibling.
package doubao

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quietkey/pushtotalk/internal/asr"
)

const (
	realtimeURL  = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_async"
	realtimeRsrc = "volc.seedasr.sauc.duration"
	httpURL      = "https://openspeech.bytedance.com/api/v3/auc/bigmodel/recognize/flash"
	httpResource = "volc.bigasr.auc_turbo"
)

// Message type / flag / serialization / compression nibbles, per the
// bigmodel_async binary framing.
const (
	msgClientFullRequest  uint8 = 0x1
	msgClientAudioRequest uint8 = 0x2

	flagNoSequence  uint8 = 0x0
	flagPosSequence uint8 = 0x1
	flagNegSequence uint8 = 0x2
	flagIsLast      uint8 = 0x2

	serializationNone uint8 = 0x0
	serializationJSON uint8 = 0x1

	compressionNone uint8 = 0x0
	compressionGzip uint8 = 0x1
)

// generateHeader builds the 4-byte Doubao binary frame header: protocol
// version 1 with a 1-dword header, followed by message type/flags and
// serialization/compression nibbles.
func generateHeader(msgType, flags, serialization, compression uint8) []byte {
	return []byte{
		(1 << 4) | 1,
		(msgType << 4) | flags,
		(serialization << 4) | compression,
		0,
	}
}

func gzipCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// buildMessage assembles header + big-endian sequence + big-endian payload
// length + payload. Audio frames are never gzip-compressed — compressing
// them destroys latency and the server rejects it.
func buildMessage(msgType, flags uint8, sequence int32, payload []byte, compression uint8) []byte {
	var body []byte
	if compression == compressionGzip {
		body = gzipCompress(payload)
	} else {
		body = payload
	}

	serialization := serializationNone
	if msgType == msgClientFullRequest {
		serialization = serializationJSON
	}

	header := generateHeader(msgType, flags, serialization, compression)

	out := make([]byte, 0, len(header)+4+4+len(body))
	out = append(out, header...)

	seqBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(seqBuf, uint32(sequence))
	out = append(out, seqBuf...)

	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(body)))
	out = append(out, lenBuf...)

	return append(out, body...)
}

type parsedResponse struct {
	text   string
	isLast bool
}

// parseResponse decodes a server binary frame into its text/is_last pair.
func parseResponse(data []byte) (parsedResponse, error) {
	if len(data) < 4 {
		return parsedResponse{}, fmt.Errorf("doubao: frame too short")
	}

	headerSize := int(data[0]&0x0f) * 4
	messageType := data[1] >> 4
	messageFlags := data[1] & 0x0f
	compression := data[2] & 0x0f

	if headerSize == 0 {
		headerSize = 4
	}

	offset := headerSize

	if messageType == 0xf {
		if offset+4 > len(data) {
			return parsedResponse{}, fmt.Errorf("doubao: truncated error frame")
		}
		code := binary.BigEndian.Uint32(data[offset : offset+4])
		return parsedResponse{}, fmt.Errorf("doubao: server error code %d", code)
	}

	if messageFlags&0x01 != 0 {
		offset += 4 // skip sequence field present on audio-ack frames
	}

	if offset+4 > len(data) {
		return parsedResponse{}, fmt.Errorf("doubao: truncated payload length")
	}
	payloadSize := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	if offset+payloadSize > len(data) {
		return parsedResponse{}, fmt.Errorf("doubao: truncated payload")
	}
	payload := data[offset : offset+payloadSize]

	var raw []byte
	var err error
	if compression == compressionGzip {
		raw, err = gzipDecompress(payload)
		if err != nil {
			return parsedResponse{}, err
		}
	} else {
		raw = payload
	}

	var parsed struct {
		Result struct {
			Text       string `json:"text"`
			Utterances []struct {
				Text     string `json:"text"`
				Definite bool   `json:"definite"`
			} `json:"utterances"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return parsedResponse{}, err
	}

	isLast := messageFlags&flagIsLast != 0
	return parsedResponse{text: parsed.Result.Text, isLast: isLast}, nil
}

// RealtimeSession streams PCM audio over the bigmodel_async WebSocket.
type RealtimeSession struct {
	appKey     string
	accessKey  string
	language   string
	dictionary []string

	conn     *websocket.Conn
	sequence int32

	mu          sync.Mutex
	accumulated string
	resultCh    chan result
}

type result struct {
	text string
	err  error
}

func NewRealtimeSession(appKey, accessKey, language string, dictionary []string) *RealtimeSession {
	return &RealtimeSession{
		appKey:     appKey,
		accessKey:  accessKey,
		language:   language,
		dictionary: dictionary,
		resultCh:   make(chan result, 1),
	}
}

func (s *RealtimeSession) Start(ctx context.Context) error {
	header := http.Header{}
	header.Set("X-Api-App-Key", s.appKey)
	header.Set("X-Api-Access-Key", s.accessKey)
	header.Set("X-Api-Resource-Id", realtimeRsrc)
	header.Set("X-Api-Connect-Id", uuid.NewString())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, realtimeURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("doubao dial failed: %w (status %s)", err, resp.Status)
		}
		return fmt.Errorf("doubao dial failed: %w", err)
	}
	s.conn = conn

	req := map[string]any{
		"user": map[string]any{"uid": s.appKey},
		"audio": map[string]any{
			"format": "raw", "codec": "raw", "rate": 16000, "bits": 16, "channel": 1,
			"language": s.language,
		},
		"request": map[string]any{
			"model_name": "bigmodel", "enable_itn": true, "enable_punc": true,
			"enable_ddc": false, "show_utterances": true, "result_type": "single",
			"vad_segment_duration": 3000, "end_window_size": 800, "force_to_speech_time": 1000,
		},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}

	s.sequence = 1
	frame := buildMessage(msgClientFullRequest, flagPosSequence, s.sequence, payload, compressionGzip)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return err
	}

	go s.receiveLoop()
	return nil
}

// SendChunk sends one uncompressed PCM16 audio frame.
func (s *RealtimeSession) SendChunk(frame []int16) error {
	raw := make([]byte, len(frame)*2)
	for i, v := range frame {
		raw[i*2] = byte(v)
		raw[i*2+1] = byte(v >> 8)
	}

	s.sequence++
	msg := buildMessage(msgClientAudioRequest, flagPosSequence, s.sequence, raw, compressionNone)
	return s.conn.WriteMessage(websocket.BinaryMessage, msg)
}

// Finish sends the terminal empty audio frame. The sequence is
// pre-incremented then negated — reusing the last audio sequence as the
// finish sequence silently drops the finish on the server side. Both the
// sequence-present bit and the negative-sequence bit are set (0x1|0x2),
// matching spec.md section 4.2.2's flags=0x3 for the finish frame.
func (s *RealtimeSession) Finish() error {
	s.sequence++
	lastSeq := -s.sequence
	msg := buildMessage(msgClientAudioRequest, flagPosSequence|flagNegSequence, lastSeq, nil, compressionNone)
	return s.conn.WriteMessage(websocket.BinaryMessage, msg)
}

func (s *RealtimeSession) AwaitResult(ctx context.Context) (string, error) {
	select {
	case r := <-s.resultCh:
		return r.text, r.err
	case <-ctx.Done():
		s.mu.Lock()
		text := s.accumulated
		s.mu.Unlock()
		return text, ctx.Err()
	}
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
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		parsed, err := parseResponse(data)
		if err != nil {
			select {
			case s.resultCh <- result{err: err}:
			default:
			}
			return
		}

		if parsed.text != "" {
			s.mu.Lock()
			s.accumulated = parsed.text
			s.mu.Unlock()
		}

		if parsed.isLast {
			s.mu.Lock()
			text := s.accumulated
			s.mu.Unlock()
			select {
			case s.resultCh <- result{text: text}:
			default:
			}
			return
		}
	}
}

// HTTPClient calls Doubao's flash-recognize endpoint with a full WAV blob.
type HTTPClient struct {
	appKey     string
	accessKey  string
	dictionary []string
	client     *http.Client
}

func NewHTTPClient(appKey, accessKey string, dictionary []string) *HTTPClient {
	return &HTTPClient{appKey: appKey, accessKey: accessKey, dictionary: dictionary, client: asr.NewHTTPClient()}
}

func (c *HTTPClient) Name() string { return "doubao" }

func (c *HTTPClient) TranscribeWAV(ctx context.Context, wavBytes []byte) (string, error) {
	corpus := map[string]any{"context_data": contextData()}
	if len(c.dictionary) > 0 {
		hotwords := make([]map[string]string, len(c.dictionary))
		for i, w := range c.dictionary {
			hotwords[i] = map[string]string{"word": w}
		}
		corpus["hotwords"] = hotwords
	}

	body := map[string]any{
		"user": map[string]any{"uid": c.appKey},
		"audio": map[string]any{
			"data": encodeBase64(wavBytes),
		},
		"request": map[string]any{
			"model_name": "bigmodel", "corpus": corpus, "model_version": "400", "enable_ddc": true,
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
	req.Header.Set("X-Api-App-Key", c.appKey)
	req.Header.Set("X-Api-Access-Key", c.accessKey)
	req.Header.Set("X-Api-Resource-Id", httpResource)
	req.Header.Set("X-Api-Request-Id", uuid.NewString())
	req.Header.Set("X-Api-Sequence", "-1")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.Header.Get("X-Api-Status-Code") != "20000000" {
		return "", fmt.Errorf("doubao http: %s", resp.Header.Get("X-Api-Message"))
	}

	var parsed struct {
		Result struct {
			Text string `json:"text"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	return asr.StripTrailingPunctuation(parsed.Result.Text), nil
}

// contextData supplies example sentences the model uses to bias its
// language model toward the dictation domain.
func contextData() []map[string]string {
	return []map[string]string{
		{"text": "我正在使用 Kubernetes 部署 GPT-4o 和 Claude 模型。"},
		{"text": "今天天气不错，我们去公园走走吧。"},
	}
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
