// Package sensevoice implements the SiliconFlow-hosted SenseVoiceSmall
// HTTP transcription endpoint, used only as a fallback/race HTTP provider
// (it has no realtime protocol).
package sensevoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/quietkey/pushtotalk/internal/asr"
)

const (
	apiURL = "https://api.siliconflow.cn/v1/audio/transcriptions"
	model  = "FunAudioLLM/SenseVoiceSmall"
)

// HTTPClient calls SenseVoice's multipart transcription endpoint with a
// complete WAV file.
type HTTPClient struct {
	apiKey string
	client *http.Client
}

func NewHTTPClient(apiKey string) *HTTPClient {
	return &HTTPClient{apiKey: apiKey, client: asr.NewHTTPClient()}
}

func (c *HTTPClient) Name() string { return "sensevoice" }

func (c *HTTPClient) TranscribeWAV(ctx context.Context, wavBytes []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("model", model); err != nil {
		return "", err
	}

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(wavBytes); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("sensevoice http: status %d", resp.StatusCode)
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}

	return asr.StripTrailingPunctuation(parsed.Text), nil
}
