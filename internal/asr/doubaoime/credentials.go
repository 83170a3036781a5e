package doubaoime

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/quietkey/pushtotalk/internal/asr"
)

const (
	deviceRegisterURL = "https://log.snssdk.com/service/2/device_register/"
	settingsURL       = "https://frontier-audio-ime-ws.doubao.com/service/settings/v3/"
)

// DeviceCredentials are acquired by a two-step HTTP registration and
// reused from a Store until the server rejects them. They are held in
// memory only; nothing writes them to disk.
type DeviceCredentials struct {
	DeviceID    string
	InstallID   string
	Cdid        string
	Openudid    string
	Clientudid  string
	Token       string
}

// Store caches credentials across sessions in memory; the caller is
// responsible for persisting it if a longer-lived cache is desired.
type Store struct {
	mu   sync.Mutex
	creds *DeviceCredentials
}

func NewStore() *Store { return &Store{} }

func (s *Store) Get() *DeviceCredentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

func (s *Store) Set(c *DeviceCredentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = c
}

// Clear drops cached credentials; called when the server rejects a token
// with an auth-flavored failure so the next attempt re-registers.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = nil
}

func randomHex64() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Register performs the two-step device registration: a device_register
// call yielding device_id/install_id, then a settings call yielding the
// session token (asr_config.app_key).
func Register(ctx context.Context) (*DeviceCredentials, error) {
	cdid := uuid.NewString()
	clientudid := uuid.NewString()
	openudid, err := randomHex64()
	if err != nil {
		return nil, err
	}

	client := asr.NewHTTPClient()

	regBody := map[string]any{
		"magic_tag":   "ss_app_log",
		"header": map[string]any{
			"display_name": "豆包输入法",
			"app_version":  "10.5.0",
			"os_version":   "13",
			"device_model": "Pixel 6",
			"device_brand": "google",
			"os":           "Android",
			"cdid":         cdid,
			"openudid":     openudid,
			"clientudid":   clientudid,
		},
	}
	payload, err := json.Marshal(regBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deviceRegisterURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("doubaoime: device_register failed: %w", err)
	}
	defer resp.Body.Close()

	var regResp struct {
		DeviceID  string `json:"device_id"`
		InstallID string `json:"install_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&regResp); err != nil {
		return nil, fmt.Errorf("doubaoime: device_register decode: %w", err)
	}
	if regResp.DeviceID == "" {
		return nil, fmt.Errorf("doubaoime: device_register returned no device_id")
	}

	settingsReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?device_id=%s", settingsURL, regResp.DeviceID), nil)
	if err != nil {
		return nil, err
	}

	settingsResp, err := client.Do(settingsReq)
	if err != nil {
		return nil, fmt.Errorf("doubaoime: settings failed: %w", err)
	}
	defer settingsResp.Body.Close()

	var settings struct {
		AsrConfig struct {
			AppKey string `json:"app_key"`
		} `json:"asr_config"`
	}
	if err := json.NewDecoder(settingsResp.Body).Decode(&settings); err != nil {
		return nil, fmt.Errorf("doubaoime: settings decode: %w", err)
	}

	return &DeviceCredentials{
		DeviceID:   regResp.DeviceID,
		InstallID:  regResp.InstallID,
		Cdid:       cdid,
		Openudid:   openudid,
		Clientudid: clientudid,
		Token:      settings.AsrConfig.AppKey,
	}, nil
}

// isAuthFailure reports whether a failure message names a credential
// problem, per spec.md's "token", "auth", "401", "403" substring match.
func isAuthFailure(msg string) bool {
	lower := strings.ToLower(msg)
	for _, needle := range []string{"token", "auth", "401", "403"} {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}
