// Package config loads and persists the application's JSON configuration
// and exposes the API-key bootstrap chain (env var -> .env -> config file ->
// interactive prompt) the daemon uses on first run.
package config

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const (
	configDirName  = "PushToTalk"
	configFileName = "config.json"
	statsSubDir    = "usage_stats"
)

// Lock serializes every read-modify-write of the persisted configuration.
// Every mutation follows lock -> read -> mutate -> write -> unlock.
var Lock sync.Mutex

// LlmPreset is a named polish style the user can switch between.
type LlmPreset struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SystemPrompt string `json:"system_prompt"`
}

// LlmConfig configures the optional dictation-polish LLM call.
type LlmConfig struct {
	Endpoint            string      `json:"endpoint"`
	APIKey              string      `json:"api_key"`
	Model               string      `json:"model"`
	Enabled             bool        `json:"enabled"`
	DictionaryEnhance   bool        `json:"dictionary_enhance"`
	Presets             []LlmPreset `json:"presets"`
	ActivePresetID      string      `json:"active_preset_id"`
}

// AssistantConfig configures the AI-assistant hotkey mode.
type AssistantConfig struct {
	Enabled                    bool      `json:"enabled"`
	Llm                        LlmConfig `json:"llm"`
	QaSystemPrompt             string    `json:"qa_system_prompt"`
	TextProcessingSystemPrompt string    `json:"text_processing_system_prompt"`
}

// HotkeyConfig describes one configured hotkey chord and its interaction mode.
type HotkeyConfig struct {
	Keys             []string `json:"keys"`
	Mode             string   `json:"mode"` // "press" | "toggle"
	ReleaseModeKeys  []string `json:"release_mode_keys,omitempty"`
}

// Config is the full persisted application configuration.
type Config struct {
	AsrProvider      string       `json:"asr_provider"`
	FallbackProvider string       `json:"fallback_provider"`
	EnableFallback   bool         `json:"enable_fallback"`
	DictationHotkey  HotkeyConfig `json:"dictation_hotkey"`
	AssistantHotkey  HotkeyConfig `json:"assistant_hotkey"`
	Llm              LlmConfig    `json:"llm"`
	Assistant        AssistantConfig `json:"assistant"`
	Dictionary       []string     `json:"dictionary"`
	MuteEnabled      bool         `json:"mute_enabled"`
	TypingSpeedWPM   int          `json:"typing_speed_wpm,omitempty"`

	QwenAPIKey   string `json:"qwen_api_key,omitempty"`
	DoubaoAppKey string `json:"doubao_app_key,omitempty"`
	DoubaoAccess string `json:"doubao_access_key,omitempty"`
	SenseVoiceKey string `json:"sensevoice_api_key,omitempty"`
}

// Default returns the out-of-the-box configuration.
func Default() *Config {
	return &Config{
		AsrProvider:      "qwen",
		FallbackProvider: "sensevoice",
		EnableFallback:   true,
		DictationHotkey: HotkeyConfig{
			Keys: []string{"ctrl", "win"},
			Mode: "press",
		},
		AssistantHotkey: HotkeyConfig{
			Keys: []string{"alt", "space"},
			Mode: "press",
		},
		MuteEnabled: true,
	}
}

func configDir() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		appData = filepath.Join(home, "AppData", "Roaming")
	}
	return filepath.Join(appData, configDirName), nil
}

func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	return configPath()
}

// StatsDir returns the directory holding daily usage-statistics JSON files.
func StatsDir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, statsSubDir), nil
}

// Load reads the configuration file, returning Default() if it doesn't
// exist yet.
func Load() (*Config, error) {
	Lock.Lock()
	defer Lock.Unlock()

	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists cfg atomically: write to a temp file in the same directory,
// then replace the destination in one filesystem operation so a reader
// never observes a partially-written config.
func Save(cfg *Config) error {
	Lock.Lock()
	defer Lock.Unlock()

	dir, err := configDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}

	return atomicReplace(tmp, path)
}

// promptForKey asks the user to paste a provider API key on first run.
func promptForKey(provider string) (string, error) {
	fmt.Printf("%s API key not found.\n", provider)
	fmt.Printf("Please enter your %s API key: ", provider)

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("failed to read input")
	}

	key := strings.TrimSpace(scanner.Text())
	if key == "" {
		return "", fmt.Errorf("API key cannot be empty")
	}
	return key, nil
}

// ResolveQwenKey follows the env -> .env -> config file -> prompt chain for
// the Qwen (DashScope) API key, persisting a freshly entered key.
func ResolveQwenKey() (string, error) {
	if key := os.Getenv("DASHSCOPE_API_KEY"); key != "" {
		return key, nil
	}
	if err := godotenv.Load(); err == nil {
		if key := os.Getenv("DASHSCOPE_API_KEY"); key != "" {
			return key, nil
		}
	}

	cfg, err := Load()
	if err == nil && cfg.QwenAPIKey != "" {
		return cfg.QwenAPIKey, nil
	}

	key, err := promptForKey("Qwen/DashScope")
	if err != nil {
		return "", err
	}

	cfg, _ = Load()
	cfg.QwenAPIKey = key
	if err := Save(cfg); err != nil {
		fmt.Printf("warning: failed to save API key: %v\n", err)
	}
	return key, nil
}
