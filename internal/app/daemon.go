// Package app wires every subsystem into one running process: load
// config, build the ASR router, start the mute manager and hotkey
// listener, and run until a shutdown signal arrives. Structurally this
// mirrors the teacher's own internal/app/daemon.go (Initialize/Run/
// Cleanup, signal.Notify shutdown) generalized from its single-provider,
// single-hotkey shape to the dual-hotkey, multi-provider one SPEC_FULL.md
// describes.
package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quietkey/pushtotalk/internal/asr"
	"github.com/quietkey/pushtotalk/internal/asr/doubao"
	"github.com/quietkey/pushtotalk/internal/asr/doubaoime"
	"github.com/quietkey/pushtotalk/internal/asr/qwen"
	"github.com/quietkey/pushtotalk/internal/asr/sensevoice"
	"github.com/quietkey/pushtotalk/internal/audio"
	"github.com/quietkey/pushtotalk/internal/config"
	"github.com/quietkey/pushtotalk/internal/dictionary"
	"github.com/quietkey/pushtotalk/internal/hotkeys"
	"github.com/quietkey/pushtotalk/internal/metrics"
	"github.com/quietkey/pushtotalk/internal/mute"
	"github.com/quietkey/pushtotalk/internal/recording"
	"github.com/quietkey/pushtotalk/internal/tray"
	"github.com/quietkey/pushtotalk/internal/version"
)

const (
	maxDictionaryEntries = 200
	maxDictionaryChars   = 4000
)

// Daemon owns every process-lifetime subsystem: the persisted config, the
// ASR router, the mute manager, the hotkey listener, and the recording
// controller that ties them together for each session.
type Daemon struct {
	cfg *config.Config

	recorder       *audio.Recorder
	muteManager    *mute.Manager
	hotkeyManager  *hotkeys.Manager
	controller     *recording.Controller
	metricsManager *metrics.MetricsManager
	credStore      *doubaoime.Store
}

// NewDaemon constructs an un-initialized Daemon; call Initialize before Run.
func NewDaemon() *Daemon {
	return &Daemon{
		credStore: doubaoime.NewStore(),
	}
}

// Initialize loads configuration, resolves API credentials, and wires the
// ASR router, mute manager, recorder, recording controller, and hotkey
// listener. It does not start polling — call Run for that.
func (d *Daemon) Initialize() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}
	d.cfg = cfg

	if cfg.AsrProvider == string(asr.ProviderQwen) && cfg.QwenAPIKey == "" {
		key, err := config.ResolveQwenKey()
		if err != nil {
			return fmt.Errorf("failed to resolve Qwen API key: %v", err)
		}
		cfg.QwenAPIKey = key
	}

	statsDir, err := config.StatsDir()
	if err != nil {
		return fmt.Errorf("failed to resolve metrics directory: %v", err)
	}
	d.metricsManager, err = metrics.NewMetricsManager(statsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %v", err)
	}

	if err := audio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %v", err)
	}
	d.recorder = audio.NewRecorder()

	d.muteManager = mute.New(cfg.MuteEnabled)

	dualConfig, err := buildHotkeyConfig(cfg)
	if err != nil {
		return fmt.Errorf("invalid hotkey config: %v", err)
	}

	router := d.buildRouter(cfg)

	sink := recording.SinkFunc(d.handleEvent)
	d.controller = recording.NewController(d.recorder, router, d.muteManager, sink, d.currentConfig, d.currentDictionary)

	d.hotkeyManager = hotkeys.NewManager(dualConfig, d.controller)

	return nil
}

func (d *Daemon) currentConfig() *config.Config { return d.cfg }

func (d *Daemon) currentDictionary() []string {
	return dictionary.EntriesToWords(d.cfg.Dictionary)
}

func (d *Daemon) buildRouter(cfg *config.Config) *asr.Router {
	bareDictionary, _ := dictionary.Canonical(cfg.Dictionary, maxDictionaryEntries, maxDictionaryChars)

	router := &asr.Router{
		SessionFactories: make(map[asr.Provider]func() (asr.Session, error)),
		HTTPClients:      make(map[asr.Provider]asr.HTTPClient),
		Active:           asr.Provider(cfg.AsrProvider),
		Fallback:         asr.Provider(cfg.FallbackProvider),
		EnableFallback:   cfg.EnableFallback,
	}

	if cfg.QwenAPIKey != "" {
		router.SessionFactories[asr.ProviderQwen] = func() (asr.Session, error) {
			return qwen.NewRealtimeSession(cfg.QwenAPIKey, ""), nil
		}
		router.HTTPClients[asr.ProviderQwen] = qwen.NewHTTPClient(cfg.QwenAPIKey)
	}

	if cfg.DoubaoAppKey != "" && cfg.DoubaoAccess != "" {
		router.SessionFactories[asr.ProviderDoubao] = func() (asr.Session, error) {
			return doubao.NewRealtimeSession(cfg.DoubaoAppKey, cfg.DoubaoAccess, "zh-CN", bareDictionary), nil
		}
		router.HTTPClients[asr.ProviderDoubao] = doubao.NewHTTPClient(cfg.DoubaoAppKey, cfg.DoubaoAccess, bareDictionary)
	}

	router.SessionFactories[asr.ProviderDoubaoIme] = func() (asr.Session, error) {
		return doubaoime.NewSession(d.credStore, bareDictionary), nil
	}

	if cfg.SenseVoiceKey != "" {
		router.HTTPClients[asr.ProviderSenseVoice] = sensevoice.NewHTTPClient(cfg.SenseVoiceKey)
	}

	return router
}

func buildHotkeyConfig(cfg *config.Config) (hotkeys.DualConfig, error) {
	dictKeys, err := hotkeys.ParseKeys(cfg.DictationHotkey.Keys)
	if err != nil {
		return hotkeys.DualConfig{}, err
	}
	assistKeys, err := hotkeys.ParseKeys(cfg.AssistantHotkey.Keys)
	if err != nil {
		return hotkeys.DualConfig{}, err
	}

	dual := hotkeys.DualConfig{
		Dictation: hotkeys.Config{Keys: dictKeys, Mode: parseMode(cfg.DictationHotkey.Mode)},
		Assistant: hotkeys.Config{Keys: assistKeys, Mode: parseMode(cfg.AssistantHotkey.Mode)},
	}

	if len(cfg.DictationHotkey.ReleaseModeKeys) > 0 {
		lockKeys, err := hotkeys.ParseKeys(cfg.DictationHotkey.ReleaseModeKeys)
		if err != nil {
			return hotkeys.DualConfig{}, err
		}
		dual.ReleaseLock = &hotkeys.Config{Keys: lockKeys, Mode: hotkeys.ModePress}
	}

	if err := dual.Validate(); err != nil {
		return hotkeys.DualConfig{}, err
	}
	return dual, nil
}

func parseMode(mode string) hotkeys.Mode {
	if mode == "toggle" {
		return hotkeys.ModeToggle
	}
	return hotkeys.ModePress
}

// Run starts the hotkey listener and blocks until an interrupt or SIGTERM
// arrives.
func (d *Daemon) Run() error {
	isValid, newVersion := version.CheckVersion()
	if !isValid {
		fmt.Printf("A newer version (%s) is available. %s\n", newVersion, version.UPDATE_MESSAGE)
	}

	d.hotkeyManager.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go tray.Run(func() { sig <- os.Interrupt })

	fmt.Println("PushToTalk daemon started")
	fmt.Printf("Dictation hotkey: %v (%s)\n", d.cfg.DictationHotkey.Keys, d.cfg.DictationHotkey.Mode)
	fmt.Printf("Assistant hotkey: %v (%s)\n", d.cfg.AssistantHotkey.Keys, d.cfg.AssistantHotkey.Mode)
	fmt.Println("Press Ctrl+C to exit")

	<-sig
	fmt.Println("\nShutting down...")
	d.Cleanup()
	return nil
}

// Cleanup releases every process-lifetime resource. Safe to call once,
// after Run returns or on an early-exit path.
func (d *Daemon) Cleanup() {
	if d.hotkeyManager != nil {
		d.hotkeyManager.Stop()
	}
	if d.controller != nil {
		d.controller.CancelTranscription()
	}
	if d.muteManager != nil {
		d.muteManager.StopWatchdog()
	}
	audio.Terminate()
}

func (d *Daemon) handleEvent(event recording.Event) {
	switch event.Kind {
	case recording.EventRecordingStarted:
		log.Printf("[session] recording started")
	case recording.EventRecordingLocked:
		log.Printf("[session] recording locked")
	case recording.EventRecordingStopped:
		log.Printf("[session] recording stopped")
	case recording.EventTranscribing:
		log.Printf("[session] transcribing")
	case recording.EventTranscriptionComplete:
		d.reportSuccess(event)
	case recording.EventTranscriptionCancelled:
		log.Printf("[session] cancelled")
	case recording.EventError:
		log.Printf("[session] error: %s", event.Message)
	}
}

func (d *Daemon) reportSuccess(event recording.Event) {
	fmt.Printf("Pasted: %s\n", event.Result.Text)

	session, err := d.metricsManager.RecordSession(event.Result.Text, event.Duration)
	if err != nil {
		log.Printf("[session] metrics record failed: %v", err)
		return
	}

	today, err := d.metricsManager.GetTodayStats()
	if err != nil {
		log.Printf("[session] metrics fetch failed: %v", err)
		return
	}

	formatter := metrics.NewStatsFormatter()
	for _, line := range formatter.FormatSessionSummaryLines(session, today) {
		fmt.Println(line)
	}
}
