package recording

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quietkey/pushtotalk/internal/asr"
	"github.com/quietkey/pushtotalk/internal/audio"
	"github.com/quietkey/pushtotalk/internal/clipboard"
	"github.com/quietkey/pushtotalk/internal/config"
	"github.com/quietkey/pushtotalk/internal/hotkeys"
	"github.com/quietkey/pushtotalk/internal/mute"
	"github.com/quietkey/pushtotalk/internal/pipeline"
	"github.com/quietkey/pushtotalk/internal/wav"
)

const (
	// resultTimeout bounds AwaitResult for every realtime provider except
	// Doubao-IME, whose Opus handshake/registration dance runs longer.
	resultTimeout = 6 * time.Second
	// doubaoImeResultTimeout is the wider allowance for Doubao-IME, per
	// spec.md section 4.5.
	doubaoImeResultTimeout = 15 * time.Second
)

// Controller owns the per-session state a single recording needs and
// sequences Begin/End exactly as spec.md section 4.5 describes. One
// Controller is shared for the process lifetime; only one recording is
// ever in flight at a time, enforced by isRecording plus the
// isProcessingStop CAS gate.
type Controller struct {
	recorder *audio.Recorder
	router   *asr.Router
	mute     *mute.Manager
	sink     Sink

	configFn     func() *config.Config
	dictionaryFn func() []string

	mu            sync.Mutex
	isRecording   bool
	isLocked      bool
	activeTrigger hotkeys.Trigger
	mode          pipeline.Mode

	isProcessingStop atomic.Bool

	focus          clipboard.FocusSnapshot
	selectionGuard *clipboard.Guard
	selectedText   string
	startedAt      time.Time
	frames         <-chan []int16
	session        asr.Session
	sessionErr     error
	senderDone     chan struct{}
}

// NewController wires a Controller to its collaborators. configFn and
// dictionaryFn are called fresh on every Begin/End so a config reload
// mid-session is picked up by the next recording, never the current one.
func NewController(recorder *audio.Recorder, router *asr.Router, muteManager *mute.Manager, sink Sink, configFn func() *config.Config, dictionaryFn func() []string) *Controller {
	return &Controller{
		recorder:     recorder,
		router:       router,
		mute:         muteManager,
		sink:         sink,
		configFn:     configFn,
		dictionaryFn: dictionaryFn,
	}
}

// OnStart implements hotkeys.Handler for press/toggle recordings.
func (c *Controller) OnStart(trigger hotkeys.Trigger) {
	c.begin(trigger, false)
}

// OnStop implements hotkeys.Handler: ends a press/toggle recording, or
// completes a release-lock recording via the software "finish" path.
func (c *Controller) OnStop(trigger hotkeys.Trigger) {
	c.end(trigger, true)
}

// OnLockStart implements hotkeys.Handler for release-lock recordings. The
// recording_locked event fires only after the session has been
// established, per spec.md section 4.5.
func (c *Controller) OnLockStart(trigger hotkeys.Trigger) {
	c.begin(trigger, true)
	c.sink.Emit(Event{Kind: EventRecordingLocked})
}

// OnLockCancel implements hotkeys.Handler: a second press of the
// release-lock hotkey cancels without transcribing.
func (c *Controller) OnLockCancel(trigger hotkeys.Trigger) {
	c.cancel()
}

func (c *Controller) triggerMode(trigger hotkeys.Trigger) pipeline.Mode {
	if trigger == hotkeys.TriggerAssistant {
		return pipeline.ModeAssistant
	}
	return pipeline.ModeNormal
}

func (c *Controller) begin(trigger hotkeys.Trigger, locked bool) {
	c.mu.Lock()
	if c.isRecording {
		c.mu.Unlock()
		return
	}
	c.isRecording = true
	c.isLocked = locked
	c.activeTrigger = trigger
	c.mode = c.triggerMode(trigger)
	c.mu.Unlock()

	c.focus = clipboard.CaptureFocus()

	if c.mode == pipeline.ModeAssistant {
		guard, selected := clipboard.CaptureSelection()
		c.selectionGuard = guard
		c.selectedText = selected
	} else {
		c.selectionGuard = clipboard.NewGuard()
		c.selectedText = ""
	}

	c.startedAt = time.Now()

	c.mute.BeginSession()
	if _, err := c.mute.MuteOtherApps(); err != nil {
		log.Printf("recording: mute other apps failed: %v", err)
	}

	c.sink.Emit(Event{Kind: EventRecordingStarted})

	frames, err := c.recorder.Start()
	if err != nil {
		c.sink.Emit(Event{Kind: EventError, Message: "recording: failed to start capture: " + err.Error()})
		c.mu.Lock()
		c.isRecording = false
		c.isLocked = false
		c.activeTrigger = hotkeys.TriggerNone
		c.mu.Unlock()
		c.mute.EndSession()
		return
	}
	c.frames = frames

	session, err := c.router.NewSession()
	c.session = session
	c.sessionErr = err
	if err != nil {
		log.Printf("recording: realtime session unavailable, will fall back to HTTP: %v", err)
	} else if err := session.Start(context.Background()); err != nil {
		log.Printf("recording: realtime session start failed, will fall back to HTTP: %v", err)
		c.sessionErr = err
		c.session = nil
	}

	c.senderDone = make(chan struct{})
	go c.sendFrames(c.session, c.frames, c.senderDone)
}

func (c *Controller) sendFrames(session asr.Session, frames <-chan []int16, done chan struct{}) {
	defer close(done)
	for frame := range frames {
		if session == nil {
			continue
		}
		if err := session.SendChunk(frame); err != nil {
			log.Printf("recording: send chunk failed: %v", err)
		}
	}
}

// end runs the End sequence. Its bool argument is ignored: a release-lock
// "finish" and every other stop path run the same sequence.
func (c *Controller) end(trigger hotkeys.Trigger, _ bool) {
	if !c.isProcessingStop.CompareAndSwap(false, true) {
		return
	}
	defer c.isProcessingStop.Store(false)

	c.mu.Lock()
	if !c.isRecording {
		c.mu.Unlock()
		return
	}
	mode := c.mode
	c.isRecording = false
	c.isLocked = false
	c.activeTrigger = hotkeys.TriggerNone
	c.mu.Unlock()

	wavBytes := c.recorder.Stop()
	c.sink.Emit(Event{Kind: EventRecordingStopped})

	if c.senderDone != nil {
		<-c.senderDone
	}

	if len(wav.ExtractPCM(wavBytes)) == 0 && c.session == nil {
		c.mute.EndSession()
		if _, err := c.mute.RestoreVolumes(); err != nil {
			log.Printf("recording: restore volumes failed: %v", err)
		}
		c.sink.Emit(Event{Kind: EventTranscriptionCancelled})
		c.releaseSelectionGuard()
		return
	}

	c.sink.Emit(Event{Kind: EventTranscribing})

	text := c.awaitTranscript(wavBytes)

	asrElapsed := time.Since(c.startedAt)
	c.runPipeline(mode, text, asrElapsed)
}

func (c *Controller) awaitTranscript(wavBytes []byte) string {
	ctx := context.Background()

	if c.session != nil {
		timeout := resultTimeout
		if c.router.Active == asr.ProviderDoubaoIme {
			timeout = doubaoImeResultTimeout
		}

		if err := c.session.Finish(); err != nil {
			log.Printf("recording: session finish failed: %v", err)
		} else {
			awaitCtx, cancel := context.WithTimeout(ctx, timeout)
			text, err := c.session.AwaitResult(awaitCtx)
			cancel()
			_ = c.session.Close()
			if err == nil {
				return text
			}
			log.Printf("recording: realtime result failed, falling back to HTTP: %v", err)
		}
	}

	if len(wavBytes) == 0 {
		return ""
	}

	text, err := c.router.TranscribeWithFallback(ctx, wavBytes)
	if err != nil {
		c.sink.Emit(Event{Kind: EventError, Message: err.Error()})
		return ""
	}
	return text
}

func (c *Controller) runPipeline(mode pipeline.Mode, text string, asrElapsed time.Duration) {
	cfg := c.configFn()
	dictionaryEntries := c.dictionaryFn()

	var result pipeline.Result
	var err error

	switch mode {
	case pipeline.ModeAssistant:
		if !cfg.Assistant.Enabled {
			c.releaseSelectionGuard()
			c.mute.EndSession()
			if _, restoreErr := c.mute.RestoreVolumes(); restoreErr != nil {
				log.Printf("recording: restore volumes failed: %v", restoreErr)
			}
			c.sink.Emit(Event{Kind: EventTranscriptionCancelled})
			return
		}
		p := pipeline.NewAssistantPipeline(cfg.Assistant)
		result, err = p.Run(context.Background(), text, c.selectedText, asrElapsed)
	default:
		p := pipeline.NewNormalPipeline(cfg.Llm)
		result, err = p.Run(context.Background(), text, dictionaryEntries, asrElapsed)
	}

	c.mute.EndSession()
	if _, restoreErr := c.mute.RestoreVolumes(); restoreErr != nil {
		log.Printf("recording: restore volumes failed: %v", restoreErr)
	}

	if err != nil {
		c.releaseSelectionGuard()
		c.sink.Emit(Event{Kind: EventError, Message: err.Error()})
		return
	}

	if result.Text == "" {
		c.releaseSelectionGuard()
		c.sink.Emit(Event{Kind: EventTranscriptionCancelled})
		return
	}

	c.insertResult(&result)
}

// insertResult runs the focus-restoration contract from spec.md section
// 4.7: settle, restore, settle again, only then paste.
func (c *Controller) insertResult(result *pipeline.Result) {
	time.Sleep(50 * time.Millisecond)
	c.focus.Restore()
	time.Sleep(100 * time.Millisecond)

	guard := c.selectionGuard
	c.selectionGuard = nil

	if err := clipboard.InsertText(result.Text, guard); err != nil {
		log.Printf("recording: paste failed: %v", err)
		c.sink.Emit(Event{Kind: EventError, Message: "recording: paste failed: " + err.Error()})
		return
	}

	result.Inserted = true
	c.sink.Emit(Event{Kind: EventTranscriptionComplete, Result: *result, Duration: time.Since(c.startedAt)})
}

func (c *Controller) releaseSelectionGuard() {
	if c.selectionGuard != nil {
		c.selectionGuard.Restore()
		c.selectionGuard = nil
	}
}

// FinishLockedRecording completes a release-lock recording via a software
// command (the tray/overlay "finish" action).
func (c *Controller) FinishLockedRecording() {
	c.mu.Lock()
	trigger := c.activeTrigger
	locked := c.isLocked
	c.mu.Unlock()
	if !locked {
		return
	}
	c.end(trigger, true)
}

// cancel stops any in-flight recording without transcribing.
// Safe to call repeatedly.
func (c *Controller) cancel() {
	c.mu.Lock()
	if !c.isRecording {
		c.mu.Unlock()
		return
	}
	c.isRecording = false
	c.isLocked = false
	c.activeTrigger = hotkeys.TriggerNone
	c.mu.Unlock()

	c.recorder.Stop()
	if c.senderDone != nil {
		<-c.senderDone
	}
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
	}
	c.releaseSelectionGuard()

	c.mute.EndSession()
	if _, err := c.mute.RestoreVolumes(); err != nil {
		log.Printf("recording: restore volumes failed: %v", err)
	}

	c.sink.Emit(Event{Kind: EventTranscriptionCancelled})
}

// CancelTranscription is the exported form of cancel, for the software
// cancel command (tray/overlay) as well as release-lock double-press.
func (c *Controller) CancelTranscription() {
	c.cancel()
}
