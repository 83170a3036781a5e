package audio

import (
	"log"

	"github.com/gen2brain/beeep"
)

// PlayBeep plays a short audio cue for recording start/stop. beeep already
// routes to the platform-native sound API; on the rare failure we fall back
// to the Windows system beep instead of silently dropping the cue.
func PlayBeep(beepType string) {
	switch beepType {
	case "start":
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration/2); err != nil {
			log.Printf("audio: start beep failed: %v", err)
			systemBeepFallback(880, 120)
		}
	case "stop":
		if err := beeep.Beep(beeep.DefaultFreq*2, beeep.DefaultDuration/3); err != nil {
			log.Printf("audio: stop beep failed: %v", err)
			systemBeepFallback(440, 80)
		}
	}
}
