// Package audio wraps PortAudio capture into a fixed-size-frame streaming
// pipeline: multi-channel device audio is downmixed to mono, resampled to
// 16kHz, and emitted as 200ms (3200-sample) AudioFrames on a bounded,
// non-blocking channel, while the full session is simultaneously retained
// for WAV-encoded HTTP fallback.
package audio

import (
	"log"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/quietkey/pushtotalk/internal/wav"
)

const (
	// TargetSampleRate is the sample rate every ASR provider expects.
	TargetSampleRate = 16000
	// FrameSamples is 200ms of mono 16kHz audio — one AudioFrame.
	FrameSamples = 3200
	// deviceBufferFrames is the PortAudio callback buffer size, expressed in
	// per-channel sample frames.
	deviceBufferFrames = 1024
	// chunkChanCapacity bounds the outbound frame channel; once full, new
	// frames are dropped rather than blocking the capture callback.
	chunkChanCapacity = 50
)

// Recorder captures from the default input device and emits fixed-size
// mono 16kHz PCM16 frames while retaining the full recording for fallback.
type Recorder struct {
	mu          sync.Mutex
	recording   bool
	stream      *portaudio.Stream
	streamWg    sync.WaitGroup
	stopChan    chan struct{}

	deviceRate     float64
	deviceChannels int

	pending  []float32 // resampled mono samples awaiting frame emission
	full     []float32 // entire resampled mono recording, for WAV fallback

	frames chan []int16
}

// NewRecorder constructs an idle Recorder. Call Start to begin capturing;
// the returned frame channel (via Frames) is valid only between Start and
// the point where Stop's caller has drained it.
func NewRecorder() *Recorder {
	return &Recorder{
		stopChan: make(chan struct{}),
	}
}

// IsRecording reports whether a capture session is active.
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Start opens the default input device and begins streaming fixed-size
// frames on the returned channel. The channel is closed when Stop has
// fully drained the capture callback.
func (r *Recorder) Start() (<-chan []int16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recording {
		return nil, nil
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, err
	}

	channels := device.MaxInputChannels
	if channels < 1 {
		channels = 1
	}
	if channels > 2 {
		channels = 2
	}

	params := portaudio.LowLatencyParameters(device, nil)
	params.Input.Channels = channels
	params.SampleRate = device.DefaultSampleRate
	params.FramesPerBuffer = deviceBufferFrames

	r.deviceRate = device.DefaultSampleRate
	r.deviceChannels = channels
	r.pending = r.pending[:0]
	r.full = r.full[:0]
	r.recording = true
	r.stopChan = make(chan struct{})
	r.frames = make(chan []int16, chunkChanCapacity)

	in := make([]float32, deviceBufferFrames*channels)
	stream, err := portaudio.OpenStream(params, &in)
	if err != nil {
		r.recording = false
		return nil, err
	}
	r.stream = stream

	if err := stream.Start(); err != nil {
		r.recording = false
		stream.Close()
		r.stream = nil
		return nil, err
	}

	r.streamWg.Add(1)
	go r.captureLoop(in)

	return r.frames, nil
}

// Stop halts capture, lets in-flight callbacks settle, flushes any
// remaining sub-frame samples into the retained buffer (so even a
// recording shorter than 200ms finalizes correctly), and returns the full
// session as a WAV-encoded byte slice for HTTP fallback. The 200ms+100ms
// sleep pair gives PortAudio's own callback thread time to finish a buffer
// already in flight before the stream is torn down.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil
	}
	r.recording = false
	close(r.stopChan)
	r.mu.Unlock()

	time.Sleep(200 * time.Millisecond)
	r.streamWg.Wait()
	time.Sleep(100 * time.Millisecond)

	r.mu.Lock()
	if r.stream != nil {
		r.stream.Stop()
		r.stream.Close()
		r.stream = nil
	}
	full := append([]float32(nil), r.full...)
	close(r.frames)
	r.mu.Unlock()

	samples := f32ToI16(full)
	return wav.Encode(samples, TargetSampleRate)
}

func (r *Recorder) captureLoop(in []float32) {
	defer r.streamWg.Done()

	dropping := false
	for {
		select {
		case <-r.stopChan:
			return
		default:
		}

		r.mu.Lock()
		stream := r.stream
		r.mu.Unlock()
		if stream == nil {
			return
		}

		if err := stream.Read(); err != nil {
			select {
			case <-r.stopChan:
			default:
				log.Printf("audio: stream read error: %v", err)
			}
			return
		}

		mono := toMono(in, r.deviceChannels)
		resampled := resample(mono, r.deviceRate, TargetSampleRate)

		r.mu.Lock()
		r.full = append(r.full, resampled...)
		r.pending = append(r.pending, resampled...)

		for len(r.pending) >= FrameSamples {
			chunk := r.pending[:FrameSamples]
			r.pending = append([]float32(nil), r.pending[FrameSamples:]...)

			frame := f32ToI16(chunk)
			select {
			case r.frames <- frame:
				dropping = false
			default:
				if !dropping {
					log.Printf("audio: frame channel full, dropping frame")
					dropping = true
				}
			}
		}
		r.mu.Unlock()
	}
}

// toMono downmixes interleaved multi-channel samples via per-frame
// arithmetic mean.
func toMono(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return append([]float32(nil), interleaved...)
	}

	frameCount := len(interleaved) / channels
	out := make([]float32, frameCount)
	for i := 0; i < frameCount; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// resample performs linear interpolation from fromRate to toRate.
func resample(input []float32, fromRate, toRate float64) []float32 {
	if len(input) == 0 || fromRate == toRate {
		return append([]float32(nil), input...)
	}

	ratio := fromRate / toRate
	outLen := int(float64(len(input)) / ratio)
	out := make([]float32, outLen)

	for i := 0; i < outLen; i++ {
		srcIdx := float64(i) * ratio
		idxFloor := int(srcIdx)
		idxCeil := idxFloor + 1
		if idxCeil >= len(input) {
			idxCeil = len(input) - 1
		}
		frac := float32(srcIdx - float64(idxFloor))
		out[i] = input[idxFloor]*(1-frac) + input[idxCeil]*frac
	}
	return out
}

// f32ToI16 converts float32 samples in [-1, 1] to saturating int16 PCM.
func f32ToI16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := s * 32767
		switch {
		case v > 32767:
			v = 32767
		case v < -32767:
			v = -32767
		}
		out[i] = int16(v)
	}
	return out
}

// Initialize starts the PortAudio runtime; call once at application
// startup.
func Initialize() error {
	return portaudio.Initialize()
}

// Terminate shuts the PortAudio runtime down; call once at application
// exit.
func Terminate() {
	portaudio.Terminate()
}
