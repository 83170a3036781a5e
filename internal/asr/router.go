package asr

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Provider names a configured ASR backend.
type Provider string

const (
	ProviderQwen       Provider = "qwen"
	ProviderDoubao     Provider = "doubao"
	ProviderDoubaoIme  Provider = "doubao_ime"
	ProviderSenseVoice Provider = "sensevoice"
)

// Router picks the active realtime session, and on failure (handshake,
// mid-stream, or timeout) falls back to HTTP transcription of the
// retained WAV buffer — racing two HTTP providers when fallback is
// enabled and the provider pair supports it.
type Router struct {
	// SessionFactories builds a fresh realtime Session for a provider; only
	// populated for providers with a realtime protocol.
	SessionFactories map[Provider]func() (Session, error)
	// HTTPClients holds one HTTPClient per provider with an HTTP endpoint.
	// Doubao-IME has none, per spec.md section 4.3.
	HTTPClients map[Provider]HTTPClient

	Active   Provider
	Fallback Provider
	// EnableFallback toggles race mode for HTTP-mode transcription and the
	// retry path after a failed realtime session.
	EnableFallback bool
}

// NewSession opens the realtime session for the active provider.
func (r *Router) NewSession() (Session, error) {
	factory, ok := r.SessionFactories[r.Active]
	if !ok {
		return nil, fmt.Errorf("asr: no realtime session for provider %q", r.Active)
	}
	return factory()
}

// SupportsHTTP reports whether provider has an HTTP transcription
// endpoint. Doubao-IME does not.
func (r *Router) SupportsHTTP(p Provider) bool {
	_, ok := r.HTTPClients[p]
	return ok
}

// TranscribeWithFallback re-submits a retained WAV buffer after a
// realtime session failure. If the active provider has no HTTP endpoint
// (Doubao-IME), the configured fallback provider is used
// unconditionally, per spec.md section 4.3.
func (r *Router) TranscribeWithFallback(ctx context.Context, wavBytes []byte) (string, error) {
	if r.EnableFallback && r.raceEligible() {
		return r.race(ctx, wavBytes, r.Active, r.Fallback)
	}

	provider := r.Active
	if !r.SupportsHTTP(provider) {
		provider = r.Fallback
	}

	client, ok := r.HTTPClients[provider]
	if !ok {
		return "", fmt.Errorf("asr: no HTTP client for provider %q", provider)
	}
	return client.TranscribeWAV(ctx, wavBytes)
}

// TranscribeWithAvailableClients is the HTTP-mode entry point (no realtime
// attempt at all): it either calls the single active HTTP client, or races
// active+fallback when fallback is enabled, per the dispatch table in
// spec.md section 4.9. On total failure it returns an aggregated error
// naming every provider tried.
func (r *Router) TranscribeWithAvailableClients(ctx context.Context, wavBytes []byte) (string, error) {
	if r.EnableFallback && r.Fallback != "" && r.Fallback != r.Active {
		return r.race(ctx, wavBytes, r.Active, r.Fallback)
	}

	client, ok := r.HTTPClients[r.Active]
	if !ok {
		return "", fmt.Errorf("asr: no HTTP client for provider %q", r.Active)
	}
	text, err := client.TranscribeWAV(ctx, wavBytes)
	if err != nil {
		return "", fmt.Errorf("asr: %s failed: %w", r.Active, err)
	}
	return text, nil
}

// raceEligible matches the provider pairs spec.md section 4.9 calls out
// for race mode: {Qwen, SenseVoice} or {Doubao, SenseVoice}.
func (r *Router) raceEligible() bool {
	if r.Fallback != ProviderSenseVoice {
		return false
	}
	return r.Active == ProviderQwen || r.Active == ProviderDoubao
}

type raceResult struct {
	provider Provider
	text     string
	err      error
}

// race dispatches both HTTP calls concurrently on the same audio blob and
// returns the first successful transcript. The losing call is allowed to
// complete but its result is discarded; its error is not surfaced unless
// both calls fail.
func (r *Router) race(ctx context.Context, wavBytes []byte, first, second Provider) (string, error) {
	providers := []Provider{first, second}
	resultCh := make(chan raceResult, len(providers))

	var wg sync.WaitGroup
	for _, p := range providers {
		client, ok := r.HTTPClients[p]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(p Provider, client HTTPClient) {
			defer wg.Done()
			text, err := client.TranscribeWAV(ctx, wavBytes)
			resultCh <- raceResult{provider: p, text: text, err: err}
		}(p, client)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var failures []string
	for res := range resultCh {
		if res.err == nil {
			return res.text, nil
		}
		failures = append(failures, fmt.Sprintf("%s: %v", res.provider, res.err))
	}

	if len(failures) == 0 {
		return "", fmt.Errorf("asr: no eligible provider for race")
	}
	return "", fmt.Errorf("asr: all providers failed: %s", strings.Join(failures, "; "))
}
