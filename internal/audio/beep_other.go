//go:build !windows

package audio

// systemBeepFallback is a no-op off Windows; the product targets Windows
// exclusively and this file exists only to keep the package importable by
// off-Windows tooling.
func systemBeepFallback(freqHz, durationMs uint32) {}
