//go:build !windows

package hotkeys

// isDown always reports false outside Windows; the core's poll loop
// depends on GetAsyncKeyState, which has no non-Windows equivalent in
// scope for this tool (see spec.md's Non-goals).
func isDown(vk VK) bool {
	return false
}
