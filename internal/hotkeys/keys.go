package hotkeys

import "strings"

// VK is a Win32 virtual-key code.
type VK uint16

// Virtual-key constants needed by hotkey configuration and modifier
// strictness checking. Named after original_source's win32_input.rs
// VK_* constants.
const (
	VkControl VK = 0x11
	VkLControl VK = 0xA2
	VkRControl VK = 0xA3
	VkShift    VK = 0x10
	VkLShift   VK = 0xA0
	VkRShift   VK = 0xA1
	VkMenu     VK = 0x12 // Alt
	VkLMenu    VK = 0xA4
	VkRMenu    VK = 0xA5
	VkLWin     VK = 0x5B
	VkRWin     VK = 0x5C
	VkSpace    VK = 0x20
	VkF2       VK = 0x71
)

// modifierPairs enumerates the 8 modifier virtual keys checked for strict
// matching, grouped by logical modifier (left/right Ctrl, Shift, Alt,
// Meta), per spec.md section 4.4.
var modifierPairs = [][2]VK{
	{VkLControl, VkRControl},
	{VkLShift, VkRShift},
	{VkLMenu, VkRMenu},
	{VkLWin, VkRWin},
}

// allModifiers is the flat set of the 8 modifier keys.
var allModifiers = func() map[VK]bool {
	m := make(map[VK]bool, 8)
	for _, pair := range modifierPairs {
		m[pair[0]] = true
		m[pair[1]] = true
	}
	return m
}()

// namedKeys maps the lowercase config names used in HotkeyConfig.Keys to
// virtual-key codes.
var namedKeys = map[string]VK{
	"ctrl":    VkControl,
	"control": VkControl,
	"lctrl":   VkLControl,
	"rctrl":   VkRControl,
	"shift":   VkShift,
	"lshift":  VkLShift,
	"rshift":  VkRShift,
	"alt":     VkMenu,
	"lalt":    VkLMenu,
	"ralt":    VkRMenu,
	"win":     VkLWin,
	"lwin":    VkLWin,
	"rwin":    VkRWin,
	"meta":    VkLWin,
	"space":   VkSpace,
	"f2":      VkF2,
}

// ParseKeys resolves a HotkeyConfig's string key names into virtual-key
// codes, one code per name. strictDown uses modifierGroup below so that the
// left and right keys of a named modifier never count as extra modifiers.
func ParseKeys(names []string) ([]VK, error) {
	out := make([]VK, 0, len(names))
	for _, name := range names {
		vk, ok := namedKeys[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, &UnknownKeyError{Name: name}
		}
		out = append(out, vk)
	}
	return out, nil
}

// UnknownKeyError reports a config key name with no virtual-key mapping.
type UnknownKeyError struct{ Name string }

func (e *UnknownKeyError) Error() string {
	return "hotkeys: unknown key name " + e.Name
}

// modifierGroup returns the left/right pair vk belongs to, if any, so a
// hotkey naming the generic "ctrl" matches either physical key.
func modifierGroup(vk VK) ([2]VK, bool) {
	switch vk {
	case VkControl, VkLControl, VkRControl:
		return modifierPairs[0], true
	case VkShift, VkLShift, VkRShift:
		return modifierPairs[1], true
	case VkMenu, VkLMenu, VkRMenu:
		return modifierPairs[2], true
	case VkLWin, VkRWin:
		return modifierPairs[3], true
	}
	return [2]VK{}, false
}
