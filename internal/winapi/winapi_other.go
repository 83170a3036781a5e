//go:build !windows

package winapi

import "errors"

type HWND uintptr

var errUnsupported = errors.New("winapi: unsupported outside windows")

func KeyDown(vk uint16) error                 { return errUnsupported }
func KeyUp(vk uint16) error                   { return errUnsupported }
func GetForegroundWindow() HWND               { return 0 }
func SetForegroundWindow(hwnd HWND) bool      { return false }
func IsWindow(hwnd HWND) bool                 { return false }
func GetClipboardText() (string, error)       { return "", errUnsupported }
func SetClipboardText(text string) error      { return errUnsupported }
