//go:build windows

package config

import "golang.org/x/sys/windows"

// atomicReplace swaps tmp into place at dst using MoveFileExW, which on
// Windows is the one API that replaces an existing file in a single
// filesystem operation. MOVEFILE_WRITE_THROUGH blocks until the replace has
// hit disk so a crash immediately afterward can't observe a half-written
// config.
func atomicReplace(tmp, dst string) error {
	tmp16, err := windows.UTF16PtrFromString(tmp)
	if err != nil {
		return err
	}
	dst16, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(tmp16, dst16, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}
