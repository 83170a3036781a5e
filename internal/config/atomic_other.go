//go:build !windows

package config

import "os"

// atomicReplace falls back to a plain rename on non-Windows platforms. This
// build tag exists only so the package stays importable for tooling/tests
// run off-Windows; the product itself targets Windows exclusively.
func atomicReplace(tmp, dst string) error {
	return os.Rename(tmp, dst)
}
