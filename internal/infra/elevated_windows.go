//go:build windows

package infra

import "golang.org/x/sys/windows"

// IsElevated reports whether the process token is elevated (Administrator).
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
