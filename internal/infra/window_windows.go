//go:build windows

package infra

import (
	"fmt"
	"sync"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

const wsVisible = 0x10000000

var gwlStyle int32 = -16

// Callbacks are a limited resource; one is created for the process and
// enumerations are serialized.
var (
	enumMu       sync.Mutex
	enumWindows  []domain.Window
	enumCallback = windows.NewCallback(collectWindow)
)

// Win32WindowLister enumerates top-level windows with EnumWindows.
type Win32WindowLister struct {
	logger *zap.Logger
}

// NewWindowLister returns the platform window lister.
func NewWindowLister(logger *zap.Logger) domain.WindowLister {
	return &Win32WindowLister{logger: logger}
}

// Windows returns all top-level windows.
func (l *Win32WindowLister) Windows() ([]domain.Window, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumWindows = nil
	ret, _, err := procEnumWindows.Call(enumCallback, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows failed: %w", err)
	}
	out := enumWindows
	enumWindows = nil
	l.logger.Debug("enumerated windows", zap.Int("count", len(out)))
	return out, nil
}

func collectWindow(hwnd uintptr, _ uintptr) uintptr {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))

	visible, _, _ := procIsWindowVisible.Call(hwnd)
	style, _, _ := procGetWindowLongW.Call(hwnd, uintptr(gwlStyle))

	var rect windows.Rect
	procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect)))

	enumWindows = append(enumWindows, domain.Window{
		PID:          int(pid),
		Title:        windowText(hwnd),
		Visible:      visible != 0,
		StyleVisible: uint32(style)&wsVisible != 0,
		Width:        int(rect.Right - rect.Left),
		Height:       int(rect.Bottom - rect.Top),
	})
	return 1 // continue enumeration
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

// Ensure Win32WindowLister implements domain.WindowLister.
var _ domain.WindowLister = (*Win32WindowLister)(nil)
