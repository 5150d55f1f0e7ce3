//go:build windows

package infra

import (
	"fmt"
	"unsafe"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// lastInputTick returns the tick count of the most recent input event.
func lastInputTick() (uint32, error) {
	var info lastInputInfo
	info.cbSize = uint32(unsafe.Sizeof(info))

	ret, _, err := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&info)))
	if ret == 0 {
		return 0, fmt.Errorf("GetLastInputInfo failed: %w", err)
	}
	return info.dwTime, nil
}

// NewInputSources returns the platform input sources.
func NewInputSources(logger *zap.Logger) ([]domain.InputSource, error) {
	return []domain.InputSource{NewLastInputPoller(DefaultPollInterval, lastInputTick, logger)}, nil
}
