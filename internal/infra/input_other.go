//go:build !linux && !windows

package infra

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// NewInputSources returns the platform input sources.
func NewInputSources(logger *zap.Logger) ([]domain.InputSource, error) {
	return nil, fmt.Errorf("input monitoring on %s: %w", runtime.GOOS, domain.ErrUnsupported)
}
