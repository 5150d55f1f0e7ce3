//go:build linux

package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// NewInputSources returns the platform input sources.
func NewInputSources(logger *zap.Logger) ([]domain.InputSource, error) {
	return []domain.InputSource{NewEvdevSource(DefaultEvdevDir, logger)}, nil
}
