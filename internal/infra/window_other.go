//go:build !windows

package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
)

// NewWindowLister returns the platform window lister.
func NewWindowLister(logger *zap.Logger) domain.WindowLister {
	return NewWmctrlWindowLister(&RealCommandRunner{}, logger)
}
