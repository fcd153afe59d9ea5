//go:build !darwin || !cgo

package infra

import (
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/resmenu/internal/domain"
)

// NewNativeBackend is only available on macOS with cgo; use the simulator
// backend elsewhere.
func NewNativeBackend(logger *zap.Logger) (domain.DisplayBackend, error) {
	logger.Debug("native display backend unavailable on this build")
	return nil, domain.ErrUnsupportedPlatform
}
