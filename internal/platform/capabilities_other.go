//go:build !darwin && !windows

package platform

import (
	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
)

// New returns the inert provider on platforms without a native
// clipboard revision counter.
func New(logger *zap.Logger) domain.Capabilities {
	logger.Warn("no native clipboard provider on this platform; monitoring is disabled")
	return NewStub()
}
