//go:build !cgo

package platform

import (
	"go.uber.org/zap"

	"github.com/clipguard/clipguard/internal/domain"
)

// New returns the inert provider when built without cgo; AppKit and
// CoreGraphics are unreachable from a pure-Go binary.
func New(logger *zap.Logger) domain.Capabilities {
	logger.Warn("built without cgo; clipboard monitoring is disabled on this binary")
	return NewStub()
}
