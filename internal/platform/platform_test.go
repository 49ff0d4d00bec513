package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestIsPasteChord verifies the chord decision table
func TestIsPasteChord(t *testing.T) {
	tests := []struct {
		name    string
		isV     bool
		primary bool
		want    bool
	}{
		{"modifier plus V", true, true, true},
		{"V without modifier", true, false, false},
		{"modifier without V", false, true, false},
		{"neither", false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPasteChord(tt.isV, tt.primary))
		})
	}
}

// TestStub_IsInert verifies the fallback provider never triggers the
// monitor: constant revision, unknown frontmost, no interception
func TestStub_IsInert(t *testing.T) {
	s := NewStub()

	r1, err := s.ClipboardRevision()
	assert.NoError(t, err)
	r2, err := s.ClipboardRevision()
	assert.NoError(t, err)
	assert.Equal(t, r1, r2, "stub revision must never advance")

	app, err := s.FrontmostApp()
	assert.NoError(t, err)
	assert.True(t, app.IsUnknown())

	assert.False(t, s.InterceptionPermitted())
}

// TestNoopInterceptor verifies install/remove/service are safe
func TestNoopInterceptor(t *testing.T) {
	in := NewStub().NewInterceptor()

	assert.NoError(t, in.Install())
	in.Service(time.Millisecond)
	in.Remove()
	in.Remove()
}
