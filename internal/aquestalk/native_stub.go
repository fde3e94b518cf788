//go:build !aquestalk || !cgo

package aquestalk

import (
	"context"

	"github.com/book-expert/logger"
)

// NativeEngine is only functional in builds with the aquestalk tag and cgo enabled.
type NativeEngine struct{}

// NewNativeEngine reports ErrNativeUnavailable in builds without the aquestalk tag.
func NewNativeEngine(_ string, _ *logger.Logger) (*NativeEngine, error) {
	return nil, ErrNativeUnavailable
}

// SetLicenseKey implements core.LicenseRegistrar.
func (*NativeEngine) SetLicenseKey(_, _ string) error { return ErrNativeUnavailable }

// Convert implements core.KanjiConverter.
func (*NativeEngine) Convert(_ context.Context, _ string) (string, error) {
	return "", ErrNativeUnavailable
}

// Synthesize implements core.Synthesizer.
func (*NativeEngine) Synthesize(_ context.Context, _ string, _ map[string]int) ([]byte, error) {
	return nil, ErrNativeUnavailable
}

// Close implements core.Engine.
func (*NativeEngine) Close() error { return nil }
