// Package sdfray traces 2D rays through the signed distance field of a scene
// of circles and rectangles.
//
// Each frame the scene is synced to a compute device, the distance field is
// evaluated over the pixel grid and a ray is marched either through the
// sampled field or by evaluating the exact distance functions directly.
//
// Subpackages hold the parts of a frame:
//   - scene: the primitive set.
//   - dist: exact distance functions.
//   - compute: device buffers and field evaluation.
//   - march: the ray marcher.
//   - render: images and plots of the results.
package sdfray

import (
	"log/slog"

	"github.com/soypat/sdfray/internal/logging"
)

// SetLogger configures the logger used by sdfray and all its subpackages.
// By default nothing is logged. Pass nil to disable logging again.
//
// Log levels:
//   - [slog.LevelDebug]: buffer reallocations, kernel dispatches, frame timing.
//   - [slog.LevelInfo]: device selection, device open and close.
//   - [slog.LevelWarn]: failures releasing device resources.
//
// Example:
//
//	sdfray.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger. It is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
