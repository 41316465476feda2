//go:build !linux

package capture

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kozaktomas/face-keeper/internal/config"
)

// WebcamOpener returns an Opener that always fails: V4L2 capture needs Linux.
func WebcamOpener(cfg config.CameraConfig) Opener {
	return func(context.Context) (Camera, error) {
		return nil, Unavailable(errors.Errorf("capture from %s is only supported on linux", cfg.Device))
	}
}
