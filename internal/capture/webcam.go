//go:build linux

package capture

import (
	"context"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blackjack/webcam"
	"github.com/pkg/errors"

	"github.com/kozaktomas/face-keeper/internal/config"
)

// Webcam reads MJPEG frames from a V4L2 device.
type Webcam struct {
	device       string
	cam          *webcam.Webcam
	frameTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

// OpenWebcam opens the device and starts streaming.
func OpenWebcam(cfg config.CameraConfig) (*Webcam, error) {
	cam, err := webcam.Open(cfg.Device)
	if err != nil {
		return nil, Unavailable(errors.Wrap(err, "can not open device "+cfg.Device))
	}

	format, ok := findMJPEG(cam.GetSupportedFormats())
	if !ok {
		cam.Close()
		return nil, Unavailable(errors.Errorf("%s does not support MJPEG", cfg.Device))
	}

	_, w, h, err := cam.SetImageFormat(format, uint32(cfg.Width), uint32(cfg.Height))
	if err != nil {
		cam.Close()
		return nil, Unavailable(errors.Wrap(err, "can not set image format"))
	}

	if err := cam.StartStreaming(); err != nil {
		cam.Close()
		return nil, Unavailable(errors.Wrap(err, "can not start streaming"))
	}

	slog.Debug("camera opened", "device", cfg.Device, "width", w, "height", h)
	return &Webcam{
		device:       cfg.Device,
		cam:          cam,
		frameTimeout: cfg.FrameTimeout,
	}, nil
}

// WebcamOpener returns an Opener for the configured device.
func WebcamOpener(cfg config.CameraConfig) Opener {
	return func(ctx context.Context) (Camera, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return OpenWebcam(cfg)
	}
}

func findMJPEG(formats map[webcam.PixelFormat]string) (webcam.PixelFormat, bool) {
	for f, name := range formats {
		upper := strings.ToUpper(name)
		if strings.Contains(upper, "MJPEG") || strings.Contains(upper, "MOTION-JPEG") {
			return f, true
		}
	}
	return 0, false
}

// Frame waits for the next usable frame. It polls ctx between one second
// waits and gives up after the configured frame timeout.
func (w *Webcam) Frame(ctx context.Context) (image.Image, error) {
	deadline := time.Now().Add(w.frameTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, Unavailable(errors.Errorf("no usable frame from %s within %s", w.device, w.frameTimeout))
		}

		err := w.cam.WaitForFrame(1)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return nil, Unavailable(errors.Wrap(err, "frame wait failed"))
		}

		frame, err := w.cam.ReadFrame()
		if err != nil {
			return nil, Unavailable(errors.Wrap(err, "read frame failed"))
		}
		if len(frame) == 0 {
			continue
		}

		img, err := DecodeImage(frame)
		if err != nil {
			slog.Debug("skipping undecodable frame", "error", err)
			continue
		}
		if !hasGoodBlackLevel(img) {
			continue
		}
		return img, nil
	}
}

// Close stops streaming and releases the device.
func (w *Webcam) Close() error {
	w.closeOnce.Do(func() {
		if err := w.cam.StopStreaming(); err != nil {
			slog.Debug("stop streaming", "error", err)
		}
		if err := w.cam.Close(); err != nil {
			w.closeErr = errors.Wrap(err, "can not close device")
		}
	})
	return w.closeErr
}
