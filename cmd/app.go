package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-keeper/internal/capture"
	"github.com/kozaktomas/face-keeper/internal/capture/dlib"
	"github.com/kozaktomas/face-keeper/internal/config"
	"github.com/kozaktomas/face-keeper/internal/faces"
	"github.com/kozaktomas/face-keeper/internal/facematch"
	"github.com/kozaktomas/face-keeper/internal/facestore"
	"github.com/kozaktomas/face-keeper/internal/facestore/mariadb"
	"github.com/kozaktomas/face-keeper/internal/facestore/postgres"
	"github.com/kozaktomas/face-keeper/internal/logging"
	"github.com/kozaktomas/face-keeper/internal/recognition"
)

// app holds everything a command needs. Close releases it in reverse
// order of acquisition.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *facestore.Store
	svc    *faces.Service

	closers []func() error
}

// openApp loads the configuration and the face database. With withCamera
// the dlib models are loaded and the webcam is wired into the service.
func openApp(ctx context.Context, cmd *cobra.Command, withCamera bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if path := mustGetString(cmd, "store"); path != "" {
		cfg.Store.Backend = "file"
		cfg.Store.Path = path
	}

	logger, closeLog, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, closeLog)

	backend, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	store, err := facestore.New(backend, facestore.Options{
		Tolerance:   cfg.Matching.Tolerance,
		Metric:      facematch.Metric(cfg.Matching.Metric),
		SaveTimeout: cfg.Store.SaveTimeout,
		UseIndex:    cfg.Matching.Index == "hnsw",
		Logger:      logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store

	switch report := store.Load(ctx); report.State {
	case facestore.LoadCorrupt:
		fmt.Fprintf(os.Stderr, "Warning: face database could not be read, starting empty: %v\n", report.Err)
	case facestore.LoadUnavailable:
		a.Close()
		return nil, fmt.Errorf("loading face database: %w", report.Err)
	}

	var (
		open    capture.Opener
		enc     capture.Encoder
		session *recognition.Session
	)
	if withCamera {
		encoder, err := dlib.New(cfg.Recognizer.ModelsDir)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			encoder.Close()
			return nil
		})
		enc = encoder
		open = capture.WebcamOpener(cfg.Camera)
		session = recognition.NewSession(open, enc, store, recognition.Options{
			ProcessEveryN: cfg.Recognition.ProcessEveryN,
			DetectScale:   cfg.Recognition.DetectScale,
			FrameInterval: cfg.Recognition.FrameInterval,
			Logger:        logger,
		})
	}

	a.svc = faces.NewService(store, open, enc, session, faces.Options{
		StatusDisplay: cfg.Recognition.StatusDisplay,
		Logger:        logger,
	})
	return a, nil
}

func (a *app) openBackend(ctx context.Context) (facestore.Backend, error) {
	switch a.cfg.Store.Backend {
	case "postgres":
		pool, err := postgres.Open(ctx, &a.cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return postgres.NewFaceBackend(pool), nil
	case "mariadb":
		pool, err := mariadb.Open(ctx, &a.cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		return mariadb.NewFaceBackend(pool), nil
	default:
		backend := facestore.NewFileBackend(a.cfg.Store.Path)
		a.logger.Debug("using face database file", "path", backend.Path())
		return backend, nil
	}
}

// Close stops recognition and releases all resources.
func (a *app) Close() {
	if a.svc != nil {
		if s := a.svc.Session(); s != nil && s.Running() {
			_ = s.Stop()
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	a.closers = nil
}

// printResult prints the outcome of an operation and turns a failure into
// an error for cobra.
func printResult(r faces.Result) error {
	if !r.OK {
		return errors.New(r.Message)
	}
	fmt.Println(r.Message)
	fmt.Printf("Known faces: %d\n", r.Count)
	return nil
}
