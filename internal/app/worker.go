package app

import (
	"context"
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/game"
	"github.com/ayusman/mudra/pkg/logger"
)

// StartCamera opens the camera and starts the capture worker.
func (a *App) StartCamera() error {
	if a.camera == nil {
		return ErrNoCamera
	}

	a.runMu.Lock()
	if a.captureCancel != nil {
		a.runMu.Unlock()
		return nil
	}
	if err := a.camera.Open(); err != nil {
		a.runMu.Unlock()
		a.metrics.RecordCameraError()
		a.log.Error(context.Background(), "open camera", logger.Error(err))
		a.publishStatus(StatusCameraError, err)
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	a.captureCancel = cancel
	a.captureDone = done
	a.runMu.Unlock()

	go func() {
		defer close(done)
		a.captureLoop(ctx)
	}()

	a.log.Info(ctx, "camera started", logger.Int("fps", a.cfg.FPS))
	a.publishStatus(StatusCameraStarted, nil)
	return nil
}

// StopCamera stops the capture worker and closes the camera.
func (a *App) StopCamera() {
	a.runMu.Lock()
	cancel, done := a.captureCancel, a.captureDone
	a.captureCancel, a.captureDone = nil, nil
	a.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	a.closeCamera()
	a.publishStatus(StatusCameraStopped, nil)
}

// CameraActive reports whether the capture worker is running.
func (a *App) CameraActive() bool {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.captureCancel != nil
}

func (a *App) closeCamera() {
	if err := a.camera.Close(); err != nil {
		a.log.Warn(context.Background(), "close camera", logger.Error(err))
	}
}

// captureLoop reads frames at the configured rate. Detection only runs while
// a sign is requested; frames still go to the stream either way. A read
// failure ends the loop and is reported as a camera error.
func (a *App) captureLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(a.cfg.FPS))
	defer ticker.Stop()

	detectorFailing := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			a.captureFailed(ctx, err)
			return
		}

		a.mu.RLock()
		targetID := a.targetIDLocked()
		a.mu.RUnlock()

		var dets []game.Detection
		if targetID != nil && a.detector != nil {
			start := time.Now()
			dets, err = a.detector.Detect(frame)
			a.metrics.ObserveDetector(time.Since(start), err)

			switch {
			case err != nil && !detectorFailing:
				detectorFailing = true
				a.log.Warn(ctx, "detector failed", logger.Error(err))
				a.publishStatus(StatusDetectorError, err)
			case err != nil:
				a.log.Debug(ctx, "detector failed", logger.Error(err))
			default:
				if detectorFailing {
					detectorFailing = false
					a.log.Info(ctx, "detector recovered")
				}
				a.offer(dets)
			}
		}

		if a.frames != nil {
			capture.Annotate(frame, dets, targetID)
			if jpeg, err := capture.EncodeJPEG(frame); err == nil {
				a.frames.Publish(jpeg)
			}
		}
		frame.Close()
	}
}

func (a *App) captureFailed(ctx context.Context, err error) {
	a.metrics.RecordCameraError()
	a.log.Error(ctx, "camera read failed", logger.Error(err))

	a.runMu.Lock()
	cancel := a.captureCancel
	a.captureCancel = nil
	a.captureDone = nil
	a.runMu.Unlock()

	if cancel == nil {
		// StopCamera got there first.
		return
	}
	cancel()
	a.closeCamera()
	a.publishStatus(StatusCameraError, err)
}
