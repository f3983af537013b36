package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/logging"
	"github.com/nutriscan/backend/internal/metrics"
	"github.com/rs/zerolog"
)

const defaultDetectionThrottle = 1500 * time.Millisecond

// ScannerControllerConfig tunes the controller; zero values take defaults
type ScannerControllerConfig struct {
	// DetectionThrottle is the minimum interval between accepted detections,
	// measured from the previous accepted one, across backends
	DetectionThrottle time.Duration
}

// controllerSession is the single mutable session owned by a controller.
// stopped guards Stop idempotency; a session whose pointer no longer matches
// the controller's has been superseded.
type controllerSession struct {
	id      string
	backend domain.BackendSession
	stopped bool
}

// ScannerController is the state machine consumed by UI code. It drives one
// ScannerBackend, enforces the single-active-session invariant, throttles
// detections, and normalizes every platform failure into the closed scanner
// taxonomy. All methods are safe for concurrent use.
type ScannerController struct {
	backend  domain.ScannerBackend
	throttle time.Duration

	mu             sync.Mutex
	session        *controllerSession
	status         domain.ScannerStatus
	lastErr        *domain.ScanError
	activeDeviceID string
	cameras        []domain.CameraDevice
	hasTorch       bool
	torchEnabled   bool
	lastDetection  time.Time
	onDetected     func(domain.DecodeResult)

	log zerolog.Logger
	now func() time.Time
}

// NewScannerController creates an idle controller over the given backend
func NewScannerController(backend domain.ScannerBackend, cfg ScannerControllerConfig) *ScannerController {
	throttle := cfg.DetectionThrottle
	if throttle == 0 {
		throttle = defaultDetectionThrottle
	}
	return &ScannerController{
		backend:  backend,
		throttle: throttle,
		status:   domain.StatusIdle,
		log:      logging.WithComponent("scanner"),
		now:      time.Now,
	}
}

// SetOnDetected registers the detection callback. The callback runs outside
// the controller lock; it may call Lookup or Stop.
func (c *ScannerController) SetOnDetected(fn func(domain.DecodeResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDetected = fn
}

// Start brings the session up. Concurrent calls while Initializing or
// Running are no-ops, so at most one camera/permission acquisition runs per
// controller. Failures are classified, recorded in the session state, and
// returned; callers may ignore the return and poll Snapshot instead.
func (c *ScannerController) Start(ctx context.Context, surface domain.SurfaceHandle) error {
	c.mu.Lock()
	if c.status == domain.StatusInitializing || c.status == domain.StatusRunning {
		c.mu.Unlock()
		return nil
	}
	sess := &controllerSession{id: uuid.NewString()}
	c.session = sess
	c.status = domain.StatusInitializing
	c.lastErr = nil
	opts := domain.BackendOptions{DeviceID: c.activeDeviceID, Surface: surface}
	kind := c.backend.Kind()
	if kind == domain.BackendNative {
		// The host modal owns permission and UI; the whole single-shot
		// interaction runs inside backend.Start
		c.status = domain.StatusRunning
	}
	c.mu.Unlock()

	bs, err := c.backend.Start(ctx, opts, c.accept)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess || sess.stopped {
		// Stopped while initializing; release whatever came up late
		if bs != nil {
			bs.Stop()
		}
		return nil
	}
	if err != nil {
		se := domain.ClassifyScanError(err)
		c.lastErr = se
		c.status = domain.StatusForCode(se.Code)
		c.session = nil
		metrics.ScannerFailures.WithLabelValues(string(se.Code)).Inc()
		c.log.Warn().Str("code", string(se.Code)).Str("session", sess.id).Msg("scanner start failed")
		return se
	}

	if kind == domain.BackendNative {
		// Single-shot: the interaction already resolved (detection or
		// user cancellation), so the session ends here
		bs.Stop()
		c.session = nil
		c.status = domain.StatusIdle
		return nil
	}

	sess.backend = bs
	c.cameras = bs.Cameras()
	c.activeDeviceID = bs.ActiveDeviceID()
	c.hasTorch = bs.HasTorch()
	c.torchEnabled = false
	c.status = domain.StatusRunning
	c.log.Info().Str("session", sess.id).Str("device", c.activeDeviceID).Bool("torch", c.hasTorch).Msg("scanner running")
	return nil
}

// accept applies the detection throttle and forwards accepted codes.
// Detections arriving after Stop, or within the throttle window of the
// previous accepted one, are dropped.
func (c *ScannerController) accept(code string) {
	c.mu.Lock()
	sess := c.session
	if sess == nil || sess.stopped {
		c.mu.Unlock()
		return
	}
	now := c.now()
	if !c.lastDetection.IsZero() && now.Sub(c.lastDetection) < c.throttle {
		c.mu.Unlock()
		return
	}
	c.lastDetection = now
	cb := c.onDetected
	c.mu.Unlock()

	metrics.Detections.Inc()
	if cb != nil {
		cb(domain.DecodeResult{Code: code, DetectedAt: now})
	}
}

// Stop tears the session down: decode loop stopped, stream tracks released.
// Idempotent and safe from any state; it never blocks on hardware.
func (c *ScannerController) Stop() {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.status = domain.StatusIdle
	c.hasTorch = false
	c.torchEnabled = false
	var backend domain.BackendSession
	if sess != nil && !sess.stopped {
		sess.stopped = true
		backend = sess.backend
	}
	c.mu.Unlock()

	if backend != nil {
		backend.Stop()
		c.log.Info().Str("session", sess.id).Msg("scanner stopped")
	}
}

// ToggleTorch flips the torch constraint. A no-op when the active stream has
// no torch capability or no session is running.
func (c *ScannerController) ToggleTorch() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasTorch || c.session == nil || c.session.backend == nil {
		return nil
	}
	next := !c.torchEnabled
	if err := c.session.backend.SetTorch(next); err != nil {
		return fmt.Errorf("apply torch: %w", err)
	}
	c.torchEnabled = next
	return nil
}

// SetActiveDevice stops the current session and records the device for the
// next Start. Switching does not auto-restart; the caller starts again,
// keeping the single-active-session invariant explicit.
func (c *ScannerController) SetActiveDevice(deviceID string) {
	c.Stop()
	c.mu.Lock()
	c.activeDeviceID = deviceID
	c.mu.Unlock()
}

// Snapshot returns the read-only session view for UI code
func (c *ScannerController) Snapshot() domain.ScannerSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := domain.ScannerSnapshot{
		Status:         c.status,
		HasTorch:       c.hasTorch,
		TorchEnabled:   c.torchEnabled,
		Cameras:        append([]domain.CameraDevice(nil), c.cameras...),
		ActiveDeviceID: c.activeDeviceID,
	}
	if c.session != nil {
		snap.SessionID = c.session.id
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Message
		snap.ErrorCode = c.lastErr.Code
	}
	return snap
}
