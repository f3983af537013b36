package usecase

import (
	"context"
	"fmt"

	"github.com/nutriscan/backend/internal/domain"
	"github.com/nutriscan/backend/internal/infrastructure/camera"
	"github.com/nutriscan/backend/internal/logging"
	"github.com/rs/zerolog"
)

// InProcessDecodeBackend scans by acquiring a camera stream and running a
// continuous decode loop against it. Permission is requested implicitly by
// the stream acquisition; devices are re-enumerated on every start.
type InProcessDecodeBackend struct {
	media  domain.MediaDevices
	engine domain.DecodeEngine
	enum   *camera.Enumerator
	log    zerolog.Logger
}

// NewInProcessDecodeBackend creates the in-process decode backend
func NewInProcessDecodeBackend(media domain.MediaDevices, engine domain.DecodeEngine) *InProcessDecodeBackend {
	return &InProcessDecodeBackend{
		media:  media,
		engine: engine,
		enum:   camera.NewEnumerator(media),
		log:    logging.WithComponent("scanner-inprocess"),
	}
}

// Kind reports the continuous decode shape
func (b *InProcessDecodeBackend) Kind() domain.BackendKind {
	return domain.BackendInProcess
}

// Start requests the camera (blocking on the permission prompt), enumerates
// devices, and starts the decode loop. It returns once the loop is running;
// detections keep flowing through emit until the session is stopped.
func (b *InProcessDecodeBackend) Start(ctx context.Context, opts domain.BackendOptions, emit func(code string)) (domain.BackendSession, error) {
	constraints := domain.StreamConstraints{
		DeviceID:   opts.DeviceID,
		FacingMode: "environment",
	}

	stream, err := b.media.RequestStream(ctx, constraints)
	if err != nil {
		return nil, fmt.Errorf("request stream: %w", err)
	}

	// Labels are only available once permission is granted
	cameras, err := b.enum.Enumerate(ctx)
	if err != nil {
		stream.StopTracks()
		return nil, err
	}

	deviceID := opts.DeviceID
	if deviceID == "" {
		deviceID = camera.DefaultDevice(cameras).DeviceID
	}
	constraints.DeviceID = deviceID

	controls, err := b.engine.DecodeFromConstraints(constraints, opts.Surface, func(code string) {
		// The engine reports empty codes for frames with no barcode
		if code != "" {
			emit(code)
		}
	})
	if err != nil {
		stream.StopTracks()
		return nil, fmt.Errorf("start decode loop: %w", err)
	}

	b.log.Info().Str("device", deviceID).Int("cameras", len(cameras)).Msg("decode loop running")

	return &inProcessSession{
		stream:   stream,
		controls: controls,
		cameras:  cameras,
		deviceID: deviceID,
	}, nil
}

// inProcessSession owns the live stream and decode controls for one session
type inProcessSession struct {
	stream   domain.MediaStream
	controls domain.DecodeControls
	cameras  []domain.CameraDevice
	deviceID string
}

func (s *inProcessSession) Cameras() []domain.CameraDevice { return s.cameras }
func (s *inProcessSession) ActiveDeviceID() string         { return s.deviceID }
func (s *inProcessSession) HasTorch() bool                 { return s.stream.HasTorch() }

func (s *inProcessSession) SetTorch(on bool) error {
	return s.stream.ApplyTorch(on)
}

func (s *inProcessSession) Stop() {
	s.controls.Stop()
	s.stream.StopTracks()
}

// NativeDelegateBackend scans through the host-provided full-screen surface:
// one awaited call that manages its own permission prompt and UI.
type NativeDelegateBackend struct {
	scanner domain.NativeScanner
	log     zerolog.Logger
}

// NewNativeDelegateBackend creates the native delegate backend
func NewNativeDelegateBackend(scanner domain.NativeScanner) *NativeDelegateBackend {
	return &NativeDelegateBackend{
		scanner: scanner,
		log:     logging.WithComponent("scanner-native"),
	}
}

// Kind reports the single-shot shape
func (b *NativeDelegateBackend) Kind() domain.BackendKind {
	return domain.BackendNative
}

// Start blocks for the whole host interaction. An empty barcode list means
// the user cancelled; that is a normal return, not an error.
func (b *NativeDelegateBackend) Start(ctx context.Context, opts domain.BackendOptions, emit func(code string)) (domain.BackendSession, error) {
	result, err := b.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("native scan: %w", err)
	}

	if len(result.Barcodes) == 0 {
		b.log.Debug().Msg("native scan cancelled by user")
		return nativeSession{}, nil
	}

	if code := result.Barcodes[0].DisplayValue; code != "" {
		emit(code)
	}
	return nativeSession{}, nil
}

// nativeSession is the already-finished session of a single-shot scan; the
// host surface owns all hardware, so there is nothing to control or release
type nativeSession struct{}

func (nativeSession) Cameras() []domain.CameraDevice { return nil }
func (nativeSession) ActiveDeviceID() string         { return "" }
func (nativeSession) HasTorch() bool                 { return false }
func (nativeSession) SetTorch(on bool) error         { return nil }
func (nativeSession) Stop()                          {}

// unsupportedBackend reports NOT_SUPPORTED on every start; selected when the
// runtime exposes neither a native delegate nor media capture
type unsupportedBackend struct{}

func (unsupportedBackend) Kind() domain.BackendKind { return domain.BackendInProcess }

func (unsupportedBackend) Start(ctx context.Context, opts domain.BackendOptions, emit func(code string)) (domain.BackendSession, error) {
	return nil, domain.ErrNotSupported
}

// SelectBackend picks the scanning surface for this runtime: the native
// delegate when the host provides one, else the in-process decode loop, else
// a backend that reports NOT_SUPPORTED. The preference string ("auto",
// "native", "inprocess") narrows the choice.
func SelectBackend(preference string, media domain.MediaDevices, engine domain.DecodeEngine, native domain.NativeScanner) domain.ScannerBackend {
	wantNative := preference == "auto" || preference == "native"
	wantInProcess := preference == "auto" || preference == "inprocess"

	if wantNative && native != nil {
		return NewNativeDelegateBackend(native)
	}
	if wantInProcess && media != nil && engine != nil {
		return NewInProcessDecodeBackend(media, engine)
	}
	return unsupportedBackend{}
}
