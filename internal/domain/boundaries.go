package domain

import "context"

// SurfaceHandle is the opaque render target the decode engine draws camera
// frames into. The embedding host owns its concrete type; the core only
// passes it through.
type SurfaceHandle any

// StreamConstraints select which camera to open and how
type StreamConstraints struct {
	DeviceID   string // exact device, or empty to let FacingMode decide
	FacingMode string // "environment" requests a rear-facing camera
	Torch      bool
}

// MediaStream is a live camera stream with its hardware capabilities
type MediaStream interface {
	HasTorch() bool
	ApplyTorch(on bool) error
	StopTracks()
}

// MediaDevices is the platform camera/permission boundary. RequestStream
// blocks until permission is granted or denied.
type MediaDevices interface {
	RequestStream(ctx context.Context, c StreamConstraints) (MediaStream, error)
	EnumerateDevices(ctx context.Context) ([]CameraDevice, error)
}

// DecodeControls stops a running decode loop
type DecodeControls interface {
	Stop()
}

// DecodeEngine is the opaque barcode decoder. onResult fires asynchronously
// and repeatedly, with an empty code for frames containing no barcode, until
// the returned controls are stopped.
type DecodeEngine interface {
	DecodeFromConstraints(c StreamConstraints, surface SurfaceHandle, onResult func(code string)) (DecodeControls, error)
}

// NativeBarcode is one code detected by the host scanning surface
type NativeBarcode struct {
	DisplayValue string `json:"displayValue"`
}

// NativeScanResult is the outcome of a single host scan interaction.
// An empty Barcodes slice signals user cancellation, not an error.
type NativeScanResult struct {
	Barcodes []NativeBarcode `json:"barcodes"`
}

// NativeScanner is the host-provided full-screen scanning surface, invoked
// as a single awaited call that manages its own permission and UI.
type NativeScanner interface {
	Scan(ctx context.Context) (*NativeScanResult, error)
}

// LookupBackend resolves a normalized barcode against the remote product
// database. Failures must be classified as *LookupError.
type LookupBackend interface {
	Lookup(ctx context.Context, barcode string) (*BarcodeProduct, error)
}

// ScanHistory persists resolved scans for later recall
type ScanHistory interface {
	Record(ctx context.Context, rec ScanRecord) error
	Recent(ctx context.Context, limit int) ([]ScanRecord, error)
}

// BackendKind distinguishes the two scanning surface shapes
type BackendKind string

const (
	// BackendInProcess decodes camera frames continuously in-process
	BackendInProcess BackendKind = "inprocess"
	// BackendNative delegates one whole scan interaction to the host
	BackendNative BackendKind = "native"
)

// BackendOptions parameterize one backend start
type BackendOptions struct {
	DeviceID string        // preferred camera, or empty for the default
	Surface  SurfaceHandle // render target for in-process decoding
}

// BackendSession is one live scanning session owned by a backend. Single-shot
// backends return an already-finished session.
type BackendSession interface {
	Cameras() []CameraDevice
	ActiveDeviceID() string
	HasTorch() bool
	SetTorch(on bool) error
	Stop()
}

// ScannerBackend owns the camera/permission lifecycle for one session shape.
// In-process implementations return from Start once the decode loop is
// running and keep emitting through emit until the session is stopped;
// native implementations block for the whole interaction and emit at most
// once before returning.
type ScannerBackend interface {
	Kind() BackendKind
	Start(ctx context.Context, opts BackendOptions, emit func(code string)) (BackendSession, error)
}
