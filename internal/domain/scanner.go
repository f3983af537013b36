package domain

import (
	"errors"
	"time"
)

// ScannerStatus is the lifecycle state of a scanner session
type ScannerStatus string

const (
	StatusIdle         ScannerStatus = "idle"
	StatusInitializing ScannerStatus = "initializing"
	StatusRunning      ScannerStatus = "running"
	StatusNoPermission ScannerStatus = "no_permission"
	StatusNotSupported ScannerStatus = "not_supported"
	StatusError        ScannerStatus = "error"
)

// ScanErrorCode is the closed taxonomy for scanner failures
type ScanErrorCode string

const (
	CodeNoPermission     ScanErrorCode = "NO_PERMISSION"     // camera busy/inaccessible; retry may help
	CodePermissionDenied ScanErrorCode = "PERMISSION_DENIED" // user declined the prompt
	CodeNotSupported     ScanErrorCode = "NOT_SUPPORTED"     // media API absent
	CodeNoCamera         ScanErrorCode = "NO_CAMERA"         // no video input device
	CodeUnknown          ScanErrorCode = "UNKNOWN"
)

// ScanError is a classified scanner failure. It is the only error type the
// controller lets escape from Start.
type ScanError struct {
	Code    ScanErrorCode
	Message string
}

func (e *ScanError) Error() string {
	return string(e.Code) + ": " + e.Message
}

// ClassifyScanError maps a raw platform failure onto the closed taxonomy.
// Already-classified errors pass through unchanged.
func ClassifyScanError(err error) *ScanError {
	var se *ScanError
	if errors.As(err, &se) {
		return se
	}
	code := CodeUnknown
	switch {
	case errors.Is(err, ErrPermissionDenied):
		code = CodePermissionDenied
	case errors.Is(err, ErrCameraBusy):
		code = CodeNoPermission
	case errors.Is(err, ErrNotSupported):
		code = CodeNotSupported
	case errors.Is(err, ErrNoCamera):
		code = CodeNoCamera
	}
	return &ScanError{Code: code, Message: err.Error()}
}

// StatusForCode maps an error code to the session status it leaves behind
func StatusForCode(code ScanErrorCode) ScannerStatus {
	switch code {
	case CodeNoPermission, CodePermissionDenied:
		return StatusNoPermission
	case CodeNotSupported:
		return StatusNotSupported
	default:
		return StatusError
	}
}

// CameraDevice identifies one video input device
type CameraDevice struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label"`
}

// DecodeResult carries one accepted detection; used only to apply the
// detection throttle, never persisted.
type DecodeResult struct {
	Code       string    `json:"code"`
	DetectedAt time.Time `json:"detectedAt"`
}

// ScannerSnapshot is the read-only view handed to UI code
type ScannerSnapshot struct {
	SessionID      string         `json:"sessionId,omitempty"`
	Status         ScannerStatus  `json:"status"`
	Error          string         `json:"error,omitempty"`
	ErrorCode      ScanErrorCode  `json:"errorCode,omitempty"`
	HasTorch       bool           `json:"hasTorch"`
	TorchEnabled   bool           `json:"torchEnabled"`
	Cameras        []CameraDevice `json:"cameras"`
	ActiveDeviceID string         `json:"activeDeviceId,omitempty"`
}
