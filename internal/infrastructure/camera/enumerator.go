package camera

import (
	"context"
	"fmt"
	"strings"

	"github.com/nutriscan/backend/internal/domain"
)

// rearLabelHints mark labels that identify a rear-facing camera
var rearLabelHints = []string{"back", "rear", "environment"}

// Enumerator lists video input devices through the platform media boundary
// and picks a sensible default. Enumeration runs fresh for every scanner
// start; device availability changes between sessions.
type Enumerator struct {
	media domain.MediaDevices
}

// NewEnumerator creates an enumerator over the given media boundary
func NewEnumerator(media domain.MediaDevices) *Enumerator {
	return &Enumerator{media: media}
}

// Enumerate lists available cameras, filling in placeholder labels for
// devices the platform reports unlabeled. Returns ErrNoCamera when no video
// input exists.
func (e *Enumerator) Enumerate(ctx context.Context) ([]domain.CameraDevice, error) {
	devices, err := e.media.EnumerateDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, domain.ErrNoCamera
	}

	labeled := make([]domain.CameraDevice, len(devices))
	for i, d := range devices {
		if d.Label == "" {
			d.Label = fmt.Sprintf("Camera %d", i+1)
		}
		labeled[i] = d
	}
	return labeled, nil
}

// DefaultDevice prefers a rear/"environment" camera by label, falling back
// to the first device.
func DefaultDevice(devices []domain.CameraDevice) domain.CameraDevice {
	if len(devices) == 0 {
		return domain.CameraDevice{}
	}
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		for _, hint := range rearLabelHints {
			if strings.Contains(label, hint) {
				return d
			}
		}
	}
	return devices[0]
}
