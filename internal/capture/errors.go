package capture

import "errors"

// ErrUnsupported means the platform cannot capture video at all. It is not recoverable.
var ErrUnsupported = errors.New("camera access is not supported on this platform")

// Platform errors. Implementations wrap these so Device can classify failures.
var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrNoDevice         = errors.New("no camera found")
	ErrDeviceBusy       = errors.New("camera in use")
	ErrNoIntrospection  = errors.New("permission query not supported")
	ErrFrameNotReady    = errors.New("frame not ready")
)

// Reason classifies a failed access request.
type Reason string

const (
	ReasonPermissionDenied Reason = "permission_denied"
	ReasonNoDevice         Reason = "no_device"
	ReasonDeviceBusy       Reason = "device_busy"
	ReasonUnknown          Reason = "unknown"
)

// AccessError is returned by RequestAccess when the camera could not be opened.
type AccessError struct {
	Reason Reason
	Err    error
}

func (e *AccessError) Error() string {
	if e.Err == nil {
		return "camera access: " + string(e.Reason)
	}
	return "camera access: " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the person holding the camera.
func (e *AccessError) Message() string {
	switch e.Reason {
	case ReasonPermissionDenied:
		return "Camera access was denied. Please enable camera permissions in your settings."
	case ReasonNoDevice:
		return "No camera found on your device."
	case ReasonDeviceBusy:
		return "Camera is already in use by another application."
	default:
		return "Could not access camera. Please ensure camera permissions are granted."
	}
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ReasonPermissionDenied
	case errors.Is(err, ErrNoDevice):
		return ReasonNoDevice
	case errors.Is(err, ErrDeviceBusy):
		return ReasonDeviceBusy
	default:
		return ReasonUnknown
	}
}
