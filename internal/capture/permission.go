package capture

// Permission is the camera permission state seen by a Device.
type Permission string

const (
	PermissionPrompt      Permission = "prompt"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
	PermissionUnsupported Permission = "unsupported"
)

// Event drives permission transitions.
type Event int

const (
	// EventUnsupported: the platform cannot capture at all.
	EventUnsupported Event = iota
	// EventGranted: access was obtained or the platform reports granted.
	EventGranted
	// EventDenied: the user or platform refused access.
	EventDenied
	// EventPrompt: the platform reports the decision is open again.
	EventPrompt
	// EventDeviceError: no device, device busy or an unknown failure. Permission is unaffected.
	EventDeviceError
)

func (e Event) String() string {
	switch e {
	case EventUnsupported:
		return "unsupported"
	case EventGranted:
		return "granted"
	case EventDenied:
		return "denied"
	case EventPrompt:
		return "prompt"
	case EventDeviceError:
		return "device_error"
	default:
		return "unknown"
	}
}

// Transition returns the permission that follows from applying ev in state from.
// Unsupported is absorbing.
func Transition(from Permission, ev Event) Permission {
	if from == PermissionUnsupported {
		return PermissionUnsupported
	}
	switch ev {
	case EventUnsupported:
		return PermissionUnsupported
	case EventGranted:
		return PermissionGranted
	case EventDenied:
		return PermissionDenied
	case EventPrompt:
		return PermissionPrompt
	default:
		return from
	}
}

// eventFor maps a platform-reported permission onto the event that produces it.
func eventFor(p Permission) Event {
	switch p {
	case PermissionGranted:
		return EventGranted
	case PermissionDenied:
		return EventDenied
	case PermissionUnsupported:
		return EventUnsupported
	default:
		return EventPrompt
	}
}
