package scanner

import "errors"

// Camera acquisition failures, classified into distinct user-facing messages.
var (
	ErrCameraDenied      = errors.New("scanner: camera access denied")
	ErrCameraNotFound    = errors.New("scanner: camera not found")
	ErrCameraUnsupported = errors.New("scanner: camera not supported")
	ErrCameraBusy        = errors.New("scanner: camera in use by another application")
)

// CameraMessage maps an acquisition error to its user-facing message.
func CameraMessage(err error) string {
	switch {
	case errors.Is(err, ErrCameraDenied):
		return "Camera access denied. Allow camera access in the browser settings."
	case errors.Is(err, ErrCameraNotFound):
		return "Camera not found. Make sure a camera is connected."
	case errors.Is(err, ErrCameraUnsupported):
		return "This device does not support camera access."
	case errors.Is(err, ErrCameraBusy):
		return "The camera is already in use by another application."
	default:
		return "Unknown camera error."
	}
}
