package alarm

import (
	"errors"
	"fmt"
	"strings"
)

// State is the lifecycle position of an alert session.
type State int

const (
	// StateActive means the alarm is ringing and waiting for the user.
	StateActive State = iota
	// StateSnoozed means the user postponed the alarm.
	StateSnoozed
	// StateDismissed means the alarm was cleared.
	StateDismissed
	// StateKilled means the alert playback died on its own.
	StateKilled
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSnoozed:
		return "snoozed"
	case StateDismissed:
		return "dismissed"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IsTerminal reports whether the session can no longer change.
func (s State) IsTerminal() bool {
	return s != StateActive
}

// VolumeKeyPolicy decides what the volume and camera keys do while ringing.
type VolumeKeyPolicy int

const (
	// VolumeKeyDisabled swallows the keys without any transition.
	VolumeKeyDisabled VolumeKeyPolicy = iota
	// VolumeKeySnooze snoozes the alarm on key-up.
	VolumeKeySnooze
	// VolumeKeyDismiss dismisses the alarm on key-up.
	VolumeKeyDismiss
)

// ErrUnknownVolumeKeyPolicy is returned for policy names that are not recognized.
var ErrUnknownVolumeKeyPolicy = errors.New("unknown volume key policy")

// ParseVolumeKeyPolicy converts a settings value into a policy.
// Numeric values mirror the historical preference encoding.
func ParseVolumeKeyPolicy(s string) (VolumeKeyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "disabled", "nothing":
		return VolumeKeyDisabled, nil
	case "1", "snooze":
		return VolumeKeySnooze, nil
	case "2", "dismiss":
		return VolumeKeyDismiss, nil
	default:
		return VolumeKeyDisabled, fmt.Errorf("%w: %q", ErrUnknownVolumeKeyPolicy, s)
	}
}

// String returns the settings name of the policy.
func (p VolumeKeyPolicy) String() string {
	switch p {
	case VolumeKeySnooze:
		return "snooze"
	case VolumeKeyDismiss:
		return "dismiss"
	default:
		return "disabled"
	}
}

// KeyCode is a hardware key delivered to the alert screen.
type KeyCode int

const (
	// KeyUnknown is any key the alert screen does not handle.
	KeyUnknown KeyCode = iota
	// KeyVolumeUp is the volume up rocker.
	KeyVolumeUp
	// KeyVolumeDown is the volume down rocker.
	KeyVolumeDown
	// KeyCamera is the camera shutter key.
	KeyCamera
	// KeyFocus is the camera half-press focus key.
	KeyFocus
)

// ParseKeyCode converts a key name into a KeyCode; unknown names map to KeyUnknown.
func ParseKeyCode(s string) KeyCode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "volume_up", "volume-up":
		return KeyVolumeUp
	case "volume_down", "volume-down":
		return KeyVolumeDown
	case "camera":
		return KeyCamera
	case "focus":
		return KeyFocus
	default:
		return KeyUnknown
	}
}

// IsAlertKey reports whether the alert screen consumes this key.
func (k KeyCode) IsAlertKey() bool {
	switch k {
	case KeyVolumeUp, KeyVolumeDown, KeyCamera, KeyFocus:
		return true
	default:
		return false
	}
}
