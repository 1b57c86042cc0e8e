// Package alarm contains core domain types for a firing alarm.
//
// It defines the Alarm being presented, the terminal-or-active session State,
// the VolumeKeyPolicy read from settings and the hardware KeyCode values the
// alert screen reacts to.
package alarm
