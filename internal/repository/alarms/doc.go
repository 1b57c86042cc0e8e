// Package alarms implements persistence for alarm definitions and snoozes.
//
// The SQLiteRepository stores both in a single SQLite file (pure Go driver,
// no cgo) and migrates the schema on open. Alert sessions use it to record
// snooze fire times and to check whether the alarm they present still exists.
package alarms
