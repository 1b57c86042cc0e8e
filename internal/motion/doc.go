// Package motion turns raw accelerometer and magnetometer readings into a
// pick-up gesture.
//
// Fusion derives azimuth, pitch and roll once both sensors have reported.
// Detector folds each orientation into an integer tilt magnitude, averages
// the absolute deltas over fixed windows of eight samples and fires when two
// consecutive window averages differ by more than SensitivityThreshold.
// Slow drift never fires; the first window only records a baseline.
//
// The package is pure: no goroutines, clocks or I/O.
package motion
