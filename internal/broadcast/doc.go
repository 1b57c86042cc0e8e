// Package broadcast carries alarm signals over MQTT.
//
// Other actors publish killed, snooze and dismiss signals for a firing alarm
// and raw accelerometer and magnetometer readings; the daemon publishes
// stop-playback and notification commands in return. RealBus talks to a
// broker through paho, FakeBus records traffic for tests.
package broadcast
