// Package config defines the settings used by the alarm-alert binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Besides connection parameters (control address, MQTT broker, database,
// metrics listener) the file carries the alert preferences that every new
// session captures through SessionSettings.
package config
