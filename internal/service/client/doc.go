// Package client runs alarm-alert-ctl inputs against the daemon.
//
// Each input connects, sends one request with the caller identity attached
// and logs the session as the daemon reports it afterwards.
package client
