// Package instance keeps a single daemon per host by scanning the process table.
package instance
