//go:build linux
// +build linux

package main

import (
	_ "time/tzdata"

	reaper "github.com/ramr/go-reaper"
)

// canarynet usually runs as PID 1 in its container, so it has to reap
// the children orphaned by stopped fixture and grid processes
//nolint:gochecknoinits
func init() {
	go reaper.Reap()
}
