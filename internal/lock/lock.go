// Package lock provides a drop-in replacement for sync.RWMutex which
// detects potential deadlocks.
package lock

import "github.com/sasha-s/go-deadlock"

// RWMutex is a drop-in replacement for sync.RWMutex backed by
// go-deadlock's detector.
type RWMutex = deadlock.RWMutex
