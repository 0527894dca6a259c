// Package kv is the durable key-value storage used for camera and avatar state.
package kv

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get for keys that were never written
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("store is closed")
)

// Well-known keys
const (
	KeyCamera = "camera.state"
	KeyAvatar = "avatar.state"
)

// Store is a byte-oriented key-value store
type Store interface {
	ReadWriter
	Close() error
}

// Backend names accepted by Open
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Open creates a store for the named backend. path is ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(path)
	case BackendFile:
		return NewFile(path), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
