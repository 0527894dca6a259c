package kv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// File keeps every key in one JSON document. Writes go through a temp file
// and rename, and an flock serialises access from other processes.
type File struct {
	filepath string
	mu       sync.Mutex
	closed   bool
}

// fileData is the on-disk format; values are base64 encoded by encoding/json
type fileData struct {
	Values map[string][]byte `json:"values"`
}

// NewFile creates a file-backed store at path
func NewFile(path string) *File {
	return &File{filepath: path}
}

// load reads the document from disk (must hold lock)
func (f *File) load() (*fileData, error) {
	data := &fileData{Values: make(map[string][]byte)}

	content, err := os.ReadFile(f.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return data, nil
		}
		return nil, err
	}
	if len(content) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(content, data); err != nil {
		return nil, err
	}
	if data.Values == nil {
		data.Values = make(map[string][]byte)
	}
	return data, nil
}

// save writes the document to disk (must hold lock)
func (f *File) save(data *fileData) error {
	if err := os.MkdirAll(filepath.Dir(f.filepath), 0755); err != nil {
		return err
	}
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	tmpFile := f.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, content, 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile, f.filepath)
}

// withFileLock executes fn with an exclusive lock on a sidecar file
func (f *File) withFileLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(f.filepath), 0755); err != nil {
		return err
	}
	lock, err := os.OpenFile(f.filepath+".lock", os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer lock.Close()

	if err := syscall.Flock(int(lock.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(lock.Fd()), syscall.LOCK_UN)

	return fn()
}

// Get returns the value stored under key
func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	var result []byte
	err := f.withFileLock(func() error {
		data, err := f.load()
		if err != nil {
			return err
		}
		value, ok := data.Values[key]
		if !ok {
			return ErrNotFound
		}
		result = value
		return nil
	})
	return result, err
}

// Put stores value under key
func (f *File) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	return f.withFileLock(func() error {
		data, err := f.load()
		if err != nil {
			return err
		}
		data.Values[key] = append([]byte(nil), value...)
		return f.save(data)
	})
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
