package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ReadWriter is the part of a Store that callers read and write through
type ReadWriter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Writer moves Puts off the caller's goroutine. Only the latest value per
// key is kept until a background goroutine hands it to the store, and Get
// sees values that have not reached the store yet.
type Writer struct {
	store   ReadWriter
	onError func(key string, err error)

	mu       sync.Mutex
	pending  map[string][]byte
	inflight map[string][]byte
	closed   bool
	lastErr  error

	drainMu sync.Mutex
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// WriterOption configures a Writer
type WriterOption func(*Writer)

// WithErrorHandler is called from the background goroutine when a write fails
func WithErrorHandler(fn func(key string, err error)) WriterOption {
	return func(w *Writer) {
		w.onError = fn
	}
}

// NewWriter starts a background writer in front of store. The store stays
// owned by the caller; Close does not close it.
func NewWriter(store ReadWriter, opts ...WriterOption) *Writer {
	w := &Writer{
		store:    store,
		pending:  make(map[string][]byte),
		inflight: make(map[string][]byte),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.loop()
	return w
}

// Put queues value for key and returns without touching the store
func (w *Writer) Put(_ context.Context, key string, value []byte) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.pending[key] = append([]byte(nil), value...)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Get returns the newest value for key, queued or stored
func (w *Writer) Get(ctx context.Context, key string) ([]byte, error) {
	w.mu.Lock()
	v, ok := w.pending[key]
	if !ok {
		v, ok = w.inflight[key]
	}
	w.mu.Unlock()
	if ok {
		return append([]byte(nil), v...), nil
	}
	return w.store.Get(ctx, key)
}

func (w *Writer) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.stop:
			return
		case <-w.wake:
			w.drain(context.Background())
		}
	}
}

// drain writes everything queued so far. Drains never overlap, so writes to
// one key reach the store in the order they were queued.
func (w *Writer) drain(ctx context.Context) error {
	w.drainMu.Lock()
	defer w.drainMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string][]byte)
	w.inflight = batch
	w.mu.Unlock()

	var errs []error
	for key, value := range batch {
		if err := w.store.Put(ctx, key, value); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", key, err))
			if w.onError != nil {
				w.onError(key, err)
			}
		}
	}

	err := errors.Join(errs...)
	w.mu.Lock()
	w.inflight = make(map[string][]byte)
	if err != nil {
		w.lastErr = err
	}
	w.mu.Unlock()
	return err
}

// Close stops the background goroutine and writes whatever is still queued.
// It returns the most recent write failure, if any. Later Puts fail with
// ErrClosed.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	<-w.done
	w.drain(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
