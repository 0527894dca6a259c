// Package journal keeps a durable, compressed copy of the activity log.
//
// Records are written as JSON lines into zstd-compressed files rotated every
// hour, named activity-YYYY-MM-DD-HH.jsonl.zst.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/gabe/mobwatch/internal/clock"
	"github.com/gabe/mobwatch/internal/models"
)

const (
	filePrefix = "activity"
	fileSuffix = ".jsonl.zst"
	hourLayout = "2006-01-02-15"
)

var (
	// ErrClosed is returned by Append after Close
	ErrClosed = errors.New("journal is closed")
	// ErrQueueFull is returned when records arrive faster than the disk takes them
	ErrQueueFull = errors.New("journal queue is full")
)

const (
	DefaultQueueSize     = 1024
	DefaultFlushInterval = time.Second
)

type entry struct {
	hour string
	rec  models.ActivityRecord
}

// Writer appends activity records to the current hour's file. Append only
// queues; a background goroutine encodes, writes and periodically flushes.
type Writer struct {
	dir        string
	clock      clock.Clock
	queueSize  int
	flushEvery time.Duration

	mu      sync.Mutex
	closed  bool
	onError func(error)
	queue   chan entry
	done    chan struct{}

	// owned by the background goroutine
	curHour  string
	f        *os.File
	enc      *zstd.Encoder
	w        *bufio.Writer
	dirty    bool
	closeErr error
}

// Option configures a Writer
type Option func(*Writer)

// WithClock sets the time source used to pick the file
func WithClock(c clock.Clock) Option {
	return func(w *Writer) {
		w.clock = c
	}
}

// WithQueueSize sets how many records may wait for the disk
func WithQueueSize(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithFlushInterval sets how long written records may sit in buffers
// before readers can see them
func WithFlushInterval(d time.Duration) Option {
	return func(w *Writer) {
		if d > 0 {
			w.flushEvery = d
		}
	}
}

// NewWriter creates a writer under dir and starts its background goroutine.
// Files are opened lazily.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		dir:        dir,
		clock:      clock.Real{},
		queueSize:  DefaultQueueSize,
		flushEvery: DefaultFlushInterval,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan entry, w.queueSize)
	go w.loop()
	return w
}

// Dir returns the journal directory
func (w *Writer) Dir() string {
	return w.dir
}

// SetErrorHandler is called from the background goroutine when a record
// cannot be written
func (w *Writer) SetErrorHandler(fn func(error)) {
	w.mu.Lock()
	w.onError = fn
	w.mu.Unlock()
}

// Append queues one record for the file of the hour it was appended in. It
// never waits for the disk.
func (w *Writer) Append(rec models.ActivityRecord) error {
	e := entry{hour: w.clock.Now().UTC().Format(hourLayout), rec: rec}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.queue <- e:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-w.queue:
			if !ok {
				w.closeErr = w.closeFile()
				return
			}
			if err := w.write(e); err != nil {
				w.report(err)
			}
		case <-ticker.C:
			if err := w.flush(); err != nil {
				w.report(err)
			}
		}
	}
}

func (w *Writer) report(err error) {
	w.mu.Lock()
	fn := w.onError
	w.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}

func (w *Writer) write(e entry) error {
	if e.hour != w.curHour {
		if err := w.rotate(e.hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(e.rec)
	if err != nil {
		return fmt.Errorf("failed to marshal activity record: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("failed to write activity record: %w", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write activity record: %w", err)
	}
	w.dirty = true
	return nil
}

// flush pushes buffered records through the encoder so readers see them
func (w *Writer) flush() error {
	if !w.dirty || w.w == nil {
		return nil
	}
	w.dirty = false
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush journal: %w", err)
	}
	return w.enc.Flush()
}

func (w *Writer) rotate(hour string) error {
	if err := w.closeFile(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}
	f, err := os.OpenFile(pathForHour(w.dir, hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file: %w", err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

// Close writes everything still queued, ends the current frame and closes
// the file
func (w *Writer) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	<-w.done
	return w.closeErr
}

func (w *Writer) closeFile() error {
	var err error
	if w.w != nil {
		w.w.Flush()
	}
	if w.enc != nil {
		err = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.dirty = false
	w.curHour = ""
	return err
}

func pathForHour(dir, hour string) string {
	return filepath.Join(dir, filePrefix+"-"+hour+fileSuffix)
}
