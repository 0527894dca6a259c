package bridge

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/gabe/mobwatch/internal/protocol"
)

const (
	commandsFileName = "commands.jsonl"
	spoolExt         = ".jsonl"
	maxSpoolBacklog  = 4096
)

// SpoolSource reads events from *.jsonl files in a directory, one event per
// line. Each file is read from its own offset, so producers may append to
// any file at any time. Events are numbered in the order they are first
// seen and the cursor is that number. Commands are appended to
// commands.jsonl in the same directory.
type SpoolSource struct {
	dir       string
	validator *protocol.Validator
	debounce  time.Duration
	mu        sync.Mutex // serialises appends

	scanMu  sync.Mutex
	offsets map[string]int64
	base    uint64 // cursor of buf[0]
	buf     []protocol.Event
}

// NewSpoolSource creates the spool directory if needed
func NewSpoolSource(dir string) (*SpoolSource, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	return &SpoolSource{
		dir:       dir,
		validator: protocol.Default(),
		debounce:  100 * time.Millisecond,
		offsets:   make(map[string]int64),
	}, nil
}

// Dir returns the spool directory
func (s *SpoolSource) Dir() string {
	return s.dir
}

func isEventFile(name string) bool {
	return strings.HasSuffix(name, spoolExt) && name != commandsFileName
}

func (s *SpoolSource) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read spool directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && isEventFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *SpoolSource) Poll(ctx context.Context, cursor uint64) (protocol.Batch, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	skipped, err := s.scan(ctx)
	if err != nil {
		return protocol.Batch{}, err
	}

	end := s.base + uint64(len(s.buf))
	if cursor < s.base {
		cursor = s.base
	}
	if cursor >= end {
		return protocol.Batch{Cursor: max(cursor, end), Skipped: skipped}, nil
	}
	events := make([]protocol.Event, end-cursor)
	copy(events, s.buf[cursor-s.base:])
	return protocol.Batch{Cursor: end, Events: events, Skipped: skipped}, nil
}

// scan indexes every complete line written since the last scan
func (s *SpoolSource) scan(ctx context.Context) (int, error) {
	names, err := s.files()
	if err != nil {
		return 0, err
	}
	skipped := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return skipped, err
		}
		n, err := s.readFile(name)
		skipped += n
		if err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}

// readFile appends the complete lines past name's offset to the index. A
// line still being written stays unread until its newline lands.
func (s *SpoolSource) readFile(name string) (int, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open spool file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat spool file: %w", err)
	}
	offset := s.offsets[name]
	if info.Size() < offset {
		// Truncated and rewritten; what is there now is new.
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("failed to seek spool file: %w", err)
	}

	skipped := 0
	r := bufio.NewReader(f)
	for {
		data, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.offsets[name] = offset
			return skipped, fmt.Errorf("failed to read spool file: %w", err)
		}
		offset += int64(len(data))

		data = bytes.TrimSpace(data)
		if len(data) == 0 {
			continue
		}
		ev, err := s.validator.DecodeEvent(data)
		if err != nil {
			skipped++
			continue
		}
		s.index(ev)
	}
	s.offsets[name] = offset
	return skipped, nil
}

func (s *SpoolSource) index(ev protocol.Event) {
	s.buf = append(s.buf, ev)
	if over := len(s.buf) - maxSpoolBacklog; over > 0 {
		s.buf = append([]protocol.Event(nil), s.buf[over:]...)
		s.base += uint64(over)
	}
}

// Watch signals shortly after any event file in the spool is written
func (s *SpoolSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch spool directory: %w", err)
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()
		defer close(changes)

		var timer *time.Timer
		var fire <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-fire:
				fire = nil
				select {
				case changes <- struct{}{}:
				default:
				}
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isEventFile(filepath.Base(event.Name)) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				// Debounce bursts of appends into one wake-up.
				if timer == nil {
					timer = time.NewTimer(s.debounce)
				} else {
					timer.Reset(s.debounce)
				}
				fire = timer.C
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return changes, nil
}

// Send appends cmd to commands.jsonl
func (s *SpoolSource) Send(ctx context.Context, cmd protocol.Command) error {
	data, err := s.validator.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return s.appendLine(commandsFileName, data)
}

// Append writes an event to the named spool file. Producers on the same
// machine can use it instead of writing JSON by hand.
func (s *SpoolSource) Append(file string, ev protocol.Event) error {
	if !isEventFile(file) {
		return fmt.Errorf("spool file %q must end in %s", file, spoolExt)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.appendLine(file, data)
}

func (s *SpoolSource) appendLine(file string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, file), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", file, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s: %w", file, err)
	}
	return nil
}

// Commands reads back every command written to the spool
func (s *SpoolSource) Commands() ([]protocol.Command, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, commandsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read commands: %w", err)
	}

	var cmds []protocol.Command
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		cmd, err := s.validator.DecodeCommand(line)
		if err != nil {
			continue
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
