package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// WritePID records pid in path, replacing the file atomically so a reader
// never sees a partial number
func WritePID(path string, pid int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pid-*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(strconv.Itoa(pid) + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadPID reads the process ID from a file
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed PID file %s: %w", filepath.Base(path), err)
	}
	return pid, nil
}

// RemovePID removes the PID file; a missing file is not an error
func RemovePID(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsProcessRunning checks if a process with the given PID is running
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// signal 0 only probes; EPERM still means the process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}

// CheckExistingDaemon reports whether the PID file names a live process.
// Stale or malformed files are removed.
func CheckExistingDaemon(pidFile string) (bool, int, error) {
	pid, err := ReadPID(pidFile)
	if os.IsNotExist(err) {
		return false, 0, nil
	}
	if err != nil {
		RemovePID(pidFile)
		return false, 0, nil
	}

	if IsProcessRunning(pid) {
		return true, pid, nil
	}

	RemovePID(pidFile)
	return false, 0, nil
}
