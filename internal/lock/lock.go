// Package lock serializes mutating commands across processes with a PID lockfile.
package lock

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/dytgt/internal/logger"
)

var (
	findProcessFunc = ps.FindProcess
	getpidFunc      = os.Getpid
)

// ErrLocked is returned when a live process holds the lock
var ErrLocked = errors.New("another dytgt process is running")

type Lock struct {
	path string
}

// holder is the content of a lockfile: "<pid>|<executable>"
type holder struct {
	pid        int
	executable string
}

// Acquire creates dir/name exclusively. A lockfile left by a process that is
// no longer running, or is malformed, is reclaimed and acquisition retried once.
func Acquire(dir, name string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(dir, name)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
		if err == nil {
			self := currentHolder()
			_, werr := fmt.Fprintf(f, "%d|%s", self.pid, self.executable)
			cerr := f.Close()
			if werr != nil || cerr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("failed to write lockfile: %w", errors.Join(werr, cerr))
			}
			logger.Debug("Acquired lock", "component", "lock", "path", path, "pid", self.pid)
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create lockfile: %w", err)
		}

		h, err := readHolder(path)
		if err == nil && h.alive() {
			return nil, fmt.Errorf("%w (pid %d)", ErrLocked, h.pid)
		}

		logger.Warn("Removing stale lockfile", "component", "lock", "path", path, "error", err)
		if err := reclaim(path); err != nil {
			return nil, err
		}
	}
	return nil, ErrLocked
}

// reclaim moves a stale lockfile to a name private to this process before
// deleting it. Another process may have reclaimed and re-acquired the lock
// since it was judged stale; a live holder found after the move is linked
// back into place.
func reclaim(path string) error {
	aside := fmt.Sprintf("%s.stale-%d", path, getpidFunc())
	if err := os.Rename(path, aside); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to move stale lockfile: %w", err)
	}
	defer os.Remove(aside)

	h, err := readHolder(aside)
	if err != nil || !h.alive() {
		return nil
	}
	if err := os.Link(aside, path); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("failed to restore lockfile: %w", err)
	}
	return fmt.Errorf("%w (pid %d)", ErrLocked, h.pid)
}

// Release removes the lockfile. Releasing twice is not an error.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *Lock) Path() string {
	return l.path
}

// Holder reports the PID recorded in an existing lockfile and whether that process is alive
func Holder(dir, name string) (pid int, alive bool, err error) {
	h, err := readHolder(filepath.Join(dir, name))
	if err != nil {
		return 0, false, err
	}
	return h.pid, h.alive(), nil
}

func currentHolder() holder {
	pid := getpidFunc()
	h := holder{pid: pid}
	if p, err := findProcessFunc(pid); err == nil && p != nil {
		h.executable = p.Executable()
	}
	return h
}

func readHolder(path string) (holder, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return holder{}, err
	}

	parts := strings.SplitN(strings.TrimSpace(string(content)), "|", 2)
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return holder{}, errors.New("invalid process ID in lockfile")
	}

	h := holder{pid: pid}
	if len(parts) == 2 {
		h.executable = parts[1]
	}
	return h, nil
}

// alive reports whether the PID is running and, when recorded, still the same executable
func (h holder) alive() bool {
	p, err := findProcessFunc(h.pid)
	if err != nil || p == nil {
		return false
	}
	if h.executable != "" && p.Executable() != h.executable {
		return false
	}
	return true
}
