// Package lock implements a directory-based advisory lock usable by any
// process on the same filesystem. Lock acquisition is an atomic mkdir;
// the holder metadata inside the lock directory is advisory only.
package lock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultTimeout bounds blocking acquisition attempts.
	DefaultTimeout = 30 * time.Second
	// DefaultPollInterval is the sleep between acquisition attempts.
	DefaultPollInterval = 50 * time.Millisecond
	// DefaultStaleAfter is the age past which an unrefreshed lock is
	// considered abandoned.
	DefaultStaleAfter = 5 * time.Minute

	metaFilename = "holder.json"
)

// TimeoutError is returned when the lock cannot be acquired within the
// configured timeout. It carries the last-known holder description so
// callers can decide whether to retry or abort.
type TimeoutError struct {
	Path    string
	Timeout time.Duration
	Holder  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("could not acquire lock on %s after %s (holder: %s)",
		e.Path, e.Timeout, e.Holder)
}

// holderMeta is written into the lock directory for diagnostics. The
// numeric AcquiredAtTS is what staleness comparisons use; the display
// string is never reparsed.
type holderMeta struct {
	PID          int     `json:"pid"`
	AcquiredAt   string  `json:"acquired_at"`
	AcquiredAtTS float64 `json:"acquired_at_ts"`
	Path         string  `json:"path"`
	Token        string  `json:"token,omitempty"`
}

// DirLock guards a path through a sibling <path>.lock directory. The
// directory's existence is the lock.
type DirLock struct {
	path         string
	lockDir      string
	metaPath     string
	timeout      time.Duration
	pollInterval time.Duration
	staleAfter   time.Duration
	held         bool
	token        string
	logger       logrus.FieldLogger
}

// Option configures a DirLock.
type Option func(*DirLock)

// WithTimeout bounds blocking Acquire calls.
func WithTimeout(d time.Duration) Option {
	return func(l *DirLock) { l.timeout = d }
}

// WithPollInterval sets the sleep between acquisition attempts.
func WithPollInterval(d time.Duration) Option {
	return func(l *DirLock) { l.pollInterval = d }
}

// WithStaleAfter sets the age past which an abandoned lock is reclaimed.
func WithStaleAfter(d time.Duration) Option {
	return func(l *DirLock) { l.staleAfter = d }
}

// New creates a lock for the given path. The lock directory is derived as
// <path>.lock.
func New(path string, logger logrus.FieldLogger, opts ...Option) *DirLock {
	lockDir := path + ".lock"
	l := &DirLock{
		path:         path,
		lockDir:      lockDir,
		metaPath:     filepath.Join(lockDir, metaFilename),
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
		staleAfter:   DefaultStaleAfter,
		token:        ulid.Make().String(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	// Safety net: a leaked held lock is released when the instance is
	// collected, mirroring holder-crash reclamation for in-process leaks.
	runtime.SetFinalizer(l, func(fl *DirLock) {
		if fl.held {
			fl.Release()
		}
	})
	return l
}

// Acquire attempts to take the lock. With blocking=false it returns
// immediately; otherwise it polls until the timeout elapses, at which
// point a TimeoutError carrying the holder description is returned.
func (l *DirLock) Acquire(blocking bool) (bool, error) {
	start := time.Now()
	for {
		err := os.Mkdir(l.lockDir, 0o755)
		if err == nil {
			l.writeMeta()
			l.held = true
			l.logger.WithField("lock", l.lockDir).Debug("lock acquired")
			return true, nil
		}
		if !os.IsExist(err) {
			return false, errors.Wrapf(err, "create lock dir %s", l.lockDir)
		}

		if l.breakStale() {
			continue // reclaimed, retry immediately
		}
		if !blocking {
			return false, nil
		}
		if time.Since(start) >= l.timeout {
			return false, &TimeoutError{Path: l.path, Timeout: l.timeout, Holder: l.holderDesc()}
		}
		time.Sleep(l.pollInterval)
	}
}

// Release removes the holder metadata and then the lock directory. Safe
// to call when the lock is not held.
func (l *DirLock) Release() {
	if !l.held {
		return
	}
	if err := os.Remove(l.metaPath); err != nil && !os.IsNotExist(err) {
		l.logger.WithError(err).WithField("lock", l.lockDir).Warn("error removing lock metadata")
	}
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		l.logger.WithError(err).WithField("lock", l.lockDir).Warn("error releasing lock")
	} else {
		l.logger.WithField("lock", l.lockDir).Debug("lock released")
	}
	l.held = false
}

// Held reports whether this instance currently holds the lock.
func (l *DirLock) Held() bool {
	return l.held
}

// breakStale reclaims the existing lock if its holder appears gone.
// Check order: missing metadata falls back to directory age; a holder
// whose process verifiably no longer runs is reclaimed immediately
// regardless of age; a verifiably live holder is never reclaimed by age
// alone; only when liveness cannot be determined does the stored numeric
// timestamp decide.
func (l *DirLock) breakStale() bool {
	raw, err := os.ReadFile(l.metaPath)
	if err != nil {
		// Lock dir without metadata: holder likely crashed mid-acquire.
		info, statErr := os.Stat(l.lockDir)
		if statErr != nil {
			return false // lock vanished, caller retries mkdir
		}
		if time.Since(info.ModTime()) > l.staleAfter {
			l.logger.WithField("lock", l.lockDir).Warn("breaking metadata-less stale lock")
			l.forceBreak()
			return true
		}
		return false
	}

	var meta holderMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		// Corrupt metadata is treated like missing metadata.
		info, statErr := os.Stat(l.lockDir)
		if statErr == nil && time.Since(info.ModTime()) > l.staleAfter {
			l.forceBreak()
			return true
		}
		return false
	}

	if meta.PID == os.Getpid() {
		return false // our own process holds it, trivially alive
	}
	if meta.PID > 0 {
		alive, err := process.PidExists(int32(meta.PID))
		if err == nil {
			if !alive {
				l.logger.WithFields(logrus.Fields{
					"lock": l.lockDir,
					"pid":  meta.PID,
				}).Warn("breaking orphaned lock, holder process gone")
				l.forceBreak()
				return true
			}
			return false // live holder, never reclaimed by age
		}
		// Liveness unknown, fall through to the age check.
	}

	age := time.Since(time.Unix(0, int64(meta.AcquiredAtTS*float64(time.Second))))
	if meta.AcquiredAtTS > 0 && age > l.staleAfter {
		l.logger.WithFields(logrus.Fields{
			"lock": l.lockDir,
			"pid":  meta.PID,
			"age":  age.Truncate(time.Second),
		}).Warn("breaking stale lock")
		l.forceBreak()
		return true
	}
	return false
}

func (l *DirLock) forceBreak() {
	if err := os.Remove(l.metaPath); err != nil && !os.IsNotExist(err) {
		l.logger.WithError(err).Debug("stale lock metadata removal failed")
	}
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		l.logger.WithError(err).Debug("stale lock dir removal failed")
	}
}

// writeMeta records holder info. Failure is non-critical: the lock is
// held regardless, and acquirers treat missing metadata via the age path.
func (l *DirLock) writeMeta() {
	now := time.Now()
	meta := holderMeta{
		PID:          os.Getpid(),
		AcquiredAt:   now.Format(time.RFC3339Nano),
		AcquiredAtTS: float64(now.UnixNano()) / float64(time.Second),
		Path:         l.path,
		Token:        l.token,
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := os.WriteFile(l.metaPath, raw, 0o644); err != nil {
		l.logger.WithError(err).Debug("could not write lock metadata")
	}
}

// holderDesc summarizes the current holder for timeout diagnostics.
func (l *DirLock) holderDesc() string {
	raw, err := os.ReadFile(l.metaPath)
	if err != nil {
		return "unknown"
	}
	var meta holderMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "unknown"
	}
	return fmt.Sprintf("pid=%d, acquired=%s", meta.PID, meta.AcquiredAt)
}
