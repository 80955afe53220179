package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrWouldBlock is returned when a lock cannot be acquired without
	// waiting: by [Locker.TryLock]/[Locker.TryRLock] when the lock is held
	// elsewhere, and by the *WithTimeout methods when the timeout expires.
	ErrWouldBlock = errors.New("lock would block")

	// ErrInvalidTimeout is returned when a timeout is <= 0.
	ErrInvalidTimeout = errors.New("invalid lock timeout")

	// errInodeMismatch is an internal sentinel indicating the file at path
	// was replaced between open and flock. Callers retry.
	errInodeMismatch = errors.New("inode mismatch")
)

// Locker provides advisory file locking using flock(2).
//
// flock is advisory and applies to an inode, not a pathname: every
// cooperating reader and writer must take the lock for it to have effect,
// and it does not protect against foreign writers that skip it.
//
// Exclusive locks open the file with O_RDWR|O_CREATE, creating the file
// (and parent directories) lazily; shared locks open with O_RDONLY and
// fail with [os.ErrNotExist] when the file is absent, so readers can map
// "never written" to an empty document without creating stray files.
//
// Locker verifies that the descriptor it locked still refers to the file
// currently at path at the moment the lock is acquired, protecting the
// open-to-flock window against rename or delete+recreate. Avoid replacing
// a locked file while locks may be held; rewrite it in place through the
// held descriptor instead.
//
// This implementation is Unix-only.
type Locker struct {
	fs    FS
	flock func(fd int, how int) error
}

// NewLocker creates a Locker that uses the given filesystem.
func NewLocker(fsys FS) *Locker {
	return &Locker{
		fs:    fsys,
		flock: unix.Flock,
	}
}

// Lock represents a held file lock. Call [Lock.Close] to release it.
type Lock struct {
	mu    sync.Mutex
	file  File
	flock func(fd int, how int) error
}

// File returns the locked descriptor, valid until [Lock.Close].
//
// The stores read and rewrite documents through this descriptor so the
// whole read-truncate-write cycle happens under one lock.
func (lk *Lock) File() File {
	lk.mu.Lock()
	defer lk.mu.Unlock()

	return lk.file
}

// Close releases the lock and closes the underlying descriptor.
//
// Close is idempotent. On Unix, closing a descriptor releases any flock
// held through it, so even when the explicit unlock fails the lock is
// usually gone once the close succeeds. If both fail, the returned error
// wraps both (see [errors.Join]); there is little a caller can do beyond
// logging it.
func (lk *Lock) Close() error {
	lk.mu.Lock()
	defer lk.mu.Unlock()

	if lk.file == nil {
		return nil
	}

	fd := int(lk.file.Fd())

	unlockErr := flockRetryEINTR(lk.flock, fd, unix.LOCK_UN)
	closeErr := lk.file.Close()
	lk.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

// Lock acquires an exclusive lock on the file at path, blocking in the
// kernel until the lock is available. The file and parent directories are
// created lazily if absent.
//
// Use [Locker.LockWithTimeout] to avoid unbounded blocking.
func (l *Locker) Lock(path string) (*Lock, error) {
	return l.lockBlocking(path, exclusiveLock)
}

// RLock acquires a shared (read) lock on the file at path, blocking until
// the lock is available.
//
// Multiple shared locks may be held simultaneously; a shared lock blocks
// exclusive locks and vice versa. Returns an error satisfying
// [os.ErrNotExist] when the file does not exist.
func (l *Locker) RLock(path string) (*Lock, error) {
	return l.lockBlocking(path, sharedLock)
}

// LockWithTimeout attempts to acquire an exclusive lock, retrying
// non-blocking flock calls with exponential backoff (1ms to 25ms) until
// the timeout expires.
//
// The timeout is best-effort; polling may overshoot slightly under
// scheduler delay. Returns an error satisfying [errors.Is] with
// [ErrWouldBlock] on expiry and [ErrInvalidTimeout] if timeout <= 0.
func (l *Locker) LockWithTimeout(path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be > 0", ErrInvalidTimeout)
	}

	return l.lockPolling(path, exclusiveLock, timeout)
}

// RLockWithTimeout attempts to acquire a shared lock, retrying with
// backoff until the timeout expires. See [Locker.RLock] for shared lock
// semantics and [Locker.LockWithTimeout] for timeout behavior.
func (l *Locker) RLockWithTimeout(path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be > 0", ErrInvalidTimeout)
	}

	return l.lockPolling(path, sharedLock, timeout)
}

// TryLock attempts to acquire an exclusive lock without blocking,
// returning [ErrWouldBlock] immediately when the lock is held elsewhere.
func (l *Locker) TryLock(path string) (*Lock, error) {
	return l.lockPolling(path, exclusiveLock, 0)
}

// TryRLock attempts to acquire a shared lock without blocking.
func (l *Locker) TryRLock(path string) (*Lock, error) {
	return l.lockPolling(path, sharedLock, 0)
}

type lockType int

const (
	sharedLock    lockType = unix.LOCK_SH
	exclusiveLock lockType = unix.LOCK_EX
)

type lockMode int

const (
	lockModeBlocking lockMode = iota + 1
	lockModeNonBlocking
)

func (l *Locker) lockBlocking(path string, lt lockType) (*Lock, error) {
	for {
		file, err := l.openLockFile(path, lt)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}

		err = l.acquire(file, path, lt, lockModeBlocking)
		if err == nil {
			return &Lock{file: file, flock: l.flock}, nil
		}

		_ = file.Close()

		if errors.Is(err, errInodeMismatch) {
			continue
		}

		return nil, err
	}
}

// lockPolling attempts to acquire a lock using non-blocking flock.
//
//   - timeout == 0: try once (TryLock behavior)
//   - timeout > 0: retry with backoff until timeout
func (l *Locker) lockPolling(path string, lt lockType, timeout time.Duration) (*Lock, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	backoff := time.Millisecond

	for {
		file, err := l.openLockFile(path, lt)
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", path, err)
		}

		err = l.acquire(file, path, lt, lockModeNonBlocking)
		if err == nil {
			return &Lock{file: file, flock: l.flock}, nil
		}

		_ = file.Close()

		retryable := errors.Is(err, ErrWouldBlock) || errors.Is(err, errInodeMismatch)
		if !retryable {
			return nil, err
		}

		if timeout == 0 {
			if errors.Is(err, errInodeMismatch) {
				return nil, fmt.Errorf("%w: file was replaced while acquiring lock", ErrWouldBlock)
			}

			return nil, ErrWouldBlock
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: timed out after %s", ErrWouldBlock, timeout)
		}

		time.Sleep(min(backoff, remaining))

		if backoff < maxBackoff {
			backoff = min(backoff*2, maxBackoff)
		}
	}
}

const maxBackoff = 25 * time.Millisecond

// acquire flocks the given file and verifies the inode still matches
// path. On failure the file is unlocked if needed but NOT closed; the
// caller closes it.
func (l *Locker) acquire(file File, path string, lt lockType, mode lockMode) error {
	fd := int(file.Fd())

	flags := int(lt)
	if mode == lockModeNonBlocking {
		flags |= unix.LOCK_NB
	}

	if err := flockRetryEINTR(l.flock, fd, flags); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return ErrWouldBlock
		}

		return fmt.Errorf("flock: %w", err)
	}

	match, err := l.inodeMatchesPath(path, file)
	if err != nil {
		_ = flockRetryEINTR(l.flock, fd, unix.LOCK_UN)

		if errors.Is(err, os.ErrNotExist) {
			// Deleted while we waited. Shared lockers report not-exist to
			// the caller; exclusive lockers recreate on retry.
			if lt == sharedLock {
				return err
			}

			return errInodeMismatch
		}

		return fmt.Errorf("verifying inode match: %w", err)
	}

	if !match {
		_ = flockRetryEINTR(l.flock, fd, unix.LOCK_UN)

		return errInodeMismatch
	}

	return nil
}

const (
	lockFilePerm = 0o644
	lockDirPerm  = 0o755
)

func (l *Locker) openLockFile(path string, lt lockType) (File, error) {
	if lt == sharedLock {
		return l.fs.Open(path)
	}

	f, err := l.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return f, err
	}

	if err := l.fs.MkdirAll(filepath.Dir(path), lockDirPerm); err != nil {
		return nil, err
	}

	return l.fs.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm)
}

// inodeMatchesPath reports whether f still refers to the file currently
// at path.
//
// flock locks an inode, not a pathname. A pathname can be replaced while
// a locker is blocked waiting (rename, delete+recreate, editors writing
// via temp+rename), after which two processes can each hold a lock on a
// different inode while both believe they locked the path. Comparing
// (dev, ino) of the open descriptor against the path immediately after
// flock closes that window; on mismatch the caller unlocks and retries.
func (l *Locker) inodeMatchesPath(path string, f File) (bool, error) {
	openInfo, err := f.Stat()
	if err != nil {
		return false, err
	}

	openSys, ok := openInfo.Sys().(*syscall.Stat_t)
	if !ok || openSys == nil {
		return false, fmt.Errorf("file.Stat Sys=%T, want *syscall.Stat_t", openInfo.Sys())
	}

	pathInfo, err := l.fs.Stat(path)
	if err != nil {
		return false, err
	}

	pathSys, ok := pathInfo.Sys().(*syscall.Stat_t)
	if !ok || pathSys == nil {
		return false, fmt.Errorf("fs.Stat Sys=%T, want *syscall.Stat_t", pathInfo.Sys())
	}

	return openSys.Dev == pathSys.Dev && openSys.Ino == pathSys.Ino, nil
}

// flockRetryEINTR wraps flock, retrying on EINTR.
//
// Signals (SIGCHLD, SIGWINCH, timers) can interrupt a blocking syscall
// before it completes; the call just needs to be retried. Retries are
// capped to avoid spinning under a pathological signal storm.
func flockRetryEINTR(flock func(fd int, how int) error, fd int, how int) error {
	const maxEINTRRetries = 10000

	var err error
	for i := 0; i < maxEINTRRetries; i++ {
		err = flock(fd, how)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}
