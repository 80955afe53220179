// Package store persists the product catalog and the per-day sales
// ledger as whole-file JSON documents.
//
// Every document is owned as a unit: reads take a shared flock for the
// full read, rewrites hold an exclusive flock across truncate and write,
// and appends compose read-decode-append-rewrite under one exclusive
// lock. A reader concurrent with a writer therefore sees either the
// pre-write or post-write document in full, never a torn one, and two
// concurrent appends cannot lose an update. The catalog document and each
// day's ledger document are independent locking domains.
//
// Locking is advisory: it coordinates processes that go through this
// package, not arbitrary writers to the same paths.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/calvinalkan/tillbook/internal/fs"
)

// DefaultLockTimeout bounds lock acquisition on every document
// operation. Contention is a handful of concurrent requests on one host,
// so hitting this means something is stuck, not busy.
const DefaultLockTimeout = 5 * time.Second

// DocumentFile performs locked whole-file reads and rewrites on a single
// path. It holds no per-path state; every operation opens, locks, and
// closes the backing file fresh.
type DocumentFile struct {
	fsys        fs.FS
	locker      *fs.Locker
	lockTimeout time.Duration
}

// NewDocumentFile returns an accessor using the given filesystem. A
// non-positive lockTimeout falls back to [DefaultLockTimeout].
func NewDocumentFile(fsys fs.FS, lockTimeout time.Duration) *DocumentFile {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}

	return &DocumentFile{
		fsys:        fsys,
		locker:      fs.NewLocker(fsys),
		lockTimeout: lockTimeout,
	}
}

// readDir lists a directory, treating a missing directory as empty (no
// document has ever been written there).
func (d *DocumentFile) readDir(path string) ([]os.DirEntry, error) {
	entries, err := d.fsys.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	return entries, err
}

// ReadAll returns the full contents of the document at path, read under
// a shared lock. A missing file yields (nil, nil): downstream stores
// treat "never written" as an empty collection. Lock or IO failures are
// returned, never silently mapped to empty.
func (d *DocumentFile) ReadAll(path string) ([]byte, error) {
	lock, err := d.locker.RLockWithTimeout(path, d.lockTimeout)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read-locking %s: %w", path, err)
	}

	defer func() { _ = lock.Close() }()

	data, err := io.ReadAll(lock.File())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}

// ReplaceAll overwrites the document at path with data under an
// exclusive lock, creating the file if absent, and flushes to stable
// storage before releasing the lock.
func (d *DocumentFile) ReplaceAll(path string, data []byte) error {
	lock, err := d.locker.LockWithTimeout(path, d.lockTimeout)
	if err != nil {
		return fmt.Errorf("write-locking %s: %w", path, err)
	}

	defer func() { _ = lock.Close() }()

	return rewrite(lock.File(), path, data)
}

// ReadModifyWrite runs fn on the document's current contents and
// replaces them with fn's result, all under a single exclusive lock.
// This is the only path that composes "read current state" and "write
// new state" as one atomic unit with respect to other processes; ledger
// appends go through it so they cannot race each other.
//
// fn returning nil bytes skips the write (read-only use). fn returning
// an error aborts without writing, which is how decode failures on
// existing content leave possibly-recoverable data untouched.
func (d *DocumentFile) ReadModifyWrite(path string, fn func(current []byte) ([]byte, error)) error {
	lock, err := d.locker.LockWithTimeout(path, d.lockTimeout)
	if err != nil {
		return fmt.Errorf("write-locking %s: %w", path, err)
	}

	defer func() { _ = lock.Close() }()

	file := lock.File()

	current, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	updated, err := fn(current)
	if err != nil {
		return err
	}

	if updated == nil {
		return nil
	}

	return rewrite(file, path, updated)
}

// rewrite truncates the locked file and writes data, syncing before the
// caller releases the lock.
func rewrite(file fs.File, path string, data []byte) error {
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", path, err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding %s: %w", path, err)
	}

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", path, err)
	}

	return nil
}

// updateRecords is the typed read-modify-write used by the stores:
// decode the current document, apply fn, re-encode. fn returning a nil
// slice skips the write.
func updateRecords[T any](doc *DocumentFile, path string, fn func(records []T) ([]T, error)) error {
	return doc.ReadModifyWrite(path, func(current []byte) ([]byte, error) {
		records, err := DecodeRecords[T](path, current)
		if err != nil {
			return nil, err
		}

		updated, err := fn(records)
		if err != nil {
			return nil, err
		}

		if updated == nil {
			return nil, nil
		}

		return EncodeRecords(updated)
	})
}
