// Package blobstore persists object bytes on the local filesystem. Uploads
// are streamed into a staging file and later published to their canonical
// location with a rename, falling back to copy-then-delete.
package blobstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/zeebo/errs"
	"golang.org/x/crypto/blake2b"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/dmitrijs2005/filekeeper/internal/filex"
)

// Error is the error class for blob store failures.
var Error = errs.Class("blobstore")

const stagingSuffix = ".part"

// WriteResult describes bytes committed to a staging file.
type WriteResult struct {
	Size     int64
	Checksum string
}

// Store manages a staging directory and a final directory. Both must live
// on the same filesystem for publish to be a rename.
type Store struct {
	stagingDir string
	finalDir   string

	rename   func(oldpath, newpath string) error
	copyFile func(src, dst string) error
	remove   func(path string) error
}

// Option configures a Store.
type Option func(*Store)

// WithRenameFunc replaces os.Rename for publishing, e.g. to force the copy
// fallback.
func WithRenameFunc(fn func(oldpath, newpath string) error) Option {
	return func(s *Store) { s.rename = fn }
}

// ErrStagingLeftover is returned by Publish when the object was copied to its
// canonical path but the staging source could not be removed. The object is
// published; the leftover is collected by the orphan reaper.
var ErrStagingLeftover = errors.New("staging file left behind after copy")

// New creates the staging and final directories when missing.
func New(stagingDir, finalDir string, opts ...Option) (*Store, error) {
	if _, err := filex.EnsureDir(stagingDir); err != nil {
		return nil, Error.Wrap(err)
	}
	if _, err := filex.EnsureDir(finalDir); err != nil {
		return nil, Error.Wrap(err)
	}
	s := &Store{
		stagingDir: stagingDir,
		finalDir:   finalDir,
		rename:     os.Rename,
		copyFile:   filex.CopyFile,
		remove:     os.Remove,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StagingDir returns the directory holding in-flight uploads.
func (s *Store) StagingDir() string { return s.stagingDir }

// StagingPath returns the staging file for an upload id.
func (s *Store) StagingPath(id string) string {
	return filepath.Join(s.stagingDir, id+stagingSuffix)
}

// CanonicalPath returns the final location for a stored name.
func (s *Store) CanonicalPath(storedName string) string {
	return filepath.Join(s.finalDir, storedName)
}

// Write streams r into a new file at path in chunks sized by ChunkSize(sizeHint),
// hashing as it goes. The file is synced before Write returns. ctx is checked
// between chunks; on cancellation or any I/O error the partial file is removed
// and the returned error wraps the cause (context.Canceled included).
func (s *Store) Write(ctx context.Context, path string, r io.Reader, sizeHint int64) (_ WriteResult, err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return WriteResult{}, Error.Wrap(err)
	}
	closed := false
	defer func() {
		if err == nil {
			return
		}
		var closeErr error
		if !closed {
			closeErr = f.Close()
		}
		err = Error.Wrap(errs.Combine(err, closeErr, os.Remove(path)))
	}()

	h, err := blake2b.New256(nil)
	if err != nil {
		return WriteResult{}, err
	}

	buf := make([]byte, ChunkSize(sizeHint))
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return WriteResult{}, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return WriteResult{}, err
			}
			h.Write(buf[:n])
			written += int64(n)
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return WriteResult{}, rerr
		}
	}

	if err := f.Sync(); err != nil {
		return WriteResult{}, err
	}
	closed = true
	if err := f.Close(); err != nil {
		return WriteResult{}, err
	}

	return WriteResult{Size: written, Checksum: hex.EncodeToString(h.Sum(nil))}, nil
}

// Publish moves the staging file to its canonical path. When rename fails
// (e.g. across devices) it copies with fsync and then removes the source.
// When the copy succeeds but the source cannot be removed the returned error
// wraps ErrStagingLeftover and the object counts as published.
func (s *Store) Publish(staging, canonical string) error {
	renameErr := s.rename(staging, canonical)
	if renameErr == nil {
		return nil
	}

	if copyErr := s.copyFile(staging, canonical); copyErr != nil {
		return Error.New("publish %s: rename: %v; copy: %v", canonical, renameErr, copyErr)
	}
	if err := s.remove(staging); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrStagingLeftover, Error.Wrap(err))
	}
	return nil
}

// Discard removes a staging file. A missing file is not an error.
func (s *Store) Discard(path string) error {
	return s.Remove(path)
}

// Remove deletes a file. A missing file is not an error.
func (s *Store) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Error.Wrap(err)
	}
	return nil
}

// ReadAll returns the whole content of path. A missing file yields
// common.ErrNotFound.
func (s *Store) ReadAll(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return b, nil
}

// Open returns a seekable handle on path and its size. A missing file
// yields common.ErrNotFound. The caller closes the handle.
func (s *Store) Open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, common.ErrNotFound
	}
	if err != nil {
		return nil, 0, Error.Wrap(err)
	}
	fi, err := f.Stat()
	if err != nil {
		return nil, 0, Error.Wrap(errs.Combine(err, f.Close()))
	}
	return f, fi.Size(), nil
}

// Exists reports whether a regular file is present at path.
func (s *Store) Exists(path string) (bool, error) {
	ok, err := filex.Exists(path)
	if err != nil {
		return false, Error.Wrap(err)
	}
	return ok, nil
}
