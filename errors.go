// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"errors"
	"fmt"
)

var (
	// ErrMaxFilesExceeded is returned when an archive contains more entries
	// than [Config.MaxFiles] allows.
	ErrMaxFilesExceeded = errors.New("maximum files exceeded")

	// ErrMaxExtractionSizeExceeded is returned when the decompressed output
	// exceeds [Config.MaxExtractionSize].
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")

	// ErrMaxInputSizeExceeded is returned when the input stream exceeds
	// [Config.MaxInputSize].
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")

	// ErrLocked is returned by [TryOpenLocked] when the lock is already held
	// by another handle.
	ErrLocked = errors.New("file already locked")
)

// UnsupportedFormatError is returned when the input stream does not start
// with a recognized archive or compression signature, or when a compressed
// stream does not contain a tar archive.
type UnsupportedFormatError struct {
	Header []byte
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported archive format (header %x)", e.Header)
}

// InvalidPathError is returned for entry paths that cannot be represented
// on the target filesystem, such as paths containing a null byte.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid entry path %q: %s", e.Path, e.Reason)
}

// NoComponentsRemainingError is returned when stripping leading path
// components leaves an entry with no path at all.
type NoComponentsRemainingError struct {
	Original string
	Count    uint
}

func (e *NoComponentsRemainingError) Error() string {
	return fmt.Sprintf("stripping %d components leaves no path for entry %q", e.Count, e.Original)
}

// ZipSlipError is returned when an entry path resolves outside the
// extraction base directory.
type ZipSlipError struct {
	Entry    string
	Resolved string
}

func (e *ZipSlipError) Error() string {
	return fmt.Sprintf("entry %q escapes extraction directory (resolves to %q)", e.Entry, e.Resolved)
}

// AbsoluteSymlinkTargetError is returned for symlink entries whose target
// is an absolute path. Absolute targets ignore the extraction root entirely
// and are always rejected.
type AbsoluteSymlinkTargetError struct {
	Target  string
	Symlink string
}

func (e *AbsoluteSymlinkTargetError) Error() string {
	return fmt.Sprintf("symlink %q has absolute target %q", e.Symlink, e.Target)
}

// SymlinkEscapeError is returned when a relative symlink target resolves
// outside the extraction base directory.
type SymlinkEscapeError struct {
	Target   string
	Resolved string
}

func (e *SymlinkEscapeError) Error() string {
	return fmt.Sprintf("symlink target %q escapes extraction directory (resolves to %q)", e.Target, e.Resolved)
}

// CorruptedError is returned when an archive header or entry cannot be
// decoded. A corrupt archive is never partially extracted.
type CorruptedError struct {
	Format string
	Err    error
}

func (e *CorruptedError) Error() string {
	return fmt.Sprintf("corrupted %s archive: %v", e.Format, e.Err)
}

func (e *CorruptedError) Unwrap() error { return e.Err }

// ExtractionError wraps an I/O failure while materializing an entry,
// carrying the offending entry path.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("cannot extract %q: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// WorkspaceError wraps a failure of the staging workspace itself, e.g.
// creating the staging directory or committing it to the destination.
type WorkspaceError struct {
	Op  string
	Err error
}

func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s failed: %v", e.Op, e.Err)
}

func (e *WorkspaceError) Unwrap() error { return e.Err }

// SymlinkCreationError wraps a failure to create a symlink.
type SymlinkCreationError struct {
	Path string
	Err  error
}

func (e *SymlinkCreationError) Error() string {
	return fmt.Sprintf("cannot create symlink %q: %v", e.Path, e.Err)
}

func (e *SymlinkCreationError) Unwrap() error { return e.Err }

// DirectoryCreationError wraps a failure to create a directory.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("cannot create directory %q: %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }

// CrossDeviceHardlinkError is returned by [LinkOrCopy] with
// [FallbackError] when source and target are on different devices.
type CrossDeviceHardlinkError struct {
	Source string
	Target string
}

func (e *CrossDeviceHardlinkError) Error() string {
	return fmt.Sprintf("cannot hardlink %q to %q across devices", e.Source, e.Target)
}

// ReplaceRetryError is returned by [ReplaceDir] when all replace attempts
// are exhausted.
type ReplaceRetryError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *ReplaceRetryError) Error() string {
	return fmt.Sprintf("cannot replace %q after %d attempts: %v", e.Path, e.Attempts, e.Err)
}

func (e *ReplaceRetryError) Unwrap() error { return e.Err }
