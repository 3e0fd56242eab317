// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"
	"io/fs"
	"time"
)

// archiveWalker yields the entries of one archive, one at a time. The
// sequence is lazy, finite and single-pass: once consumed it cannot be
// replayed without re-opening the underlying byte stream. Next returns
// [io.EOF] after the last entry.
type archiveWalker interface {
	Type() string
	Next() (archiveEntry, error)
}

// archiveEntry is one archive member as decoded, not yet validated. Its
// declared path, size and mode are untrusted input. Linkname reports a
// decode error where the target is stored as entry content (zip).
type archiveEntry interface {
	Name() string
	Size() int64
	Mode() fs.FileMode
	ModTime() time.Time
	Linkname() (string, error)
	IsRegular() bool
	IsDir() bool
	IsSymlink() bool
	IsHardlink() bool
	Open() (io.ReadCloser, error)
}

// noopReaderCloser adds a no-op Close to a shared reader, for entries
// whose content stream is owned by the surrounding decoder.
type noopReaderCloser struct {
	io.Reader
}

func (n *noopReaderCloser) Close() error {
	return nil
}
