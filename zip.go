// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// fileExtensionZip is the file extension for zip files.
const fileExtensionZip = "zip"

// magicBytesZip contains the magic bytes for a zip archive.
// reference: https://golang.org/pkg/archive/zip/
var magicBytesZip = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},
}

// isZip checks if data is a zip archive.
func isZip(data []byte) bool {
	return matchesMagicBytes(data, 0, magicBytesZip)
}

// newZipWalker reads the central directory from an already spooled
// archive and returns a walker over its entries.
func newZipWalker(src io.ReaderAt, size int64) (*zipWalker, error) {
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return nil, &CorruptedError{Format: fileExtensionZip, Err: err}
	}
	return &zipWalker{zr: zr}, nil
}

// spoolZip materializes a non-seekable zip stream so the central
// directory at its end can be read. Depending on the configuration the
// spool lives in memory or in a scratch file; the returned cleanup
// releases it and is safe to call on every exit path.
func spoolZip(src io.Reader, cfg *Config) (io.ReaderAt, int64, func(), error) {
	if cfg.CacheInMemory() {
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("cannot cache zip stream: %w", err)
		}
		return bytes.NewReader(data), int64(len(data)), func() {}, nil
	}

	spool, err := os.CreateTemp(cfg.ScratchDir(), "unpack-zip-spool-*")
	if err != nil {
		return nil, 0, nil, fmt.Errorf("cannot create zip spool file: %w", err)
	}
	cleanup := func() {
		spool.Close()
		os.Remove(spool.Name())
	}
	size, err := io.Copy(spool, src)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("cannot spool zip stream: %w", err)
	}
	return spool, size, cleanup, nil
}

// zipWalker is a walker for zip archives.
type zipWalker struct {
	zr *zip.Reader
	fp int
}

// Type returns the file extension for zip files.
func (z *zipWalker) Type() string {
	return fileExtensionZip
}

// Next returns the next entry in the zip archive.
func (z *zipWalker) Next() (archiveEntry, error) {
	if z.fp >= len(z.zr.File) {
		return nil, io.EOF
	}
	defer func() { z.fp++ }()
	return &zipEntry{z.zr.File[z.fp]}, nil
}

// zipEntry is an entry in a zip archive.
type zipEntry struct {
	zf *zip.File
}

// Name returns the declared path of the entry.
func (z *zipEntry) Name() string {
	return z.zf.FileHeader.Name
}

// Size returns the declared uncompressed size of the entry.
func (z *zipEntry) Size() int64 {
	return int64(z.zf.FileHeader.UncompressedSize64)
}

// Mode returns the mode of the entry.
func (z *zipEntry) Mode() fs.FileMode {
	return z.zf.FileHeader.Mode()
}

// ModTime returns the modification time of the entry.
func (z *zipEntry) ModTime() time.Time {
	return z.zf.FileHeader.FileInfo().ModTime()
}

// Linkname returns the symlink target of the entry. Zip stores the
// target as the entry content; a decode or checksum failure while
// reading it is reported, not folded into an empty target.
func (z *zipEntry) Linkname() (string, error) {
	rc, err := z.zf.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsRegular returns true if the entry is a regular file.
func (z *zipEntry) IsRegular() bool {
	return z.zf.FileHeader.Mode().Type() == 0
}

// IsDir returns true if the entry is a directory.
func (z *zipEntry) IsDir() bool {
	return z.zf.FileHeader.Mode().Type() == fs.ModeDir
}

// IsSymlink returns true if the entry is a symlink.
func (z *zipEntry) IsSymlink() bool {
	return z.zf.FileHeader.Mode().Type() == fs.ModeSymlink
}

// IsHardlink returns false; zip has no hard link entries.
func (z *zipEntry) IsHardlink() bool {
	return false
}

// Open returns a reader for the entry content. Reads fail with a
// checksum error if the stored CRC32 does not match.
func (z *zipEntry) Open() (io.ReadCloser, error) {
	return z.zf.Open()
}
