// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"archive/tar"
	"io"
	"io/fs"
	"time"
)

// fileExtensionTar is the file extension for tar files.
const fileExtensionTar = "tar"

// offsetTar is the offset where the magic bytes are located in the file.
const offsetTar = 257

// magicBytesTar are the magic bytes for tar files.
var magicBytesTar = [][]byte{
	[]byte("ustar\x00tar\x00"),
	[]byte("ustar\x00"),
	[]byte("ustar  \x00"),
}

// isTar checks if the header matches the magic bytes for tar files.
func isTar(data []byte) bool {
	return matchesMagicBytes(data, offsetTar, magicBytesTar)
}

// tarWalker is a walker for tar streams.
type tarWalker struct {
	tr *tar.Reader
}

func newTarWalker(src io.Reader) *tarWalker {
	return &tarWalker{tr: tar.NewReader(src)}
}

// Type returns the file extension for tar files.
func (t *tarWalker) Type() string {
	return fileExtensionTar
}

// Next returns the next entry in the tar archive.
func (t *tarWalker) Next() (archiveEntry, error) {
	hdr, err := t.tr.Next()
	if err != nil {
		return nil, err
	}
	return &tarEntry{hdr, t.tr}, nil
}

// tarEntry is an entry in a tar archive.
type tarEntry struct {
	hdr *tar.Header
	tr  *tar.Reader
}

// Name returns the declared path of the entry.
func (t *tarEntry) Name() string {
	return t.hdr.Name
}

// Size returns the declared size of the entry.
func (t *tarEntry) Size() int64 {
	return t.hdr.Size
}

// Mode returns the mode of the entry.
func (t *tarEntry) Mode() fs.FileMode {
	return t.hdr.FileInfo().Mode()
}

// ModTime returns the modification time of the entry.
func (t *tarEntry) ModTime() time.Time {
	return t.hdr.ModTime
}

// Linkname returns the declared link target of the entry.
func (t *tarEntry) Linkname() (string, error) {
	return t.hdr.Linkname, nil
}

// IsRegular returns true if the entry is a regular file.
func (t *tarEntry) IsRegular() bool {
	return t.hdr.Typeflag == tar.TypeReg
}

// IsDir returns true if the entry is a directory.
func (t *tarEntry) IsDir() bool {
	return t.hdr.Typeflag == tar.TypeDir
}

// IsSymlink returns true if the entry is a symlink.
func (t *tarEntry) IsSymlink() bool {
	return t.hdr.Typeflag == tar.TypeSymlink
}

// IsHardlink returns true if the entry is a hard link to another entry
// of the same archive.
func (t *tarEntry) IsHardlink() bool {
	return t.hdr.Typeflag == tar.TypeLink
}

// Open returns a reader for the entry content. The reader is backed by
// the shared tar stream and must be consumed before the next call to
// Next.
func (t *tarEntry) Open() (io.ReadCloser, error) {
	return &noopReaderCloser{t.tr}, nil
}
