// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"compress/gzip"
	"io"
)

// fileExtensionGZip is the file extension for gzip compressed files.
const fileExtensionGZip = "gz"

// magicBytesGZip are the magic bytes for gzip compressed files.
var magicBytesGZip = [][]byte{
	{0x1f, 0x8b},
}

// isGZip checks if the header matches the magic bytes for gzip compressed files.
func isGZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGZip)
}

// decompressGZipStream returns an io.Reader that decompresses src with the gzip algorithm.
func decompressGZipStream(src io.Reader) (io.Reader, error) {
	return gzip.NewReader(src)
}
