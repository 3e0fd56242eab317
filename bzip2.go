// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"

	"github.com/dsnet/compress/bzip2"
)

// fileExtensionBzip2 is the file extension for bzip2 compressed files.
const fileExtensionBzip2 = "bz2"

// magicBytesBzip2 are the magic bytes for bzip2 compressed files.
var magicBytesBzip2 = [][]byte{
	{0x42, 0x5A, 0x68},
}

// isBzip2 checks if the header matches the bzip2 magic bytes.
func isBzip2(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesBzip2)
}

// decompressBzip2Stream returns an io.Reader that decompresses src with the bzip2 algorithm.
func decompressBzip2Stream(src io.Reader) (io.Reader, error) {
	return bzip2.NewReader(src, nil)
}
