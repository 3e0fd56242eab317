// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// fileExtensionLZ4 is the file extension for lz4 compressed files.
const fileExtensionLZ4 = "lz4"

// magicBytesLZ4 are the magic bytes for lz4 frame format.
// reference: https://github.com/lz4/lz4/blob/dev/doc/lz4_Frame_format.md
var magicBytesLZ4 = [][]byte{
	{0x04, 0x22, 0x4D, 0x18},
}

// isLZ4 checks if the header matches the lz4 magic bytes.
func isLZ4(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesLZ4)
}

// decompressLZ4Stream returns an io.Reader that decompresses src with the lz4 algorithm.
func decompressLZ4Stream(src io.Reader) (io.Reader, error) {
	return lz4.NewReader(src), nil
}
