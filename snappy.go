// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"

	"github.com/golang/snappy"
)

// fileExtensionSnappy is the file extension for snappy compressed files.
const fileExtensionSnappy = "sz"

// magicBytesSnappy are the magic bytes of the snappy framing format.
// reference: https://github.com/google/snappy/blob/main/framing_format.txt
var magicBytesSnappy = [][]byte{
	{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59},
}

// isSnappy checks if the header matches the snappy framing magic bytes.
func isSnappy(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesSnappy)
}

// decompressSnappyStream returns an io.Reader that decompresses src with the snappy algorithm.
func decompressSnappyStream(src io.Reader) (io.Reader, error) {
	return snappy.NewReader(src), nil
}
