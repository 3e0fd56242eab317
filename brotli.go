// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"io"

	"github.com/andybalholm/brotli"
)

// fileExtensionBrotli is the file extension for brotli compressed files.
// Brotli has no magic bytes, so the codec cannot be detected from the
// stream head and is only selected via [WithExtractType].
const fileExtensionBrotli = "br"

// decompressBrotliStream returns an io.Reader that decompresses src with the brotli algorithm.
func decompressBrotliStream(src io.Reader) (io.Reader, error) {
	return brotli.NewReader(src), nil
}
