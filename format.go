// SPDX-License-Identifier: MPL-2.0

package unpack

import "io"

// Format identifies the archive framing format.
type Format int

const (
	FormatUnknown Format = iota
	FormatTar
	FormatZip
)

// String returns the canonical file extension of the format.
func (f Format) String() string {
	switch f {
	case FormatTar:
		return fileExtensionTar
	case FormatZip:
		return fileExtensionZip
	default:
		return "unknown"
	}
}

// archiveType renders the combined type name of a format and codec, e.g.
// "tar.gz" or "zip".
func archiveType(f Format, c Compression) string {
	if f == FormatTar && c != CompressionNone {
		return fileExtensionTar + "." + c.String()
	}
	return f.String()
}

// Compression identifies the codec wrapped around a tar stream.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXz
	CompressionZstd
	CompressionLz4
	CompressionSnappy
	CompressionBrotli
)

// String returns the canonical file extension of the codec.
func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return fileExtensionGZip
	case CompressionBzip2:
		return fileExtensionBzip2
	case CompressionXz:
		return fileExtensionXz
	case CompressionZstd:
		return fileExtensionZstd
	case CompressionLz4:
		return fileExtensionLZ4
	case CompressionSnappy:
		return fileExtensionSnappy
	case CompressionBrotli:
		return fileExtensionBrotli
	default:
		return ""
	}
}

// decompressionFunc wraps a decompression layer around a raw byte reader.
type decompressionFunc func(io.Reader) (io.Reader, error)

// headerCheck is a function that checks if the given header matches the
// expected magic bytes.
type headerCheck func([]byte) bool

// codec couples a [Compression] with its magic byte check and
// decompressor constructor.
type codec struct {
	compression Compression
	headerCheck headerCheck
	magicBytes  [][]byte
	offset      int
	decompress  decompressionFunc
}

// codecs lists all supported compression codecs in detection order.
// Brotli carries no magic bytes and is reachable only via
// [WithExtractType].
var codecs = []codec{
	{CompressionGzip, isGZip, magicBytesGZip, 0, decompressGZipStream},
	{CompressionBzip2, isBzip2, magicBytesBzip2, 0, decompressBzip2Stream},
	{CompressionXz, isXz, magicBytesXz, 0, decompressXzStream},
	{CompressionZstd, isZstd, magicBytesZstd, 0, decompressZstdStream},
	{CompressionLz4, isLZ4, magicBytesLZ4, 0, decompressLZ4Stream},
	{CompressionSnappy, isSnappy, magicBytesSnappy, 0, decompressSnappyStream},
}

// detectCompression identifies the codec from the stream head. It returns
// false if no codec signature matches.
func detectCompression(header []byte) (codec, bool) {
	for _, c := range codecs {
		if c.headerCheck(header) {
			return c, true
		}
	}
	return codec{}, false
}

// codecFor returns the codec for a known [Compression] value. Used when
// the extraction type is pinned instead of detected.
func codecFor(compression Compression) (codec, bool) {
	if compression == CompressionBrotli {
		return codec{CompressionBrotli, nil, nil, 0, decompressBrotliStream}, true
	}
	for _, c := range codecs {
		if c.compression == compression {
			return c, true
		}
	}
	return codec{}, false
}

// matchesMagicBytes checks if data matches any of the magic byte
// sequences at the given offset.
func matchesMagicBytes(data []byte, offset int, magics [][]byte) bool {
	for _, magic := range magics {
		if offset+len(magic) > len(data) {
			continue
		}
		if string(data[offset:offset+len(magic)]) == string(magic) {
			return true
		}
	}
	return false
}

// maxHeaderLength is the maximum number of bytes any detector needs to
// inspect.
var maxHeaderLength int

// init calculates the maximum header length over all detectors.
func init() {
	consider := func(offset int, magics [][]byte) {
		for _, m := range magics {
			if needs := offset + len(m); needs > maxHeaderLength {
				maxHeaderLength = needs
			}
		}
	}
	consider(offsetTar, magicBytesTar)
	consider(0, magicBytesZip)
	for _, c := range codecs {
		consider(c.offset, c.magicBytes)
	}
}
