// SPDX-License-Identifier: MPL-2.0

/*
Package unpack extracts tar and zip archives into a destination
directory while defending against malicious archive content, and makes
the extraction atomic to outside observers: the destination either ends
up fully populated, or is left exactly as it was.

Every entry path (and, for symlinks, the link target) is validated
before a single byte is written. Extraction happens in a private
staging directory which is atomically renamed onto the destination on
success; on any failure the staging directory is removed and the
destination is untouched.

The archive format and compression codec are detected from the first
bytes of the stream, so the input only needs to be an [io.Reader]:

	report, err := unpack.Extract(ctx, reader, "/opt/tool", unpack.NewConfig())

Supported framing formats are tar and zip; supported codecs for
compressed tar streams are gzip, bzip2, xz, zstandard, lz4, snappy and
brotli. Regular files, directories, symlinks and tar hard links are
extracted; other entry types are rejected.

The package also exposes the filesystem primitives the pipeline is
built on ([WriteFileAtomic], [SymlinkAtomic], [LinkOrCopy],
[ReplaceDir]) and a cross-process exclusive file lock ([OpenLocked])
for callers that need mutual exclusion around an extraction.
*/
package unpack
