// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Extract reads one archive from src, detects its format from the stream
// contents and extracts it into dst. Extraction is staged: entries are
// validated and written into a private staging directory which is
// atomically committed onto dst on success. On any failure dst is left
// exactly as it was and an extraction never leaves partial state behind.
//
// The returned [Report] lists every materialized entry in archive order.
// src only needs to yield bytes on demand; seekability is not required.
func Extract(ctx context.Context, src io.Reader, dst string, cfg *Config) (*Report, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	start := time.Now()
	rep := &Report{}
	defer func() {
		rep.Duration = time.Since(start)
		cfg.ReportHook()(ctx, rep)
	}()

	limited := newLimitErrorReader(src, cfg.MaxInputSize(), ErrMaxInputSizeExceeded)
	defer func() {
		rep.InputSize = limited.ReadBytes()
	}()

	head, err := newPeekReader(limited, maxHeaderLength)
	if err != nil {
		return nil, err
	}

	walker, cleanup, err := openArchive(head, cfg, rep)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ws, err := NewWorkspace(dst, cfg)
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	cfg.Logger().Info("extracting archive", "format", rep.Format, "dst", dst)
	if err := runPipeline(ctx, walker, ws, cfg, rep); err != nil {
		return nil, err
	}
	if err := ws.Commit(); err != nil {
		return nil, err
	}

	return rep, nil
}

// openArchive determines format and codec from the stream head (or the
// pinned extraction type), layers the decompressor under the framing
// decoder and returns the entry walker. The returned cleanup releases
// any spool backing a streamed zip.
func openArchive(head *peekReader, cfg *Config, rep *Report) (archiveWalker, func(), error) {
	noop := func() {}

	format, compression, err := resolveType(head.Head(), cfg.ExtractType())
	if err != nil {
		return nil, noop, err
	}

	if format == FormatZip {
		rep.Format = archiveType(FormatZip, CompressionNone)
		ra, size, cleanup, err := spoolZip(head, cfg)
		if err != nil {
			return nil, noop, err
		}
		walker, err := newZipWalker(ra, size)
		if err != nil {
			cleanup()
			return nil, noop, err
		}
		return walker, cleanup, nil
	}

	rep.Format = archiveType(FormatTar, compression)
	if compression == CompressionNone {
		return newTarWalker(head), noop, nil
	}

	c, ok := codecFor(compression)
	if !ok {
		return nil, noop, &UnsupportedFormatError{Header: head.Head()}
	}
	decompressed, err := c.decompress(head)
	if err != nil {
		return nil, noop, &CorruptedError{Format: rep.Format, Err: err}
	}

	// Re-sniff the decompressed head: the payload of a compressed stream
	// must itself be a tar archive.
	inner, err := newPeekReader(decompressed, maxHeaderLength)
	if err != nil {
		return nil, noop, &CorruptedError{Format: rep.Format, Err: err}
	}
	if !isTar(inner.Head()) && cfg.ExtractType() == "" {
		return nil, noop, &UnsupportedFormatError{Header: inner.Head()}
	}
	return newTarWalker(inner), noop, nil
}

// resolveType maps the stream head, or a pinned extraction type like
// "zip" or "tar.zst", to a format and codec.
func resolveType(head []byte, pinned string) (Format, Compression, error) {
	if pinned != "" {
		return parseType(pinned)
	}

	switch {
	case isZip(head):
		return FormatZip, CompressionNone, nil
	case isTar(head):
		return FormatTar, CompressionNone, nil
	}
	if c, ok := detectCompression(head); ok {
		return FormatTar, c.compression, nil
	}

	show := head
	if len(show) > 16 {
		show = show[:16]
	}
	return FormatUnknown, CompressionNone, &UnsupportedFormatError{Header: show}
}

// parseType parses a pinned extraction type string.
func parseType(pinned string) (Format, Compression, error) {
	switch strings.ToLower(pinned) {
	case fileExtensionZip:
		return FormatZip, CompressionNone, nil
	case fileExtensionTar:
		return FormatTar, CompressionNone, nil
	case "tgz":
		return FormatTar, CompressionGzip, nil
	}

	ext, found := strings.CutPrefix(strings.ToLower(pinned), fileExtensionTar+".")
	if found {
		for _, c := range []Compression{
			CompressionGzip, CompressionBzip2, CompressionXz, CompressionZstd,
			CompressionLz4, CompressionSnappy, CompressionBrotli,
		} {
			if c.String() == ext {
				return FormatTar, c, nil
			}
		}
	}
	return FormatUnknown, CompressionNone, fmt.Errorf("unknown extraction type %q", pinned)
}
