// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/dsnet/compress/bzip2"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// archiveContent describes one entry of an in-test archive.
type archiveContent struct {
	Name       string
	Content    []byte
	Mode       fs.FileMode
	IsDir      bool
	Hardlink   bool
	LinkTarget string
}

// sampleContent is the canonical test archive: a directory, a five byte
// file and a symlink next to it.
var sampleContent = []archiveContent{
	{Name: "a/", IsDir: true, Mode: 0755},
	{Name: "a/b.txt", Content: []byte("hello"), Mode: 0644},
	{Name: "a/c", LinkTarget: "b.txt"},
}

func packTar(t *testing.T, content []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, c := range content {
		hdr := &tar.Header{
			Name: c.Name,
			Mode: int64(c.Mode.Perm()),
		}
		switch {
		case c.IsDir:
			hdr.Typeflag = tar.TypeDir
		case c.Hardlink:
			hdr.Typeflag = tar.TypeLink
			hdr.Linkname = c.LinkTarget
		case c.LinkTarget != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = c.LinkTarget
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(c.Content))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write tar header: %s", err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write(c.Content); err != nil {
				t.Fatalf("write tar content: %s", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %s", err)
	}
	return buf.Bytes()
}

func packZip(t *testing.T, content []archiveContent) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, c := range content {
		hdr := &zip.FileHeader{Name: c.Name, Method: zip.Deflate}
		switch {
		case c.IsDir:
			hdr.SetMode(fs.ModeDir | c.Mode.Perm())
		case c.LinkTarget != "":
			hdr.SetMode(fs.ModeSymlink | 0777)
		default:
			hdr.SetMode(c.Mode.Perm())
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("write zip header: %s", err)
		}
		switch {
		case c.IsDir:
		case c.LinkTarget != "":
			if _, err := w.Write([]byte(c.LinkTarget)); err != nil {
				t.Fatalf("write zip link target: %s", err)
			}
		default:
			if _, err := w.Write(c.Content); err != nil {
				t.Fatalf("write zip content: %s", err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %s", err)
	}
	return buf.Bytes()
}

func compressGzip(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("gzip write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %s", err)
	}
	return buf.Bytes()
}

func compressXz(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz writer: %s", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("xz write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close: %s", err)
	}
	return buf.Bytes()
}

func compressZstd(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %s", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zstd write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("zstd close: %s", err)
	}
	return buf.Bytes()
}

func compressBzip2(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, nil)
	if err != nil {
		t.Fatalf("bzip2 writer: %s", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("bzip2 write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("bzip2 close: %s", err)
	}
	return buf.Bytes()
}

func compressLz4(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("lz4 write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("lz4 close: %s", err)
	}
	return buf.Bytes()
}

func compressSnappy(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := snappy.NewBufferedWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("snappy write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("snappy close: %s", err)
	}
	return buf.Bytes()
}

func compressBrotli(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatalf("brotli write: %s", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("brotli close: %s", err)
	}
	return buf.Bytes()
}

// checkSampleTree verifies that dst holds exactly the tree described by
// sampleContent.
func checkSampleTree(t *testing.T, dst string) {
	t.Helper()
	got, err := os.ReadFile(filepath.Join(dst, "a", "b.txt"))
	if err != nil {
		t.Fatalf("read extracted file: %s", err)
	}
	if string(got) != "hello" {
		t.Errorf("extracted content = %q, want %q", got, "hello")
	}
	target, err := os.Readlink(filepath.Join(dst, "a", "c"))
	if err != nil {
		t.Fatalf("read extracted symlink: %s", err)
	}
	if target != "b.txt" {
		t.Errorf("symlink target = %q, want %q", target, "b.txt")
	}
}

func TestExtractTar(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))

	rep, err := Extract(context.Background(), bytes.NewReader(packTar(t, sampleContent)), dst, cfg)
	if err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	if rep.EntryCount != 3 {
		t.Errorf("entry count = %d, want 3", rep.EntryCount)
	}
	if rep.TotalBytes != 5 {
		t.Errorf("total bytes = %d, want 5", rep.TotalBytes)
	}
	if rep.Format != "tar" {
		t.Errorf("format = %q, want %q", rep.Format, "tar")
	}
	checkSampleTree(t, dst)
}

func TestExtractDefaultConfig(t *testing.T) {
	// the default staging directory lives next to the destination, so the
	// commit rename never crosses a filesystem boundary
	parent := t.TempDir()
	dst := filepath.Join(parent, "out")

	if _, err := Extract(context.Background(), bytes.NewReader(packTar(t, sampleContent)), dst, nil); err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	checkSampleTree(t, dst)

	entries, err := os.ReadDir(parent)
	if err != nil {
		t.Fatalf("read destination parent: %s", err)
	}
	if len(entries) != 1 || entries[0].Name() != "out" {
		t.Errorf("staging left behind next to the destination: %v", entries)
	}
}

func TestExtractZip(t *testing.T) {
	for _, inMemory := range []bool{false, true} {
		dst := filepath.Join(t.TempDir(), "out")
		cfg := NewConfig(WithScratchDir(t.TempDir()), WithCacheInMemory(inMemory))

		rep, err := Extract(context.Background(), bytes.NewReader(packZip(t, sampleContent)), dst, cfg)
		if err != nil {
			t.Fatalf("Extract() error (inMemory=%t): %s", inMemory, err)
		}
		if rep.Format != "zip" {
			t.Errorf("format = %q, want %q", rep.Format, "zip")
		}
		checkSampleTree(t, dst)
	}
}

func TestExtractCompressedTar(t *testing.T) {
	cases := []struct {
		name     string
		compress func(*testing.T, []byte) []byte
		format   string
	}{
		{"gzip", compressGzip, "tar.gz"},
		{"bzip2", compressBzip2, "tar.bz2"},
		{"xz", compressXz, "tar.xz"},
		{"zstd", compressZstd, "tar.zst"},
		{"lz4", compressLz4, "tar.lz4"},
		{"snappy", compressSnappy, "tar.sz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dst := filepath.Join(t.TempDir(), "out")
			cfg := NewConfig(WithScratchDir(t.TempDir()))
			data := tc.compress(t, packTar(t, sampleContent))

			rep, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg)
			if err != nil {
				t.Fatalf("Extract() error: %s", err)
			}
			if rep.Format != tc.format {
				t.Errorf("format = %q, want %q", rep.Format, tc.format)
			}
			checkSampleTree(t, dst)
		})
	}
}

func TestExtractBrotliPinnedType(t *testing.T) {
	// brotli has no magic bytes, so the type must be pinned
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()), WithExtractType("tar.br"))
	data := compressBrotli(t, packTar(t, sampleContent))

	rep, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg)
	if err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	if rep.Format != "tar.br" {
		t.Errorf("format = %q, want %q", rep.Format, "tar.br")
	}
	checkSampleTree(t, dst)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))

	_, err := Extract(context.Background(), bytes.NewReader([]byte("plain text, not an archive")), dst, cfg)
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("Extract() error = %v, want UnsupportedFormatError", err)
	}
	if _, err := os.Lstat(dst); !os.IsNotExist(err) {
		t.Errorf("destination %q exists after failed extraction", dst)
	}
}

func TestExtractZipSlipLeavesDestinationUntouched(t *testing.T) {
	scratch := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	if err := os.MkdirAll(dst, 0755); err != nil {
		t.Fatalf("prepare destination: %s", err)
	}
	marker := filepath.Join(dst, "keep.txt")
	if err := os.WriteFile(marker, []byte("keep"), 0644); err != nil {
		t.Fatalf("prepare marker: %s", err)
	}

	evil := []archiveContent{
		{Name: "ok.txt", Content: []byte("fine"), Mode: 0644},
		{Name: "../../evil.txt", Content: []byte("escape"), Mode: 0644},
	}
	cfg := NewConfig(WithScratchDir(scratch), WithOverwrite(true))

	_, err := Extract(context.Background(), bytes.NewReader(packTar(t, evil)), dst, cfg)
	var zse *ZipSlipError
	if !errors.As(err, &zse) {
		t.Fatalf("Extract() error = %v, want ZipSlipError", err)
	}

	// destination unchanged, staging cleaned up
	if got, err := os.ReadFile(marker); err != nil || string(got) != "keep" {
		t.Errorf("destination was modified by failed extraction")
	}
	entries, err := os.ReadDir(dst)
	if err != nil {
		t.Fatalf("read destination: %s", err)
	}
	if len(entries) != 1 {
		t.Errorf("destination has %d entries after failed extraction, want 1", len(entries))
	}
	left, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch dir: %s", err)
	}
	if len(left) != 0 {
		t.Errorf("staging not cleaned up, %d entries left in scratch dir", len(left))
	}
}

func TestExtractAbsoluteSymlinkTarget(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))
	data := packTar(t, []archiveContent{
		{Name: "etc-link", LinkTarget: "/etc/passwd"},
	})

	_, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg)
	var aste *AbsoluteSymlinkTargetError
	if !errors.As(err, &aste) {
		t.Fatalf("Extract() error = %v, want AbsoluteSymlinkTargetError", err)
	}
}

func TestExtractSymlinkEscape(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))
	data := packTar(t, []archiveContent{
		{Name: "sub/", IsDir: true, Mode: 0755},
		{Name: "sub/up", LinkTarget: "../../outside"},
	})

	_, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg)
	var see *SymlinkEscapeError
	if !errors.As(err, &see) {
		t.Fatalf("Extract() error = %v, want SymlinkEscapeError", err)
	}
}

func TestExtractTarHardlink(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))
	data := packTar(t, []archiveContent{
		{Name: "a/", IsDir: true, Mode: 0755},
		{Name: "a/b.txt", Content: []byte("hello"), Mode: 0644},
		{Name: "a/hard", Hardlink: true, LinkTarget: "a/b.txt"},
	})

	rep, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg)
	if err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	if rep.EntryCount != 3 {
		t.Errorf("entry count = %d, want 3", rep.EntryCount)
	}

	orig, err := os.Stat(filepath.Join(dst, "a", "b.txt"))
	if err != nil {
		t.Fatalf("stat original: %s", err)
	}
	linked, err := os.Stat(filepath.Join(dst, "a", "hard"))
	if err != nil {
		t.Fatalf("stat hard link: %s", err)
	}
	if !os.SameFile(orig, linked) {
		t.Errorf("extracted hard link does not reference the original file")
	}
}

func TestExtractTarHardlinkEscape(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))
	data := packTar(t, []archiveContent{
		{Name: "hard", Hardlink: true, LinkTarget: "../../etc/passwd"},
	})

	_, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg)
	var zse *ZipSlipError
	if !errors.As(err, &zse) {
		t.Fatalf("Extract() error = %v, want ZipSlipError", err)
	}
}

func TestExtractZipCorruptSymlinkTarget(t *testing.T) {
	// a symlink target that fails its checksum must surface as corruption,
	// not as an empty target
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{
		Name:               "link",
		Method:             zip.Store,
		CRC32:              0xdeadbeef,
		CompressedSize64:   5,
		UncompressedSize64: 5,
	}
	hdr.SetMode(fs.ModeSymlink | 0777)
	w, err := zw.CreateRaw(hdr)
	if err != nil {
		t.Fatalf("write zip header: %s", err)
	}
	if _, err := w.Write([]byte("b.txt")); err != nil {
		t.Fatalf("write zip content: %s", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %s", err)
	}

	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))
	_, err = Extract(context.Background(), bytes.NewReader(buf.Bytes()), dst, cfg)
	var ce *CorruptedError
	if !errors.As(err, &ce) {
		t.Fatalf("Extract() error = %v, want CorruptedError", err)
	}
}

func TestExtractStripComponents(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()), WithStripComponents(1))

	rep, err := Extract(context.Background(), bytes.NewReader(packTar(t, sampleContent)), dst, cfg)
	if err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	// the top-level directory entry is consumed by the strip
	if rep.EntryCount != 2 {
		t.Errorf("entry count = %d, want 2", rep.EntryCount)
	}
	got, err := os.ReadFile(filepath.Join(dst, "b.txt"))
	if err != nil {
		t.Fatalf("read extracted file: %s", err)
	}
	if string(got) != "hello" {
		t.Errorf("extracted content = %q, want %q", got, "hello")
	}
}

func TestExtractMaxFiles(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()), WithMaxFiles(2))

	_, err := Extract(context.Background(), bytes.NewReader(packTar(t, sampleContent)), dst, cfg)
	if !errors.Is(err, ErrMaxFilesExceeded) {
		t.Fatalf("Extract() error = %v, want ErrMaxFilesExceeded", err)
	}
}

func TestExtractMaxExtractionSize(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()), WithMaxExtractionSize(3))

	_, err := Extract(context.Background(), bytes.NewReader(packTar(t, sampleContent)), dst, cfg)
	if !errors.Is(err, ErrMaxExtractionSizeExceeded) {
		t.Fatalf("Extract() error = %v, want ErrMaxExtractionSizeExceeded", err)
	}
}

func TestExtractMaxInputSizeExactFit(t *testing.T) {
	// an input of exactly the maximum size is within the limit
	data := packZip(t, sampleContent)
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()), WithMaxInputSize(int64(len(data))))

	if _, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg); err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	checkSampleTree(t, dst)
}

func TestExtractMaxExtractionSizeExactFit(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()), WithMaxExtractionSize(5))

	rep, err := Extract(context.Background(), bytes.NewReader(packTar(t, sampleContent)), dst, cfg)
	if err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	if rep.TotalBytes != 5 {
		t.Errorf("total bytes = %d, want 5", rep.TotalBytes)
	}
	checkSampleTree(t, dst)
}

func TestExtractOverwrite(t *testing.T) {
	scratch := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	data := packTar(t, sampleContent)

	if _, err := Extract(context.Background(), bytes.NewReader(data), dst, NewConfig(WithScratchDir(scratch))); err != nil {
		t.Fatalf("first Extract() error: %s", err)
	}

	// without overwrite the populated destination is refused
	_, err := Extract(context.Background(), bytes.NewReader(data), dst, NewConfig(WithScratchDir(scratch)))
	var we *WorkspaceError
	if !errors.As(err, &we) {
		t.Fatalf("second Extract() error = %v, want WorkspaceError", err)
	}

	// with overwrite the destination is replaced and stays identical
	if _, err := Extract(context.Background(), bytes.NewReader(data), dst, NewConfig(WithScratchDir(scratch), WithOverwrite(true))); err != nil {
		t.Fatalf("overwriting Extract() error: %s", err)
	}
	checkSampleTree(t, dst)
}

func TestExtractReportHook(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	var hooked *Report
	cfg := NewConfig(
		WithScratchDir(t.TempDir()),
		WithReportHook(func(_ context.Context, r *Report) { hooked = r }),
	)

	rep, err := Extract(context.Background(), bytes.NewReader(packTar(t, sampleContent)), dst, cfg)
	if err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	if hooked != rep {
		t.Errorf("report hook did not receive the returned report")
	}
	if hooked.InputSize == 0 {
		t.Errorf("report input size not recorded")
	}
}

func TestExtractCorruptedTar(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))

	data := packTar(t, sampleContent)
	data = data[:700] // cut into the first file's content blocks

	_, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg)
	var ce *CorruptedError
	if !errors.As(err, &ce) {
		t.Fatalf("Extract() error = %v, want CorruptedError", err)
	}
	if _, err := os.Lstat(dst); !os.IsNotExist(err) {
		t.Errorf("destination %q exists after failed extraction", dst)
	}
}

func TestExtractPreservePermissions(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out")
	cfg := NewConfig(WithScratchDir(t.TempDir()))
	data := packTar(t, []archiveContent{
		{Name: "run.sh", Content: []byte("#!/bin/sh\n"), Mode: 0755},
	})

	if _, err := Extract(context.Background(), bytes.NewReader(data), dst, cfg); err != nil {
		t.Fatalf("Extract() error: %s", err)
	}
	info, err := os.Stat(filepath.Join(dst, "run.sh"))
	if err != nil {
		t.Fatalf("stat extracted file: %s", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %o, want 0755", info.Mode().Perm())
	}
}
