// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// runPipeline pulls entries from the walker, sanitizes each and
// materializes it into the staging tree, accumulating the report. The
// pipeline is fail-fast: a single rejected or corrupt entry invalidates
// the whole archive, since sanitizer failures signal hostile input, not
// recoverable per-entry conditions.
func runPipeline(ctx context.Context, w archiveWalker, ws *Workspace, cfg *Config, rep *Report) error {
	base := ws.StagingDir()
	var count int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ae, err := w.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &CorruptedError{Format: w.Type(), Err: err}
		}

		count++
		if err := cfg.CheckMaxFiles(count); err != nil {
			return err
		}

		sp, err := sanitizeEntryPath(base, ae.Name(), cfg.StripComponents())
		if err != nil {
			// A directory entry whose path is entirely stripped away maps to
			// the staging root, which already exists.
			var ncr *NoComponentsRemainingError
			if errors.As(err, &ncr) && ae.IsDir() {
				cfg.Logger().Debug("skipping fully stripped directory entry", "name", ae.Name())
				continue
			}
			return err
		}

		switch {
		case ae.IsDir():
			if err := materializeDir(sp, ae, cfg); err != nil {
				return err
			}
			rep.add(Entry{Path: sp.rel, Mode: dirMode(ae, cfg), IsDir: true})

		case ae.IsRegular():
			n, err := materializeFile(sp, ae, cfg, cfg.MaxExtractionSize()-rep.TotalBytes)
			if err != nil {
				return err
			}
			rep.add(Entry{Path: sp.rel, Size: n, Mode: fileMode(ae, cfg)})

		case ae.IsSymlink():
			target, err := ae.Linkname()
			if err != nil {
				return &CorruptedError{Format: w.Type(), Err: err}
			}
			if err := sanitizeLinkTarget(base, sp, target); err != nil {
				return err
			}
			if err := materializeSymlink(sp, target, ae, cfg); err != nil {
				return err
			}
			rep.add(Entry{Path: sp.rel, IsSymlink: true, LinkTarget: target})

		case ae.IsHardlink():
			target, err := ae.Linkname()
			if err != nil {
				return &CorruptedError{Format: w.Type(), Err: err}
			}
			// A hard link target is an archive entry path and is validated
			// like one; it must name an already materialized entry.
			tsp, err := sanitizeEntryPath(base, target, cfg.StripComponents())
			if err != nil {
				return err
			}
			if err := materializeHardlink(sp, tsp, cfg); err != nil {
				return err
			}
			rep.add(Entry{Path: sp.rel, IsHardlink: true, LinkTarget: tsp.rel})

		default:
			// FIFOs, devices and other special files are never extracted.
			return &ExtractionError{Path: sp.rel, Err: errors.New("unsupported entry type")}
		}
	}
}

// materializeDir creates the directory and any missing ancestors at the
// sanitized path. Idempotent if it already exists.
func materializeDir(sp sanitizedPath, ae archiveEntry, cfg *Config) error {
	if err := os.MkdirAll(sp.abs, dirMode(ae, cfg).Perm()); err != nil {
		return &DirectoryCreationError{Path: sp.rel, Err: err}
	}
	if mt := ae.ModTime(); !mt.IsZero() {
		_ = os.Chtimes(sp.abs, mt, mt)
	}
	return nil
}

// materializeFile streams the entry content into the sanitized path with
// the atomic write primitive. The byte count comes from bytes actually
// written, not from the declared entry size.
func materializeFile(sp sanitizedPath, ae archiveEntry, cfg *Config, remaining int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(sp.abs), cfg.CustomCreateDirMode().Perm()); err != nil {
		return 0, &DirectoryCreationError{Path: sp.rel, Err: err}
	}

	rc, err := ae.Open()
	if err != nil {
		return 0, &ExtractionError{Path: sp.rel, Err: err}
	}
	defer rc.Close()

	var src io.Reader = rc
	if cfg.MaxExtractionSize() != -1 {
		src = newLimitErrorReader(rc, remaining, ErrMaxExtractionSizeExceeded)
	}

	n, err := WriteFileAtomic(sp.abs, src, fileMode(ae, cfg))
	if err != nil {
		switch {
		case errors.Is(err, ErrMaxExtractionSizeExceeded):
			return n, ErrMaxExtractionSizeExceeded
		case errors.Is(err, io.ErrUnexpectedEOF):
			// truncated entry content
			return n, &CorruptedError{Format: "archive", Err: err}
		default:
			return n, &ExtractionError{Path: sp.rel, Err: err}
		}
	}

	if mt := ae.ModTime(); !mt.IsZero() {
		_ = os.Chtimes(sp.abs, mt, mt)
	}
	return n, nil
}

// materializeSymlink creates the link at the sanitized path pointing at
// the already validated target.
func materializeSymlink(sp sanitizedPath, target string, ae archiveEntry, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(sp.abs), cfg.CustomCreateDirMode().Perm()); err != nil {
		return &DirectoryCreationError{Path: sp.rel, Err: err}
	}
	// Inside a fresh staging tree an existing path can only come from the
	// archive itself; later entries win, like sequential tar extraction.
	if err := SymlinkAtomic(target, sp.abs, true); err != nil {
		return &SymlinkCreationError{Path: sp.rel, Err: err}
	}
	if mt := ae.ModTime(); !mt.IsZero() && canMaintainSymlinkTimestamps {
		_ = lchtimes(sp.abs, mt, mt)
	}
	return nil
}

// materializeHardlink links the sanitized path to an already extracted
// entry inside the staging tree, honoring the configured cross-device
// fallback.
func materializeHardlink(sp, target sanitizedPath, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(sp.abs), cfg.CustomCreateDirMode().Perm()); err != nil {
		return &DirectoryCreationError{Path: sp.rel, Err: err}
	}
	if err := LinkOrCopy(target.abs, sp.abs, cfg.HardlinkFallback()); err != nil {
		return &ExtractionError{Path: sp.rel, Err: err}
	}
	return nil
}

// fileMode returns the permission bits to apply to a regular file.
func fileMode(ae archiveEntry, cfg *Config) fs.FileMode {
	if cfg.PreservePermissions() && ae.Mode().Perm() != 0 {
		return ae.Mode().Perm()
	}
	return 0644
}

// dirMode returns the permission bits to apply to a declared directory.
func dirMode(ae archiveEntry, cfg *Config) fs.FileMode {
	if cfg.PreservePermissions() && ae.Mode().Perm() != 0 {
		return ae.Mode().Perm()
	}
	return cfg.CustomCreateDirMode()
}
