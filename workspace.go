// SPDX-License-Identifier: MPL-2.0

package unpack

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Workspace owns a private staging directory for one extraction. All
// writes happen in the staging tree; Commit atomically replaces the
// destination with it. A workspace that is closed without having been
// committed removes its staging tree, so exactly one of "destination
// replaced" or "staging removed" happens.
//
// Callers defer Close so the cleanup path runs on success, error and
// early return alike.
type Workspace struct {
	staging   string
	dst       string
	cfg       *Config
	committed bool
}

// NewWorkspace creates a fresh, uniquely named staging directory under
// the configured scratch root for an extraction targeting dst. Without
// an explicit scratch root the staging directory lives next to dst, so
// the commit rename stays on one filesystem; the system temp directory
// is often a different filesystem (tmpfs), where the rename would fail.
func NewWorkspace(dst string, cfg *Config) (*Workspace, error) {
	scratch := cfg.ScratchDir()
	if scratch == "" {
		scratch = filepath.Dir(dst)
		if err := os.MkdirAll(scratch, cfg.CustomCreateDirMode().Perm()); err != nil {
			return nil, &WorkspaceError{Op: "create staging root", Err: err}
		}
	}
	staging, err := os.MkdirTemp(scratch, "unpack-staging-*")
	if err != nil {
		return nil, &WorkspaceError{Op: "create staging directory", Err: err}
	}
	return &Workspace{staging: staging, dst: dst, cfg: cfg}, nil
}

// StagingDir returns the staging directory; extraction writes go here.
func (w *Workspace) StagingDir() string {
	return w.staging
}

// Commit atomically replaces the destination with the staging tree and
// marks the workspace committed. On failure the workspace stays
// uncommitted and the destination untouched; the deferred Close then
// removes the staging tree.
//
// An existing, non-empty destination is only replaced when the
// configuration allows overwriting. An empty destination directory is
// treated as absent.
func (w *Workspace) Commit() error {
	if w.committed {
		return nil
	}

	if !w.cfg.Overwrite() {
		empty, err := isEmptyDir(w.dst)
		if err != nil {
			return &WorkspaceError{Op: "inspect destination", Err: err}
		}
		if !empty {
			return &WorkspaceError{Op: "commit", Err: fmt.Errorf("destination %q exists and overwrite is disabled", w.dst)}
		}
	}

	if err := ReplaceDir(w.staging, w.dst, w.cfg.ReplaceRetries(), w.cfg.ReplaceRetryDelay()); err != nil {
		return &WorkspaceError{Op: "commit", Err: err}
	}
	w.committed = true
	w.cfg.Logger().Debug("committed staging directory", "dst", w.dst)
	return nil
}

// Close removes the staging tree if the workspace was not committed. It
// is a no-op after a successful Commit and safe to call more than once.
func (w *Workspace) Close() error {
	if w.committed {
		return nil
	}
	if err := os.RemoveAll(w.staging); err != nil {
		return &WorkspaceError{Op: "remove staging directory", Err: err}
	}
	return nil
}

// isEmptyDir reports whether path is absent or an empty directory.
func isEmptyDir(path string) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := f.Readdirnames(1); err == io.EOF {
		return true, nil
	} else if err != nil {
		return false, err
	}
	return false, nil
}
